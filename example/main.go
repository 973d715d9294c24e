// Demo: an in-process mock audit service plus a board polling it.
//
//	go run ./example
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/eventboard"
	"github.com/jpalmerr/eventboard/example/mockaudit"
)

const mockAddr = "localhost:9999"

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc := mockaudit.NewService(logger.With("component", "mockaudit"))
	ln, err := net.Listen("tcp", mockAddr)
	if err != nil {
		logger.Error("failed to listen", "addr", mockAddr, "error", err)
		os.Exit(1)
	}
	mock := &http.Server{Handler: svc.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := mock.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("mock server error", "error", err)
		}
	}()
	go func() { _ = svc.Simulate(ctx, time.Second) }()

	stats, _ := eventboard.NewSource("http://" + mockAddr + "/stats")
	sensors, _ := eventboard.NewSource("http://"+mockAddr+"/sensor_data", eventboard.WithTimeout(2*time.Second))
	commands, _ := eventboard.NewSource("http://"+mockAddr+"/user_command", eventboard.WithTimeout(2*time.Second))

	board, err := eventboard.New(
		eventboard.WithTitle("Thermostat Audit"),
		eventboard.WithStatsSource(stats),
		eventboard.WithEventSource(eventboard.CategorySensorData, sensors),
		eventboard.WithEventSource(eventboard.CategoryUserCommand, commands),
		eventboard.WithPollingInterval(2*time.Second),
		eventboard.WithMaxIndex(10),
		eventboard.WithLogger(logger),
		eventboard.WithRegionCallback(func(u eventboard.RegionUpdate) {
			if u.Error != nil && u.Applied {
				logger.Info("region shows error", "region", u.Region, "error", u.Error)
			}
		}),
	)
	if err != nil {
		logger.Error("failed to create board", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  EventBoard demo")
	fmt.Println("  Open http://localhost:8080 in your browser")
	fmt.Println("  Mock audit service on http://" + mockAddr)
	fmt.Println("  Press Ctrl+C to stop")
	fmt.Println()

	if err := board.Start(ctx); err != nil {
		logger.Error("eventboard error", "error", err)
		os.Exit(1)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = mock.Shutdown(shutdownCtx)
}
