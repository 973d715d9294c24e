// Standalone mock audit service for trying the CLI.
//
// Usage:
//
//	go run ./example/cmd/mockaudit
//
// Then in another terminal:
//
//	go run ./cmd/eventboard serve -c example/config.yaml
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/eventboard/example/mockaudit"
)

const (
	addr  = ":9999"
	every = time.Second
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc := mockaudit.NewService(logger)
	go func() {
		if err := svc.Simulate(ctx, every); err != nil {
			logger.Error("simulation stopped", "error", err)
		}
	}()

	srv := &http.Server{Addr: addr, Handler: svc.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("mock audit service starting", "addr", addr, "every", every.String())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
