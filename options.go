package eventboard

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"
)

// boardConfig holds mutable state during Board construction.
type boardConfig struct {
	title           string
	stats           *Source
	events          []eventSource
	pollingInterval time.Duration
	port            int
	maxIndex        int
	pickIndex       func(n int) int
	logger          *slog.Logger
	regionCallbacks []func(RegionUpdate)
}

type eventSource struct {
	category string
	source   Source
}

// Option configures a [Board] during construction.
//
// Options return an error if validation fails; [New] stops at the first one.
type Option func(*boardConfig) error

// WithStatsSource sets the statistics endpoint. Required.
func WithStatsSource(src Source) Option {
	return func(cfg *boardConfig) error {
		cfg.stats = &src
		return nil
	}
}

// WithEventSource adds an audit event endpoint for a category.
//
// The category names the region ("event-<category>") and must be non-empty
// and contain no whitespace. Categories are displayed in the order added.
//
//	b, err := eventboard.New(
//	    eventboard.WithStatsSource(stats),
//	    eventboard.WithEventSource(eventboard.CategorySensorData, sensors),
//	    eventboard.WithEventSource(eventboard.CategoryUserCommand, commands),
//	)
func WithEventSource(category string, src Source) Option {
	return func(cfg *boardConfig) error {
		if category == "" {
			return errors.New("event category cannot be empty")
		}
		if strings.ContainsFunc(category, unicode.IsSpace) {
			return fmt.Errorf("event category %q must not contain whitespace", category)
		}
		cfg.events = append(cfg.events, eventSource{category: category, source: src})
		return nil
	}
}

// WithPollingInterval sets the fixed period between poll rounds.
// Defaults to 5 seconds.
//
// Returns an error if the duration is zero or negative.
func WithPollingInterval(d time.Duration) Option {
	return func(cfg *boardConfig) error {
		if d <= 0 {
			return errors.New("polling interval must be positive")
		}
		cfg.pollingInterval = d
		return nil
	}
}

// WithPort sets the HTTP port for the dashboard server. Defaults to 8080.
//
// Returns an error if the port is outside the valid range (1-65535).
func WithPort(port int) Option {
	return func(cfg *boardConfig) error {
		if port < 1 || port > 65535 {
			return errors.New("port must be between 1 and 65535")
		}
		cfg.port = port
		return nil
	}
}

// WithMaxIndex sets the exclusive upper bound of the random event index.
// Defaults to 25, so indices fall in [0, 25).
func WithMaxIndex(n int) Option {
	return func(cfg *boardConfig) error {
		if n < 1 {
			return errors.New("max index must be at least 1")
		}
		cfg.maxIndex = n
		return nil
	}
}

// WithIndexFunc replaces the random index picker. f receives the max index n
// and should return a value in [0, n); whatever it returns is requested as-is.
func WithIndexFunc(f func(n int) int) Option {
	return func(cfg *boardConfig) error {
		if f == nil {
			return errors.New("index func cannot be nil")
		}
		cfg.pickIndex = f
		return nil
	}
}

// WithLogger sets a custom [slog.Logger]. If not specified, [slog.Default]
// is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *boardConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithTitle sets the dashboard title shown in the browser tab and header.
// Defaults to "EventBoard".
func WithTitle(title string) Option {
	return func(cfg *boardConfig) error {
		cfg.title = title
		return nil
	}
}

// WithRegionCallback registers a function called after every settled fetch
// has been rendered and stored.
//
// Callbacks run synchronously, in registration order, on the goroutine that
// drains poll results: they must not block. A panicking callback is recovered
// and logged with a correlation id. Nil callbacks are ignored.
//
//	eventboard.WithRegionCallback(func(u eventboard.RegionUpdate) {
//	    if u.Error != nil {
//	        log.Printf("%s: %v", u.Region, u.Error)
//	    }
//	})
func WithRegionCallback(cb func(RegionUpdate)) Option {
	return func(cfg *boardConfig) error {
		if cb == nil {
			return nil
		}
		cfg.regionCallbacks = append(cfg.regionCallbacks, cb)
		return nil
	}
}
