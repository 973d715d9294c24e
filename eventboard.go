package eventboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jpalmerr/eventboard/dashboard"
	"github.com/jpalmerr/eventboard/internal/poller"
	"github.com/jpalmerr/eventboard/internal/render"
	"github.com/jpalmerr/eventboard/internal/server"
	"github.com/jpalmerr/eventboard/internal/store"
)

const (
	defaultPollingInterval = 5 * time.Second
	defaultPort            = 8080
	defaultMaxIndex        = 25
)

// Board polls a statistics endpoint and per-category audit event endpoints,
// renders each settled fetch into its display region and serves the regions
// as a live dashboard.
//
// A Board is created with [New] and run with [Board.Start]:
//
//	b, err := eventboard.New(
//	    eventboard.WithStatsSource(stats),
//	    eventboard.WithEventSource(eventboard.CategorySensorData, sensors),
//	)
//	if err != nil {
//	    slog.Error("failed to create board", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	b.Start(ctx) // blocks until ctx is cancelled
type Board struct {
	title           string
	stats           Source
	events          []eventSource
	pollingInterval time.Duration
	port            int
	maxIndex        int
	pickIndex       func(n int) int
	logger          *slog.Logger
	regionCallbacks []func(RegionUpdate)
}

// New creates a [Board] with the given options.
//
// A stats source ([WithStatsSource]) and at least one event source
// ([WithEventSource]) are required, and event categories must be unique.
// Defaults: polling every 5 seconds, port 8080, event indices in [0, 25).
func New(opts ...Option) (*Board, error) {
	cfg := &boardConfig{
		pollingInterval: defaultPollingInterval,
		port:            defaultPort,
		maxIndex:        defaultMaxIndex,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.stats == nil {
		return nil, errors.New("a stats source is required")
	}
	if len(cfg.events) == 0 {
		return nil, errors.New("at least one event source is required")
	}

	// categories double as region ids
	seen := make(map[string]bool, len(cfg.events))
	for _, ev := range cfg.events {
		if seen[ev.category] {
			return nil, fmt.Errorf("duplicate event category: %q", ev.category)
		}
		seen[ev.category] = true
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Board{
		title:           cfg.title,
		stats:           *cfg.stats,
		events:          cfg.events,
		pollingInterval: cfg.pollingInterval,
		port:            cfg.port,
		maxIndex:        cfg.maxIndex,
		pickIndex:       cfg.pickIndex,
		logger:          logger,
		regionCallbacks: cfg.regionCallbacks,
	}, nil
}

// Start begins polling and serving the dashboard, and blocks until ctx is
// cancelled.
//
// The first poll round runs immediately, then one per polling interval. Every
// settled fetch is rendered, stored (a rendering from an older round never
// replaces a newer one), handed to region callbacks and logged. The dashboard
// is served at http://localhost:<port>.
//
// Returns nil on graceful shutdown, or an error if the HTTP server cannot
// bind its port.
func (b *Board) Start(ctx context.Context) error {
	b.logger.Info("eventboard starting", "event_categories", len(b.events))
	b.logger.Info("polling configured", "interval", b.pollingInterval.String(), "max_index", b.maxIndex)
	b.logger.Info("dashboard available", "url", fmt.Sprintf("http://localhost:%d", b.port))

	if ctx.Err() != nil {
		return nil
	}

	regions := store.NewMemoryStore()

	p := poller.New(b.pollerConfig(), b.logger)
	p.Start(ctx)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for result := range p.Results() {
			b.handleResult(regions, result)
		}
	}()

	// stop the poller (closing Results) and drain what is left
	cleanup := func() {
		p.Stop()
		wg.Wait()
	}

	httpServer := server.NewServer(regions, b.port, dashboard.Assets, b.title, b.logger)
	if err := httpServer.Start(ctx); err != nil {
		cleanup()
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	<-ctx.Done()
	cleanup()
	b.logger.Info("eventboard stopped")
	return nil
}

// handleResult renders a result, stores it, runs callbacks and logs it.
func (b *Board) handleResult(st store.Store, r poller.Result) {
	html, err := renderResult(r)
	if err != nil {
		b.logger.Error("render failed", "region", r.Region, "round", r.Round, "error", err)
		return
	}

	applied := st.Update(toRegion(r, html))

	if len(b.regionCallbacks) > 0 {
		update := toRegionUpdate(r, html, applied)
		for _, cb := range b.regionCallbacks {
			invokeCallbackSafe(cb, update, b.logger)
		}
	}

	attrs := []any{
		"region", r.Region,
		"round", r.Round,
		"url", r.URL,
		"latency_ms", r.Latency.Milliseconds(),
	}
	if r.Kind == poller.KindEvent {
		attrs = append(attrs, "category", r.Category, "index", r.Index)
	}
	if !applied {
		b.logger.Debug("stale result discarded", attrs...)
		return
	}
	if r.Error != nil {
		b.logger.Warn("fetch failed", append(attrs, "error", r.Error.Error())...)
		return
	}
	b.logger.Debug("region updated", append(attrs, "fields", len(r.Fields))...)
}

// renderResult produces the region fragment for a result.
func renderResult(r poller.Result) (string, error) {
	if r.Kind == poller.KindStats {
		if r.Error != nil {
			return render.StatsError(r.Error.Error())
		}
		return render.Stats(toPairs(r.Fields))
	}
	if r.Error != nil {
		return render.EventError(r.Index, r.Error.Error())
	}
	return render.Event(r.Index, toPairs(r.Fields))
}

func toPairs(fields []poller.Field) []render.Pair {
	pairs := make([]render.Pair, len(fields))
	for i, f := range fields {
		pairs[i] = render.Pair{Key: f.Key, Value: f.Value}
	}
	return pairs
}

// toRegion converts a rendered result to its stored form.
func toRegion(r poller.Result, html string) store.Region {
	region := store.Region{
		ID:        r.Region,
		Kind:      string(r.Kind),
		Category:  r.Category,
		HTML:      html,
		Round:     r.Round,
		UpdatedAt: r.CheckedAt,
	}
	if r.Kind == poller.KindEvent {
		index := r.Index
		region.Index = &index
	}
	if r.Error != nil {
		msg := r.Error.Error()
		region.Error = &msg
	}
	return region
}

// toRegionUpdate converts a rendered result to the public callback type.
func toRegionUpdate(r poller.Result, html string, applied bool) RegionUpdate {
	var fields []Field
	if r.Fields != nil {
		fields = make([]Field, len(r.Fields))
		for i, f := range r.Fields {
			fields[i] = Field{Key: f.Key, Value: f.Value}
		}
	}

	return RegionUpdate{
		Region:     r.Region,
		Kind:       Kind(r.Kind),
		Category:   r.Category,
		Index:      r.Index,
		Round:      r.Round,
		URL:        r.URL,
		Fields:     fields,
		HTML:       html,
		Error:      r.Error,
		Applied:    applied,
		StatusCode: r.StatusCode,
		Latency:    r.Latency,
		CheckedAt:  r.CheckedAt,
	}
}

// invokeCallbackSafe calls a region callback with panic recovery. The panic
// and its stack are logged under a fresh correlation id.
func invokeCallbackSafe(cb func(RegionUpdate), update RegionUpdate, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("region callback panicked",
				"correlation_id", uuid.NewString(),
				"panic", fmt.Sprintf("%v", r),
				"region", update.Region,
				"stack", string(debug.Stack()),
			)
		}
	}()
	cb(update)
}

// pollerConfig converts the board's sources to the poller's form.
func (b *Board) pollerConfig() poller.Config {
	events := make([]poller.EventSource, len(b.events))
	for i, ev := range b.events {
		events[i] = poller.EventSource{
			Category: ev.category,
			Source:   toPollerSource(ev.source),
		}
	}

	return poller.Config{
		Stats:     toPollerSource(b.stats),
		Events:    events,
		Interval:  b.pollingInterval,
		MaxIndex:  b.maxIndex,
		PickIndex: b.pickIndex,
	}
}

func toPollerSource(s Source) poller.Source {
	return poller.Source{
		URL:     s.url,
		Headers: copyMap(s.headers),
		Timeout: s.timeout,
	}
}

// Title returns the configured dashboard title, empty for the default.
func (b *Board) Title() string {
	return b.title
}

// StatsSource returns the statistics source.
func (b *Board) StatsSource() Source {
	return b.stats
}

// Categories returns the event categories in display order.
func (b *Board) Categories() []string {
	out := make([]string, len(b.events))
	for i, ev := range b.events {
		out[i] = ev.category
	}
	return out
}

// EventSource returns the source configured for a category.
func (b *Board) EventSource(category string) (Source, bool) {
	for _, ev := range b.events {
		if ev.category == category {
			return ev.source, true
		}
	}
	return Source{}, false
}

// Port returns the configured HTTP port for the dashboard server.
func (b *Board) Port() int {
	return b.port
}

// PollingInterval returns the period between poll rounds.
func (b *Board) PollingInterval() time.Duration {
	return b.pollingInterval
}

// MaxIndex returns the exclusive upper bound of event indices.
func (b *Board) MaxIndex() int {
	return b.maxIndex
}
