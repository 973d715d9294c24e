package poller

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/url"
	"strconv"
	"sync"
	"time"
)

// StatsRegion is the region id fed by the statistics fetch.
const StatsRegion = "stats"

// indexParam is the query parameter carrying the requested event slot.
const indexParam = "index"

// Kind distinguishes the two payload shapes a region can display.
type Kind string

const (
	// KindStats marks a statistics result.
	KindStats Kind = "stats"

	// KindEvent marks a single audit event result.
	KindEvent Kind = "event"
)

// EventRegion returns the region id fed by the given event category.
func EventRegion(category string) string {
	return "event-" + category
}

// Source describes one upstream URL and how to request it.
type Source struct {
	// URL is the target URL.
	URL string

	// Headers are sent with every request to the source.
	Headers map[string]string

	// Timeout bounds a single request. Zero leaves the request bounded only
	// by the transport and the poller's context.
	Timeout time.Duration
}

// EventSource is a [Source] serving indexed events of one category.
type EventSource struct {
	Source

	// Category names the event stream, e.g. "sensor-data".
	Category string
}

// Config holds everything a [Poller] needs.
type Config struct {
	// Stats is the statistics endpoint.
	Stats Source

	// Events lists one source per event category, in display order.
	Events []EventSource

	// Interval is the fixed period between rounds.
	Interval time.Duration

	// MaxIndex is the exclusive upper bound of the random event index.
	MaxIndex int

	// PickIndex returns an integer in [0, n). Nil uses math/rand/v2.
	PickIndex func(n int) int
}

// Result is the settled outcome of one fetch.
//
// Exactly one of Fields or Error is meaningful: a nil Error means the payload
// decoded and Fields holds the displayable pairs in document order.
type Result struct {
	// Region is the id of the display region this result feeds.
	Region string

	// Kind is the payload shape.
	Kind Kind

	// Category is the event category; empty for statistics.
	Category string

	// Index is the event slot that was requested; zero for statistics.
	Index int

	// Round is the poll round that issued the fetch, starting at 1.
	Round uint64

	// URL is the URL that was requested.
	URL string

	// Fields holds the decoded key/value pairs on success. For events the
	// "index" key is removed.
	Fields []Field

	// Error holds the failure: network error, non-2xx status (events only)
	// or a decode error.
	Error error

	// StatusCode is the HTTP status code, zero if no response arrived.
	StatusCode int

	// Latency is the time taken by the HTTP request.
	Latency time.Duration

	// CheckedAt is when the fetch settled.
	CheckedAt time.Time
}

// Poller periodically fetches the statistics and event sources.
//
// Rounds overlap freely: the ticker never waits for an earlier round's fetches
// to settle and nothing is deduplicated or retried. Results are emitted on the
// channel returned by [Poller.Results] in the order fetches settle.
//
// All lifecycle methods (Start, Stop) are safe for concurrent use.
type Poller struct {
	cfg     Config
	client  *Client
	results chan Result
	logger  *slog.Logger
	round   uint64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	started   bool
	stopped   bool
	closeOnce sync.Once
}

// New creates a [Poller] for the given configuration.
//
// The poller must be started with [Poller.Start] and stopped with
// [Poller.Stop].
func New(cfg Config, logger *slog.Logger) *Poller {
	if cfg.PickIndex == nil {
		cfg.PickIndex = rand.IntN
	}
	if logger == nil {
		logger = slog.Default()
	}

	// room for a few rounds of results before fetch goroutines block
	buffer := (1 + len(cfg.Events)) * 4

	return &Poller{
		cfg:     cfg,
		client:  NewClient(),
		results: make(chan Result, buffer),
		logger:  logger,
	}
}

// Results returns a receive-only channel that emits [Result] values.
//
// The channel is closed when the poller stops.
func (p *Poller) Results() <-chan Result {
	return p.results
}

// Start runs the first round immediately and then one round per interval, in
// a background goroutine.
//
// If ctx is nil, context.Background() is used. Start is idempotent; calls
// after the first, or after Stop, are no-ops.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started || p.stopped {
		p.mu.Unlock()
		return
	}
	p.started = true

	if ctx == nil {
		ctx = context.Background()
	}
	p.ctx, p.cancel = context.WithCancel(ctx)
	pollCtx := p.ctx
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()

		p.runRound(pollCtx)

		ticker := time.NewTicker(p.cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-pollCtx.Done():
				return
			case <-ticker.C:
				p.runRound(pollCtx)
			}
		}
	}()
}

// Stop cancels in-flight requests, waits for every fetch goroutine to return
// and closes the results channel.
//
// Stop is idempotent and safe to call before Start.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		if p.cancel != nil {
			p.cancel()
		}
	}
	p.mu.Unlock()

	p.wg.Wait()
	p.client.Close()
	p.closeOnce.Do(func() { close(p.results) })
}

// runRound issues one statistics fetch and one event fetch per category.
//
// Indexes are picked before any goroutine starts so the picker is only ever
// called from the loop goroutine.
func (p *Poller) runRound(ctx context.Context) {
	p.round++
	round := p.round

	p.logger.Debug("poll round started", "round", round)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.emit(ctx, p.fetchStats(ctx, round))
	}()

	for _, src := range p.cfg.Events {
		index := p.cfg.PickIndex(p.cfg.MaxIndex)
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.emit(ctx, p.fetchEvent(ctx, round, src, index))
		}()
	}
}

// emit delivers a result unless the poller is shutting down.
func (p *Poller) emit(ctx context.Context, r Result) {
	select {
	case p.results <- r:
	case <-ctx.Done():
	}
}

// fetchStats fetches and decodes the statistics payload.
//
// Any status code is accepted as long as the body decodes.
func (p *Poller) fetchStats(ctx context.Context, round uint64) Result {
	src := p.cfg.Stats
	resp := p.client.Fetch(ctx, src.URL, src.Headers, src.Timeout)

	result := Result{
		Region:     StatsRegion,
		Kind:       KindStats,
		Round:      round,
		URL:        src.URL,
		StatusCode: resp.StatusCode,
		Latency:    resp.Latency,
		CheckedAt:  time.Now(),
	}

	if resp.Error != nil {
		result.Error = resp.Error
		return result
	}

	fields, err := DecodeFields(resp.Body)
	if err != nil {
		result.Error = err
		return result
	}
	result.Fields = fields
	return result
}

// fetchEvent fetches and decodes the event at index for one category.
//
// A non-2xx status fails the fetch even when a body is present. The index is
// kept on both success and failure.
func (p *Poller) fetchEvent(ctx context.Context, round uint64, src EventSource, index int) Result {
	result := Result{
		Region:   EventRegion(src.Category),
		Kind:     KindEvent,
		Category: src.Category,
		Index:    index,
		Round:    round,
		URL:      src.URL,
	}

	target, err := withIndex(src.URL, index)
	if err != nil {
		result.Error = err
		result.CheckedAt = time.Now()
		return result
	}
	result.URL = target

	resp := p.client.Fetch(ctx, target, src.Headers, src.Timeout)
	result.StatusCode = resp.StatusCode
	result.Latency = resp.Latency
	result.CheckedAt = time.Now()

	if resp.Error != nil {
		result.Error = resp.Error
		return result
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		result.Error = fmt.Errorf("Error: status code %d", resp.StatusCode)
		return result
	}

	fields, err := DecodeFields(resp.Body)
	if err != nil {
		result.Error = err
		return result
	}
	result.Fields = withoutKey(fields, indexParam)
	return result
}

// withIndex returns rawURL with the index query parameter set, keeping any
// other parameters already present.
func withIndex(rawURL string, index int) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}
	q := u.Query()
	q.Set(indexParam, strconv.Itoa(index))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
