package poller

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fixedIndex returns a picker that always yields i.
func fixedIndex(i int) func(int) int {
	return func(int) int { return i }
}

// collect reads results until n have arrived or the timeout fires.
func collect(t *testing.T, ch <-chan Result, n int, timeout time.Duration) []Result {
	t.Helper()
	var got []Result
	deadline := time.After(timeout)
	for len(got) < n {
		select {
		case r, ok := <-ch:
			if !ok {
				return got
			}
			got = append(got, r)
		case <-deadline:
			t.Fatalf("received %d/%d results before timeout", len(got), n)
		}
	}
	return got
}

// byRegion indexes results by region id, keeping the first per region.
func byRegion(results []Result) map[string]Result {
	m := make(map[string]Result, len(results))
	for _, r := range results {
		if _, ok := m[r.Region]; !ok {
			m[r.Region] = r
		}
	}
	return m
}

// newAuditServer serves /stats and /sensor_data, /user_command like the
// upstream services do: events past maxStored return 404.
func newAuditServer(t *testing.T, maxStored int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"uptime": 120, "count": 5}`))
	})
	event := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			idx, err := strconv.Atoi(r.URL.Query().Get("index"))
			if err != nil || idx < 0 || idx >= maxStored {
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{"message": "Not Found"}`))
				return
			}
			_, _ = w.Write([]byte(body))
		}
	}
	mux.HandleFunc("/sensor_data", event(`{"temp": 21.5, "humidity": 40, "index": 99}`))
	mux.HandleFunc("/user_command", event(`{"target_device": "Thermostat"}`))
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func testConfig(base string, pick func(int) int) Config {
	return Config{
		Stats: Source{URL: base + "/stats"},
		Events: []EventSource{
			{Category: "sensor-data", Source: Source{URL: base + "/sensor_data"}},
			{Category: "user-command", Source: Source{URL: base + "/user_command"}},
		},
		Interval:  time.Hour,
		MaxIndex:  25,
		PickIndex: pick,
	}
}

func TestEventRegion(t *testing.T) {
	if got := EventRegion("sensor-data"); got != "event-sensor-data" {
		t.Errorf("EventRegion() = %q, want %q", got, "event-sensor-data")
	}
}

func TestPoller_InitialRoundHitsAllRegions(t *testing.T) {
	server := newAuditServer(t, 10)

	p := New(testConfig(server.URL, fixedIndex(7)), testLogger())
	p.Start(context.Background())
	defer p.Stop()

	results := byRegion(collect(t, p.Results(), 3, 5*time.Second))

	stats, ok := results[StatsRegion]
	if !ok {
		t.Fatal("missing stats result")
	}
	if stats.Error != nil {
		t.Fatalf("stats error = %v", stats.Error)
	}
	if stats.Kind != KindStats || stats.Round != 1 {
		t.Errorf("stats Kind/Round = %s/%d, want stats/1", stats.Kind, stats.Round)
	}
	if len(stats.Fields) != 2 || stats.Fields[0] != (Field{"uptime", "120"}) || stats.Fields[1] != (Field{"count", "5"}) {
		t.Errorf("stats Fields = %v", stats.Fields)
	}

	sensor, ok := results["event-sensor-data"]
	if !ok {
		t.Fatal("missing sensor-data result")
	}
	if sensor.Error != nil {
		t.Fatalf("sensor-data error = %v", sensor.Error)
	}
	if sensor.Index != 7 || sensor.Category != "sensor-data" || sensor.Kind != KindEvent {
		t.Errorf("sensor-data Index/Category/Kind = %d/%s/%s", sensor.Index, sensor.Category, sensor.Kind)
	}
	// payload "index" is dropped; the requested index wins
	want := []Field{{"temp", "21.5"}, {"humidity", "40"}}
	if len(sensor.Fields) != len(want) {
		t.Fatalf("sensor-data Fields = %v, want %v", sensor.Fields, want)
	}
	for i := range want {
		if sensor.Fields[i] != want[i] {
			t.Errorf("sensor-data Fields[%d] = %v, want %v", i, sensor.Fields[i], want[i])
		}
	}
	if !strings.HasSuffix(sensor.URL, "/sensor_data?index=7") {
		t.Errorf("sensor-data URL = %q", sensor.URL)
	}

	if _, ok := results["event-user-command"]; !ok {
		t.Error("missing user-command result")
	}
}

func TestPoller_EventNon2xxKeepsIndex(t *testing.T) {
	server := newAuditServer(t, 3)

	p := New(testConfig(server.URL, fixedIndex(7)), testLogger())
	p.Start(context.Background())
	defer p.Stop()

	results := byRegion(collect(t, p.Results(), 3, 5*time.Second))

	sensor := results["event-sensor-data"]
	if sensor.Error == nil {
		t.Fatal("expected error for 404 event")
	}
	if sensor.Error.Error() != "Error: status code 404" {
		t.Errorf("error = %q, want %q", sensor.Error, "Error: status code 404")
	}
	if sensor.Index != 7 {
		t.Errorf("Index = %d, want 7", sensor.Index)
	}
	if sensor.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", sensor.StatusCode)
	}
	if sensor.Fields != nil {
		t.Errorf("Fields = %v, want nil", sensor.Fields)
	}
}

func TestPoller_StatsIgnoresStatusCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message": "Statistics do not exist"}`))
	}))
	defer server.Close()

	cfg := Config{Stats: Source{URL: server.URL}, Interval: time.Hour, MaxIndex: 25}
	p := New(cfg, testLogger())
	p.Start(context.Background())
	defer p.Stop()

	r := collect(t, p.Results(), 1, 5*time.Second)[0]
	if r.Error != nil {
		t.Fatalf("stats error = %v, want nil (status is not checked)", r.Error)
	}
	if len(r.Fields) != 1 || r.Fields[0].Value != "Statistics do not exist" {
		t.Errorf("Fields = %v", r.Fields)
	}
}

func TestPoller_StatsDecodeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	cfg := Config{Stats: Source{URL: server.URL}, Interval: time.Hour, MaxIndex: 25}
	p := New(cfg, testLogger())
	p.Start(context.Background())
	defer p.Stop()

	r := collect(t, p.Results(), 1, 5*time.Second)[0]
	if r.Error == nil {
		t.Fatal("expected decode error")
	}
	if r.Fields != nil {
		t.Errorf("Fields = %v, want nil", r.Fields)
	}
}

func TestNew_DefaultPickerIsUniform(t *testing.T) {
	p := New(testConfig("http://localhost", nil), testLogger())

	const (
		bound = 25
		draws = 25000
	)
	counts := make([]int, bound)
	for i := 0; i < draws; i++ {
		n := p.cfg.PickIndex(bound)
		if n < 0 || n >= bound {
			t.Fatalf("PickIndex(%d) = %d, out of range", bound, n)
		}
		counts[n]++
	}

	// expected 1000 per bucket; the band is far outside normal variation
	for i, c := range counts {
		if c < 700 || c > 1300 {
			t.Errorf("index %d drawn %d times, want roughly %d", i, c, draws/bound)
		}
	}
}

func TestPoller_DefaultPickerRequestsInRange(t *testing.T) {
	var (
		mu      sync.Mutex
		indices []int
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if q := r.URL.Query().Get("index"); q != "" {
			idx, _ := strconv.Atoi(q)
			mu.Lock()
			indices = append(indices, idx)
			mu.Unlock()
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	cfg := testConfig(server.URL, nil)
	cfg.Interval = 10 * time.Millisecond
	p := New(cfg, testLogger())
	p.Start(context.Background())
	collect(t, p.Results(), 30, 5*time.Second)
	p.Stop()

	mu.Lock()
	defer mu.Unlock()
	if len(indices) < 20 {
		t.Fatalf("recorded %d event requests, want at least 20", len(indices))
	}
	for _, idx := range indices {
		if idx < 0 || idx >= 25 {
			t.Errorf("requested index %d, want [0,25)", idx)
		}
	}
}

func TestPoller_StatsUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := server.URL
	server.Close()

	cfg := Config{Stats: Source{URL: addr + "/stats"}, Interval: time.Hour, MaxIndex: 25}
	p := New(cfg, testLogger())
	p.Start(context.Background())
	defer p.Stop()

	r := collect(t, p.Results(), 1, 5*time.Second)[0]
	if r.Error == nil {
		t.Fatal("expected network error")
	}
	if r.StatusCode != 0 {
		t.Errorf("StatusCode = %d, want 0", r.StatusCode)
	}
}

func TestPoller_PreservesExistingQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	cfg := Config{
		Stats:     Source{URL: server.URL},
		Events:    []EventSource{{Category: "c", Source: Source{URL: server.URL + "/e?topic=events"}}},
		Interval:  time.Hour,
		MaxIndex:  25,
		PickIndex: fixedIndex(3),
	}
	p := New(cfg, testLogger())
	p.Start(context.Background())
	defer p.Stop()

	for _, r := range collect(t, p.Results(), 2, 5*time.Second) {
		if r.Kind != KindEvent {
			continue
		}
		if !strings.Contains(r.URL, "topic=events") || !strings.Contains(r.URL, "index=3") {
			t.Errorf("URL = %q, want topic and index params", r.URL)
		}
	}
}

func TestPoller_PickerBoundAndPerCategoryCalls(t *testing.T) {
	server := newAuditServer(t, 10)

	var mu sync.Mutex
	var bounds []int
	pick := func(n int) int {
		mu.Lock()
		defer mu.Unlock()
		bounds = append(bounds, n)
		return 0
	}

	p := New(testConfig(server.URL, pick), testLogger())
	p.Start(context.Background())
	collect(t, p.Results(), 3, 5*time.Second)
	p.Stop()

	mu.Lock()
	defer mu.Unlock()
	if len(bounds) != 2 {
		t.Fatalf("picker called %d times in one round, want 2 (one per category)", len(bounds))
	}
	for _, n := range bounds {
		if n != 25 {
			t.Errorf("picker bound = %d, want 25", n)
		}
	}
}

func TestPoller_TicksIssueNewRounds(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"n": 1}`))
	}))
	defer server.Close()

	cfg := Config{Stats: Source{URL: server.URL}, Interval: 30 * time.Millisecond, MaxIndex: 25}
	p := New(cfg, testLogger())
	p.Start(context.Background())
	defer p.Stop()

	// settle order is not guaranteed across rounds, so only check coverage
	rounds := make(map[uint64]bool)
	for _, r := range collect(t, p.Results(), 3, 5*time.Second) {
		rounds[r.Round] = true
	}
	if len(rounds) != 3 {
		t.Errorf("distinct rounds = %d, want 3", len(rounds))
	}
	if hits.Load() < 3 {
		t.Errorf("server hits = %d, want at least 3", hits.Load())
	}
}

// TestPoller_RoundsOverlap verifies the ticker does not wait for a slow round.
func TestPoller_RoundsOverlap(t *testing.T) {
	release := make(chan struct{})
	var inFlight, maxInFlight atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			cur := maxInFlight.Load()
			if n <= cur || maxInFlight.CompareAndSwap(cur, n) {
				break
			}
		}
		select {
		case <-release:
		case <-r.Context().Done():
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	cfg := Config{Stats: Source{URL: server.URL}, Interval: 20 * time.Millisecond, MaxIndex: 25}
	p := New(cfg, testLogger())
	p.Start(context.Background())

	deadline := time.Now().Add(5 * time.Second)
	for maxInFlight.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	close(release)
	p.Stop()

	if got := maxInFlight.Load(); got < 2 {
		t.Errorf("max in-flight requests = %d, want at least 2 overlapping rounds", got)
	}
}

// TestPoller_StopBeforeStart verifies that Stop on a never-started poller is a
// safe no-op that still closes the results channel.
func TestPoller_StopBeforeStart(t *testing.T) {
	p := New(Config{Interval: time.Minute, MaxIndex: 25}, testLogger())
	p.Stop()

	select {
	case _, ok := <-p.Results():
		if ok {
			t.Error("Results() should be closed")
		}
	case <-time.After(time.Second):
		t.Error("Results() not closed after Stop")
	}
}

// TestPoller_StopTwice verifies that Stop is idempotent.
func TestPoller_StopTwice(t *testing.T) {
	server := newAuditServer(t, 10)
	p := New(testConfig(server.URL, fixedIndex(1)), testLogger())
	p.Start(context.Background())

	p.Stop()
	p.Stop()
}

// TestPoller_StartAfterStop verifies that a stopped poller cannot restart.
func TestPoller_StartAfterStop(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	p := New(Config{Stats: Source{URL: server.URL}, Interval: time.Hour, MaxIndex: 25}, testLogger())
	p.Stop()
	p.Start(context.Background())

	time.Sleep(50 * time.Millisecond)
	if hits.Load() != 0 {
		t.Errorf("server hit %d times after Start on stopped poller, want 0", hits.Load())
	}
}

// TestPoller_ContextCancelStopsLoop verifies cancellation ends the loop and
// Stop then returns promptly with a closed channel.
func TestPoller_ContextCancelStopsLoop(t *testing.T) {
	server := newAuditServer(t, 10)

	ctx, cancel := context.WithCancel(context.Background())
	cfg := testConfig(server.URL, fixedIndex(1))
	cfg.Interval = 10 * time.Millisecond
	p := New(cfg, testLogger())
	p.Start(ctx)

	collect(t, p.Results(), 3, 5*time.Second)
	cancel()

	done := make(chan struct{})
	go func() {
		p.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop() did not return after context cancellation")
	}

	// drain; channel must be closed
	for range p.Results() {
	}
}

func TestWithIndex(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"http://h/sensor_data", "http://h/sensor_data?index=0"},
		{"http://h/e?index=3", "http://h/e?index=0"},
		{"http://h/e?a=b", "http://h/e?a=b&index=0"},
	}
	for _, tt := range tests {
		got, err := withIndex(tt.in, 0)
		if err != nil {
			t.Fatalf("withIndex(%q) error = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("withIndex(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if _, err := withIndex("http://h/%zz", 0); err == nil {
		t.Error("withIndex() expected error for malformed URL")
	}
}
