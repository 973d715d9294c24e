package config

import (
	"reflect"
	"testing"
	"time"

	"github.com/jpalmerr/eventboard"
)

func testConfig() *Config {
	return &Config{
		Title:        "Audit",
		Port:         9090,
		PollInterval: Duration(2 * time.Second),
		MaxIndex:     10,
		Stats: SourceConfig{
			URL:     "http://localhost:8100/stats",
			Timeout: Duration(3 * time.Second),
		},
		Events: []EventConfig{
			{Category: "sensor-data", SourceConfig: SourceConfig{URL: "http://localhost:8110/sensor_data"}},
			{Category: "user-command", SourceConfig: SourceConfig{
				URL:     "http://localhost:8110/user_command",
				Headers: map[string]string{"Authorization": "Bearer token", "X-Trace": "1"},
			}},
		},
	}
}

func TestBuildOptions(t *testing.T) {
	opts, err := BuildOptions(testConfig())
	if err != nil {
		t.Fatalf("BuildOptions() error = %v", err)
	}

	b, err := eventboard.New(opts...)
	if err != nil {
		t.Fatalf("eventboard.New() error = %v", err)
	}

	if b.Title() != "Audit" || b.Port() != 9090 {
		t.Errorf("Title/Port = %q/%d", b.Title(), b.Port())
	}
	if b.PollingInterval() != 2*time.Second || b.MaxIndex() != 10 {
		t.Errorf("PollingInterval/MaxIndex = %v/%d", b.PollingInterval(), b.MaxIndex())
	}

	stats := b.StatsSource()
	if stats.URL() != "http://localhost:8100/stats" || stats.Timeout() != 3*time.Second {
		t.Errorf("stats = %q timeout %v", stats.URL(), stats.Timeout())
	}

	if got := b.Categories(); !reflect.DeepEqual(got, []string{"sensor-data", "user-command"}) {
		t.Errorf("Categories() = %v", got)
	}

	cmd, ok := b.EventSource("user-command")
	if !ok {
		t.Fatal("user-command source missing")
	}
	want := map[string]string{"Authorization": "Bearer token", "X-Trace": "1"}
	if !reflect.DeepEqual(cmd.Headers(), want) {
		t.Errorf("Headers() = %v, want %v", cmd.Headers(), want)
	}
	if cmd.Timeout() != 0 {
		t.Errorf("Timeout() = %v, want 0", cmd.Timeout())
	}
}

func TestBuildOptions_NoTitle(t *testing.T) {
	cfg := testConfig()
	cfg.Title = ""

	opts, err := BuildOptions(cfg)
	if err != nil {
		t.Fatalf("BuildOptions() error = %v", err)
	}
	b, err := eventboard.New(opts...)
	if err != nil {
		t.Fatalf("eventboard.New() error = %v", err)
	}
	if b.Title() != "" {
		t.Errorf("Title() = %q, want empty", b.Title())
	}
}

func TestBuildOptions_InvalidSource(t *testing.T) {
	cfg := testConfig()
	cfg.Events[1].URL = "ftp://localhost/user_command"

	if _, err := BuildOptions(cfg); err == nil {
		t.Fatal("BuildOptions() error = nil, want error for ftp url")
	}
}

func TestBuildOptions_FromParse(t *testing.T) {
	cfg, err := Parse([]byte(`
stats:
  url: http://localhost:8100/stats
events:
  - category: sensor-data
    url: http://localhost:8110/sensor_data
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	opts, err := BuildOptions(cfg)
	if err != nil {
		t.Fatalf("BuildOptions() error = %v", err)
	}
	b, err := eventboard.New(opts...)
	if err != nil {
		t.Fatalf("eventboard.New() error = %v", err)
	}
	if b.Port() != 8080 || b.PollingInterval() != 5*time.Second || b.MaxIndex() != 25 {
		t.Errorf("defaults = port %d, interval %v, max %d", b.Port(), b.PollingInterval(), b.MaxIndex())
	}
}

func TestMapToKeyValuePairs(t *testing.T) {
	got := mapToKeyValuePairs(map[string]string{"b": "2", "a": "1", "c": "3"})
	want := []string{"a", "1", "b", "2", "c", "3"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("mapToKeyValuePairs() = %v, want %v", got, want)
	}
}
