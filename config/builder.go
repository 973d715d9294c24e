package config

import (
	"fmt"
	"sort"

	"github.com/jpalmerr/eventboard"
)

// BuildOptions converts a parsed configuration into SDK options for
// [eventboard.New]. Callers append their own options, such as a logger.
func BuildOptions(cfg *Config) ([]eventboard.Option, error) {
	stats, err := buildSource(cfg.Stats)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}

	opts := []eventboard.Option{
		eventboard.WithStatsSource(stats),
		eventboard.WithPort(cfg.Port),
		eventboard.WithPollingInterval(cfg.PollInterval.Duration()),
		eventboard.WithMaxIndex(cfg.MaxIndex),
	}
	if cfg.Title != "" {
		opts = append(opts, eventboard.WithTitle(cfg.Title))
	}

	for i, ev := range cfg.Events {
		src, err := buildSource(ev.SourceConfig)
		if err != nil {
			return nil, fmt.Errorf("events[%d] (%s): %w", i, ev.Category, err)
		}
		opts = append(opts, eventboard.WithEventSource(ev.Category, src))
	}

	return opts, nil
}

// buildSource converts a SourceConfig to an SDK Source.
func buildSource(sc SourceConfig) (eventboard.Source, error) {
	var opts []eventboard.SourceOption

	if sc.Timeout != 0 {
		opts = append(opts, eventboard.WithTimeout(sc.Timeout.Duration()))
	}
	if len(sc.Headers) > 0 {
		opts = append(opts, eventboard.WithHeaders(mapToKeyValuePairs(sc.Headers)...))
	}

	return eventboard.NewSource(sc.URL, opts...)
}

// mapToKeyValuePairs flattens a map into key-value pairs sorted by key.
func mapToKeyValuePairs(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(m)*2)
	for _, k := range keys {
		pairs = append(pairs, k, m[k])
	}
	return pairs
}
