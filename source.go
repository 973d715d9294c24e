package eventboard

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Source is an upstream JSON endpoint polled by a [Board].
//
// Source is immutable after creation via [NewSource]. Getters return copies
// of mutable data.
type Source struct {
	url     string
	headers map[string]string
	timeout time.Duration
}

// URL returns the source's target URL.
func (s Source) URL() string {
	return s.url
}

// Headers returns a copy of the headers sent with every request, or nil.
func (s Source) Headers() map[string]string {
	return copyMap(s.headers)
}

// Timeout returns the per-request timeout. Zero means requests are bounded
// only by the HTTP transport.
func (s Source) Timeout() time.Duration {
	return s.timeout
}

// sourceConfig holds mutable state during Source construction.
type sourceConfig struct {
	headers map[string]string
	timeout time.Duration
}

// SourceOption configures a [Source] during construction.
type SourceOption func(*sourceConfig) error

// WithHeaders adds HTTP headers to every request made to the source.
//
// Accepts variadic key-value pairs; the number of arguments must be even.
//
//	src, err := eventboard.NewSource(url,
//	    eventboard.WithHeaders("Authorization", "Bearer token123"),
//	)
func WithHeaders(keyValues ...string) SourceOption {
	return func(cfg *sourceConfig) error {
		if len(keyValues)%2 != 0 {
			return errors.New("WithHeaders requires an even number of arguments (key-value pairs)")
		}
		for i := 0; i < len(keyValues); i += 2 {
			cfg.headers[keyValues[i]] = keyValues[i+1]
		}
		return nil
	}
}

// WithTimeout bounds each request to the source. Without it no timeout is
// applied beyond the transport's own.
//
// Returns an error if the duration is zero or negative.
func WithTimeout(d time.Duration) SourceOption {
	return func(cfg *sourceConfig) error {
		if d <= 0 {
			return errors.New("timeout must be positive")
		}
		cfg.timeout = d
		return nil
	}
}

// NewSource creates a [Source] for rawURL, which must be an absolute http or
// https URL. Event sources may carry their own query parameters; the board
// adds "index" on every request.
//
//	stats, err := eventboard.NewSource("http://localhost:8100/stats")
func NewSource(rawURL string, opts ...SourceOption) (Source, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return Source{}, fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return Source{}, fmt.Errorf("URL must use http or https, got %q", rawURL)
	}
	if parsed.Host == "" {
		return Source{}, fmt.Errorf("URL must have a host, got %q", rawURL)
	}

	cfg := &sourceConfig{headers: make(map[string]string)}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return Source{}, err
		}
	}

	var headers map[string]string
	if len(cfg.headers) > 0 {
		headers = cfg.headers
	}

	return Source{
		url:     rawURL,
		headers: headers,
		timeout: cfg.timeout,
	}, nil
}

// copyMap returns a shallow copy of the map.
func copyMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	cp := make(map[string]string, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
