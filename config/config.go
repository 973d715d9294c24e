// Package config loads EventBoard settings from a YAML file, for running the
// board as a standalone binary instead of through the SDK.
//
// Example configuration:
//
//	title: Audit Dashboard
//	port: 8080
//	poll_interval: 5s
//	max_index: 25
//
//	stats:
//	  url: http://localhost:8100/stats
//	  timeout: 5s
//
//	events:
//	  - category: sensor-data
//	    url: http://localhost:8110/sensor_data
//	  - category: user-command
//	    url: ${AUDIT_URL:-http://localhost:8110}/user_command
//	    headers:
//	      Authorization: Bearer ${AUDIT_TOKEN}
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"
	"unicode"

	"gopkg.in/yaml.v3"
)

const (
	// minPollInterval keeps a config file from hammering the upstream services.
	minPollInterval = 1 * time.Second

	defaultPort         = 8080
	defaultPollInterval = 5 * time.Second
	defaultMaxIndex     = 25
)

// Config is the root of the YAML configuration file.
//
// Use [Load] or [Parse] to create one.
type Config struct {
	// Title is the dashboard title. Defaults to "EventBoard".
	Title string `yaml:"title"`

	// Port is the HTTP server port. Defaults to 8080.
	Port int `yaml:"port"`

	// PollInterval is the period between poll rounds. Defaults to 5s.
	PollInterval Duration `yaml:"poll_interval"`

	// MaxIndex is the exclusive upper bound of the random event index.
	// Defaults to 25.
	MaxIndex int `yaml:"max_index"`

	// Stats is the statistics endpoint.
	Stats SourceConfig `yaml:"stats"`

	// Events lists one audit endpoint per category, in display order.
	Events []EventConfig `yaml:"events"`
}

// SourceConfig describes one upstream JSON endpoint.
type SourceConfig struct {
	// URL supports ${VAR} and ${VAR:-default} substitution.
	URL string `yaml:"url"`

	// Headers are sent with each request. Values support substitution.
	Headers map[string]string `yaml:"headers"`

	// Timeout bounds each request. Zero leaves it to the transport.
	Timeout Duration `yaml:"timeout"`
}

// EventConfig is an audit event endpoint for one category.
type EventConfig struct {
	// Category names the region, "event-<category>".
	Category string `yaml:"category"`

	SourceConfig `yaml:",inline"`
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// envVarPattern matches ${VAR} and ${VAR:-default}. Group 2 is non-empty
// when a default was given; group 3 is the default itself.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment values.
// An unset variable without a default is an error.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		sub := envVarPattern.FindStringSubmatch(match)
		name, hasDefault, def := sub[1], sub[2] != "", sub[3]

		if value, ok := os.LookupEnv(name); ok {
			return value
		}
		if hasDefault {
			return def
		}
		firstErr = fmt.Errorf("environment variable %q is not set", name)
		return match
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data, applies defaults, expands
// environment variables in URLs and header values, and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = Duration(defaultPollInterval)
	}
	if cfg.MaxIndex == 0 {
		cfg.MaxIndex = defaultMaxIndex
	}

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if c.PollInterval.Duration() < minPollInterval {
		return fmt.Errorf("poll_interval must be at least %s, got %s", minPollInterval, c.PollInterval.Duration())
	}
	if c.MaxIndex < 1 {
		return fmt.Errorf("max_index must be at least 1, got %d", c.MaxIndex)
	}

	if err := c.Stats.expandAndValidate("stats"); err != nil {
		return err
	}

	if len(c.Events) == 0 {
		return errors.New("at least one event source must be defined")
	}

	seen := make(map[string]bool, len(c.Events))
	for i := range c.Events {
		ev := &c.Events[i]

		if ev.Category == "" {
			return fmt.Errorf("events[%d]: category is required", i)
		}
		if strings.ContainsFunc(ev.Category, unicode.IsSpace) {
			return fmt.Errorf("events[%d]: category %q must not contain whitespace", i, ev.Category)
		}
		if seen[ev.Category] {
			return fmt.Errorf("events[%d]: duplicate category %q", i, ev.Category)
		}
		seen[ev.Category] = true

		if err := ev.expandAndValidate(fmt.Sprintf("events[%d] (%s)", i, ev.Category)); err != nil {
			return err
		}
	}

	return nil
}

// expandAndValidate expands and checks one source; where prefixes errors.
func (s *SourceConfig) expandAndValidate(where string) error {
	if s.URL == "" {
		return fmt.Errorf("%s: url is required", where)
	}
	expanded, err := expandEnvVars(s.URL)
	if err != nil {
		return fmt.Errorf("%s: url: %w", where, err)
	}
	s.URL = expanded

	parsed, err := url.Parse(s.URL)
	if err != nil {
		return fmt.Errorf("%s: invalid url: %w", where, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s: url scheme must be http or https, got %q", where, parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s: url must have a host", where)
	}

	for k, v := range s.Headers {
		expanded, err := expandEnvVars(v)
		if err != nil {
			return fmt.Errorf("%s: headers[%s]: %w", where, k, err)
		}
		s.Headers[k] = expanded
	}

	if s.Timeout < 0 {
		return fmt.Errorf("%s: timeout cannot be negative, got %s", where, s.Timeout.Duration())
	}
	if s.Timeout != 0 && s.Timeout.Duration() < time.Second {
		return fmt.Errorf("%s: timeout must be at least 1s if specified, got %s", where, s.Timeout.Duration())
	}

	return nil
}
