package config

import (
	"fmt"
	"strings"
	"time"

	ferrors "git.home.luguber.info/inful/texbuild/internal/foundation/errors"
)

const maxPassesLimit = 10

// Validate checks cross-field constraints after defaults have been applied.
func (c *Config) Validate() error {
	var problems []string

	if c.TeX.MaxPasses < 1 || c.TeX.MaxPasses > maxPassesLimit {
		problems = append(problems, fmt.Sprintf("tex.max_passes must be between 1 and %d, got %d", maxPassesLimit, c.TeX.MaxPasses))
	}
	for _, p := range c.TeX.SearchPaths {
		if strings.TrimSpace(p) == "" {
			problems = append(problems, "tex.search_paths must not contain empty entries")
			break
		}
	}
	if c.Events.NATSURL != "" && strings.TrimSpace(c.Events.Subject) == "" {
		problems = append(problems, "events.subject is required when events.nats_url is set")
	}

	if r := c.Events.Retry.MaxRetries; r != nil && *r < 0 {
		problems = append(problems, fmt.Sprintf("events.retry.max_retries must not be negative, got %d", *r))
	}
	for _, f := range []struct{ name, raw string }{
		{"events.retry.initial", c.Events.Retry.Initial},
		{"events.retry.max", c.Events.Retry.Max},
	} {
		if d, err := time.ParseDuration(f.raw); err != nil || d <= 0 {
			problems = append(problems, fmt.Sprintf("%s must be a positive duration, got %q", f.name, f.raw))
		}
	}

	debounce, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil || debounce < 0 {
		problems = append(problems, fmt.Sprintf("watch.debounce must be a non-negative duration, got %q", c.Watch.Debounce))
	}
	interval, err := time.ParseDuration(c.Watch.Interval)
	if err != nil || interval < 0 {
		problems = append(problems, fmt.Sprintf("watch.interval must be a non-negative duration, got %q", c.Watch.Interval))
	} else if interval > 0 && interval < time.Second {
		problems = append(problems, fmt.Sprintf("watch.interval must be at least 1s when enabled, got %s", interval))
	}

	if len(problems) > 0 {
		return ferrors.ConfigError("configuration validation failed: " + strings.Join(problems, "; ")).
			WithContext("problems", problems).
			Build()
	}
	return nil
}
