package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DurationOrDefault parses a duration string and falls back to defaultValue when empty.
func DurationOrDefault(value string, defaultValue string) (time.Duration, error) {
	candidate := strings.TrimSpace(value)
	if candidate == "" {
		candidate = strings.TrimSpace(defaultValue)
	}
	if candidate == "" {
		return 0, fmt.Errorf("duration value is empty")
	}

	d, err := time.ParseDuration(candidate)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", candidate, err)
	}
	return d, nil
}

// MustDuration is DurationOrDefault for values already validated by Validate.
func MustDuration(value string, defaultValue string) time.Duration {
	d, err := DurationOrDefault(value, defaultValue)
	if err != nil {
		d, _ = time.ParseDuration(defaultValue)
	}
	return d
}

// expandPath resolves environment variables and the "~/" home shortcut.
func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}

	expanded := os.ExpandEnv(trimmed)
	if expanded == "~" || strings.HasPrefix(expanded, "~/") {
		home, err := os.UserHomeDir()
		if err != nil || home == "" {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		expanded = filepath.Join(home, strings.TrimPrefix(strings.TrimPrefix(expanded, "~"), "/"))
	}

	return filepath.Clean(expanded), nil
}

// Validate checks values that would otherwise fail late inside a component.
func (c *Config) Validate() error {
	durations := map[string]string{
		"server.read_timeout":      c.Server.ReadTimeout,
		"server.write_timeout":     c.Server.WriteTimeout,
		"chat.model_timeout":       c.Chat.ModelTimeout,
		"chat.tool_timeout":        c.Chat.ToolTimeout,
		"providers.cache.ttl":      c.Providers.Cache.TTL,
		"retention.max_age":        c.Retention.MaxAge,
		"daemon.stale_lock_ttl":    c.Daemon.StaleLockTTL,
		"adapters.slack.dedup_ttl": c.Adapters.Slack.DedupTTL,
	}
	for key, value := range durations {
		if strings.TrimSpace(value) == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
	}

	switch c.Providers.Cache.Backend {
	case "", "memory", "redis", "none":
	default:
		return fmt.Errorf("invalid providers.cache.backend %q (want memory, redis or none)", c.Providers.Cache.Backend)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	return nil
}
