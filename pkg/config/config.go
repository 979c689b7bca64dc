package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads and validates a configuration file.
func Load(_ context.Context, path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- user-provided config path is expected
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnvironmentOverrides()

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Validate checks a configuration for errors and compiles the kill pattern.
func Validate(cfg *Config) error {
	if err := validateMarkers(&cfg.Markers); err != nil {
		return fmt.Errorf("markers: %w", err)
	}

	if err := validateKillPattern(cfg); err != nil {
		return fmt.Errorf("kill_pattern: %w", err)
	}

	if strings.TrimSpace(cfg.WorldEntity) == "" {
		return errors.New("world_entity: must not be empty")
	}

	if cfg.ClockLayout == "" {
		return errors.New("clock_layout: layout is required")
	}

	switch cfg.TieBreak {
	case "":
		cfg.TieBreak = TieBreakFirstSeen
	case TieBreakFirstSeen, TieBreakName:
	default:
		return fmt.Errorf("tie_break: invalid value %q (must be first_seen or name)", cfg.TieBreak)
	}

	if err := validateStore(&cfg.Store); err != nil {
		return fmt.Errorf("store: %w", err)
	}

	for i := range cfg.Webhooks {
		if err := validateWebhook(&cfg.Webhooks[i]); err != nil {
			name := cfg.Webhooks[i].Name
			if name == "" {
				name = cfg.Webhooks[i].URL
			}
			return fmt.Errorf("webhooks[%d] (%s): %w", i, name, err)
		}
	}

	return nil
}

func validateMarkers(m *MarkerConfig) error {
	if m.SessionStart == "" {
		return errors.New("session_start is required")
	}
	if len(m.SessionEnd) == 0 {
		return errors.New("session_end needs at least one marker")
	}
	for i, marker := range m.SessionEnd {
		if marker == "" {
			return fmt.Errorf("session_end[%d] is empty", i)
		}
	}
	return nil
}

func validateKillPattern(cfg *Config) error {
	if cfg.KillPattern == "" {
		return errors.New("pattern is required")
	}

	re, err := regexp.Compile(cfg.KillPattern)
	if err != nil {
		return fmt.Errorf("invalid pattern: %w", err)
	}

	if re.NumSubexp() != 3 {
		return fmt.Errorf("pattern must have exactly 3 capture groups (killer, victim, cause), got %d", re.NumSubexp())
	}

	cfg.compiledKillPattern = re
	return nil
}

func validateStore(s *StoreConfig) error {
	switch s.Backend {
	case "":
		s.Backend = StoreNone
	case StoreNone:
	case StoreSQLite:
		if s.DSN == "" {
			s.DSN = DefaultSQLitePath
		}
	case StoreMySQL, StorePostgres:
		if s.DSN == "" {
			return fmt.Errorf("dsn is required for the %s backend", s.Backend)
		}
	default:
		return fmt.Errorf("invalid backend %q (must be none, sqlite, mysql, or postgres)", s.Backend)
	}
	s.DSN = expandEnvVar(s.DSN)
	return nil
}

func validateWebhook(wh *WebhookConfig) error {
	if wh.URL == "" {
		return errors.New("url is required")
	}

	u, err := url.Parse(wh.URL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}

	if u.Host == "" {
		return errors.New("url must have a host")
	}

	wh.Token = expandEnvVar(wh.Token)

	switch wh.Trigger {
	case "":
		wh.Trigger = WebhookTriggerOnCompleted
	case WebhookTriggerOnCompleted, WebhookTriggerAlways, WebhookTriggerNever:
	default:
		return fmt.Errorf("invalid trigger %q (must be on_completed, always, or never)", wh.Trigger)
	}

	if wh.Timeout <= 0 {
		wh.Timeout = DefaultWebhookTimeout
	}

	return nil
}

// expandEnvVar expands a value of the form ${VAR} or $VAR.
func expandEnvVar(s string) string {
	if s == "" {
		return s
	}

	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		return os.Getenv(s[2 : len(s)-1])
	}

	if strings.HasPrefix(s, "$") && !strings.HasPrefix(s, "${") {
		return os.Getenv(s[1:])
	}

	return s
}
