package config

import (
	"os"
	"time"

	"github.com/ccollicutt/fraglog/pkg/match"
	"github.com/ccollicutt/fraglog/pkg/parser"
)

// Default values for configuration.
const (
	DefaultMatchIDPrefix  = "match_"
	DefaultWebhookTimeout = 10 * time.Second
	DefaultSQLitePath     = "fraglog.db"
)

// Environment variable names.
const (
	EnvWorldEntity = "FRAGLOG_WORLD_ENTITY"
	EnvClockLayout = "FRAGLOG_CLOCK_LAYOUT"
)

// DefaultConfig returns the configuration for the stock server log.
func DefaultConfig() *Config {
	return &Config{
		LogSources: []string{},
		Markers: MarkerConfig{
			SessionStart: parser.DefaultSessionStart,
			SessionEnd:   append([]string(nil), parser.DefaultSessionEnd...),
		},
		KillPattern:   parser.DefaultKillPattern,
		WorldEntity:   match.DefaultWorldEntity,
		ClockLayout:   parser.DefaultClockLayout,
		MatchIDPrefix: DefaultMatchIDPrefix,
		TieBreak:      TieBreakFirstSeen,
		Store:         StoreConfig{Backend: StoreNone},
	}
}

// Default returns DefaultConfig after validation, ready for use without a file.
func Default() *Config {
	cfg := DefaultConfig()
	cfg.applyEnvironmentOverrides()
	if err := Validate(cfg); err != nil {
		// Environment overrides can break the defaults; fall back to stock values.
		cfg = DefaultConfig()
		_ = Validate(cfg)
	}
	return cfg
}

// applyEnvironmentOverrides applies environment variable overrides to the config.
func (c *Config) applyEnvironmentOverrides() {
	if world := os.Getenv(EnvWorldEntity); world != "" {
		c.WorldEntity = world
	}
	if layout := os.Getenv(EnvClockLayout); layout != "" {
		c.ClockLayout = layout
	}
}
