// Package config provides configuration loading and validation for fraglog.
package config

import (
	"regexp"
	"time"
)

// Config is the root configuration structure loaded from YAML.
type Config struct {
	// LogSources are paths or globs read when no log is given on the command line.
	LogSources []string `yaml:"log_sources,omitempty"`

	Markers MarkerConfig `yaml:"markers"`

	// KillPattern captures killer, victim and cause, in that order.
	KillPattern string `yaml:"kill_pattern"`

	// WorldEntity is the killer name used for map hazards.
	WorldEntity string `yaml:"world_entity"`

	// ClockLayout is the Go time layout of the leading clock token.
	ClockLayout string `yaml:"clock_layout"`

	// MatchIDPrefix is prepended to the 1-based match ordinal.
	MatchIDPrefix string `yaml:"match_id_prefix"`

	// TieBreak orders players with equal totals: first_seen or name.
	TieBreak string `yaml:"tie_break"`

	Store    StoreConfig     `yaml:"store"`
	Webhooks []WebhookConfig `yaml:"webhooks,omitempty"`

	// compiledKillPattern is populated during validation.
	compiledKillPattern *regexp.Regexp
}

// MarkerConfig holds the substrings that delimit a session.
type MarkerConfig struct {
	SessionStart string   `yaml:"session_start"`
	SessionEnd   []string `yaml:"session_end"`
}

// CompiledKillPattern returns the pre-compiled kill regex.
func (c *Config) CompiledKillPattern() *regexp.Regexp {
	return c.compiledKillPattern
}

// Tie-break rules for the ranking.
const (
	TieBreakFirstSeen = "first_seen"
	TieBreakName      = "name"
)

// StoreBackend selects where report history is kept.
type StoreBackend string

const (
	StoreNone     StoreBackend = "none"
	StoreSQLite   StoreBackend = "sqlite"
	StoreMySQL    StoreBackend = "mysql"
	StorePostgres StoreBackend = "postgres"
)

// StoreConfig configures the report history store.
type StoreConfig struct {
	Backend StoreBackend `yaml:"backend"`

	// DSN is the connection string. For sqlite it is a file path and
	// defaults to DefaultSQLitePath.
	DSN string `yaml:"dsn,omitempty"`
}

// WebhookTrigger determines when a webhook fires.
type WebhookTrigger string

const (
	// WebhookTriggerOnCompleted fires when at least one match completed (default).
	WebhookTriggerOnCompleted WebhookTrigger = "on_completed"
	// WebhookTriggerAlways fires after every report.
	WebhookTriggerAlways WebhookTrigger = "always"
	// WebhookTriggerNever disables the webhook.
	WebhookTriggerNever WebhookTrigger = "never"
)

// WebhookConfig defines an endpoint that receives the JSON report.
type WebhookConfig struct {
	// Name is an optional identifier for the webhook.
	Name string `yaml:"name,omitempty"`

	// URL is the webhook endpoint (required).
	URL string `yaml:"url"`

	// Token is an optional bearer token for authentication.
	Token string `yaml:"token,omitempty"`

	// Trigger determines when the webhook fires.
	// Defaults to "on_completed" if not specified.
	Trigger WebhookTrigger `yaml:"trigger,omitempty"`

	// Timeout is the HTTP request timeout.
	// Defaults to 10s if not specified.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}
