// Package config loads the gateway's environment-driven configuration once
// at boot and hands back a validated, immutable Config.
package config

import "time"

// Config is the umbrella configuration object passed to every package's
// constructor at startup. Built once by Initialize and never mutated.
type Config struct {
	Warehouse    WarehouseConfig
	AppDB        AppDBConfig
	LLM          LLMConfig
	Server       ServerConfig
	Conversation ConversationConfig
	Execution    ExecutionConfig
	Sanitizer    SanitizerConfig
	Features     FeatureFlags
}

// WarehouseConfig describes the read-only analytics warehouse connection.
type WarehouseConfig struct {
	Dialect          string // "postgres" — only dialect this implementation targets
	DSN              string
	MaxConns         int32
	StatementTimeout time.Duration
}

// AppDBConfig describes the gateway's own persisted-state database
// (feedback, corrections, golden examples, evaluation metrics). Empty DSN
// means pkg/store is disabled and the pipeline runs without it.
type AppDBConfig struct {
	DSN string
}

// Enabled reports whether the gateway owns a persisted-state database.
func (c AppDBConfig) Enabled() bool {
	return c.DSN != ""
}

// LLMConfig describes the HTTP chat-completions backend used by the SQL
// generator, intent router's LLM fallback, and insight generator.
type LLMConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Timeout     time.Duration
	MaxRetries  int
	Temperature float64
}

// ServerConfig describes the HTTP boundary.
type ServerConfig struct {
	Addr            string
	AdminAPIKey     string // empty enables dev-mode (no auth enforced)
	AllowedOrigins  []string
	RequestBodyCap  int64
}

// ConversationConfig bounds the in-memory conversation store.
type ConversationConfig struct {
	HistoryCap   int           // max messages retained per session
	TTL          time.Duration // idle time before a session is reaped
	ReapInterval time.Duration
}

// ExecutionConfig bounds warehouse query execution.
type ExecutionConfig struct {
	RowCap       int
	QueryTimeout time.Duration
}

// SanitizerConfig drives small-cell suppression and PII masking.
type SanitizerConfig struct {
	SmallCellColumns  []string // column names subject to suppression when low-count
	SmallCellMin      int
	SmallCellMax      int
	SmallCellSentinel string
}

// FeatureFlags holds the template-path and legacy-fallback switches. They
// are loaded, logged at boot and reported by Stats; no pipeline stage reads
// them, so the SQL generator always tries the template library first and
// falls back to the LLM whenever an oracle is configured, whatever their
// values.
type FeatureFlags struct {
	TemplatePathEnabled    bool
	LegacyFallbackEnabled  bool
}

// ConfigStats summarizes loaded configuration.
type ConfigStats struct {
	TemplatePathEnabled   bool
	LegacyFallbackEnabled bool
	StoreEnabled          bool
}

// Stats returns a snapshot suitable for logging/health reporting.
func (c *Config) Stats() ConfigStats {
	return ConfigStats{
		TemplatePathEnabled:   c.Features.TemplatePathEnabled,
		LegacyFallbackEnabled: c.Features.LegacyFallbackEnabled,
		StoreEnabled:          c.AppDB.Enabled(),
	}
}
