package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Initialize loads .env (if present), reads environment variables, and
// returns a validated, ready-to-use Config. This is the primary entry point
// for configuration loading, called once from cmd/gatewayd/main.go.
func Initialize(_ context.Context) (*Config, error) {
	// godotenv.Load is a no-op error when .env doesn't exist in production —
	// deployments set real environment variables instead of shipping a file.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to load .env file, continuing with process environment", "error", err)
	}

	cfg, err := load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	slog.Info("Configuration initialized",
		"warehouse_dialect", cfg.Warehouse.Dialect,
		"store_enabled", cfg.AppDB.Enabled(),
		"template_path_enabled", cfg.Features.TemplatePathEnabled,
		"legacy_fallback_enabled", cfg.Features.LegacyFallbackEnabled)

	return cfg, nil
}

func load() (*Config, error) {
	cfg := &Config{
		Warehouse: WarehouseConfig{
			Dialect:          getEnv("WAREHOUSE_DIALECT", "postgres"),
			DSN:              getEnv("WAREHOUSE_DSN", ""),
			MaxConns:         int32(getEnvInt("WAREHOUSE_MAX_CONNS", 10)),
			StatementTimeout: getEnvDuration("WAREHOUSE_STATEMENT_TIMEOUT", 10*time.Second),
		},
		AppDB: AppDBConfig{
			DSN: getEnv("APP_DB_DSN", ""),
		},
		LLM: LLMConfig{
			BaseURL:     getEnv("LLM_BASE_URL", ""),
			APIKey:      getEnv("LLM_API_KEY", ""),
			Model:       getEnv("LLM_MODEL", "llama-3.3-70b-versatile"),
			Timeout:     getEnvDuration("LLM_TIMEOUT", 30*time.Second),
			MaxRetries:  getEnvInt("LLM_MAX_RETRIES", 3),
			Temperature: getEnvFloat("LLM_TEMPERATURE", 0.2),
		},
		Server: ServerConfig{
			Addr:           getEnv("SERVER_ADDR", ":8080"),
			AdminAPIKey:    getEnv("ADMIN_API_KEY", ""),
			AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", nil),
			RequestBodyCap: int64(getEnvInt("SERVER_BODY_LIMIT_BYTES", 1<<20)),
		},
		Conversation: ConversationConfig{
			HistoryCap:   getEnvInt("CONVERSATION_HISTORY_CAP", 20),
			TTL:          getEnvDuration("CONVERSATION_TTL", 30*time.Minute),
			ReapInterval: getEnvDuration("CONVERSATION_REAP_INTERVAL", 5*time.Minute),
		},
		Execution: ExecutionConfig{
			RowCap:       getEnvInt("EXECUTION_ROW_CAP", 1000),
			QueryTimeout: getEnvDuration("EXECUTION_QUERY_TIMEOUT", 15*time.Second),
		},
		Sanitizer: SanitizerConfig{
			SmallCellColumns:  getEnvList("SANITIZER_SMALL_CELL_COLUMNS", []string{"count", "total", "claim_count", "patient_count"}),
			SmallCellMin:      getEnvInt("SANITIZER_SMALL_CELL_MIN", 1),
			SmallCellMax:      getEnvInt("SANITIZER_SMALL_CELL_MAX", 4),
			SmallCellSentinel: getEnv("SANITIZER_SMALL_CELL_SENTINEL", "<5"),
		},
		Features: FeatureFlags{
			TemplatePathEnabled:   getEnvBool("FEATURE_TEMPLATE_PATH", true),
			LegacyFallbackEnabled: getEnvBool("FEATURE_LLM_FALLBACK", true),
		},
	}

	return cfg, nil
}

// validate performs eager, fail-fast checks on loaded configuration so
// misconfiguration surfaces at boot rather than on the first request.
func validate(cfg *Config) error {
	var errs []error

	if cfg.Warehouse.DSN == "" {
		errs = append(errs, newFieldError("WAREHOUSE_DSN", ErrMissingRequiredField))
	}
	if cfg.Warehouse.Dialect != "postgres" {
		errs = append(errs, newFieldError("WAREHOUSE_DIALECT", fmt.Errorf("%w: only \"postgres\" is supported", ErrInvalidValue)))
	}
	if cfg.LLM.BaseURL == "" {
		errs = append(errs, newFieldError("LLM_BASE_URL", ErrMissingRequiredField))
	}
	if cfg.Execution.RowCap <= 0 {
		errs = append(errs, newFieldError("EXECUTION_ROW_CAP", fmt.Errorf("%w: must be positive", ErrInvalidValue)))
	}
	if cfg.Sanitizer.SmallCellMin < 0 || cfg.Sanitizer.SmallCellMax < cfg.Sanitizer.SmallCellMin {
		errs = append(errs, newFieldError("SANITIZER_SMALL_CELL_MIN/MAX", fmt.Errorf("%w: min must be >= 0 and <= max", ErrInvalidValue)))
	}
	if cfg.Server.AdminAPIKey == "" {
		slog.Warn("ADMIN_API_KEY not set — running in dev mode, all requests accepted without authentication")
	}

	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("Invalid integer env var, using fallback", "key", key, "value", v, "fallback", fallback)
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		slog.Warn("Invalid float env var, using fallback", "key", key, "value", v, "fallback", fallback)
		return fallback
	}
	return f
}

func getEnvBool(key string, fallback bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("Invalid bool env var, using fallback", "key", key, "value", v, "fallback", fallback)
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("Invalid duration env var, using fallback", "key", key, "value", v, "fallback", fallback)
		return fallback
	}
	return d
}

func getEnvList(key string, fallback []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
