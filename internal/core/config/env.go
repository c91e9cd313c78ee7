package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: WARNBOARD_[SECTION]_[KEY] (e.g., WARNBOARD_SERVER_ADDRESS).
func ApplyEnvOverrides(cfg *Config) {
	// Server
	setEnvString(&cfg.Server.Address, "WARNBOARD_SERVER_ADDRESS")
	setEnvDuration(&cfg.Server.ReadTimeout, "WARNBOARD_SERVER_READ_TIMEOUT")
	setEnvDuration(&cfg.Server.WriteTimeout, "WARNBOARD_SERVER_WRITE_TIMEOUT")
	setEnvBool(&cfg.Server.TrustProxy, "WARNBOARD_SERVER_TRUST_PROXY")

	// Database
	setEnvString(&cfg.DB.Path, "WARNBOARD_DB_PATH")
	setEnvDuration(&cfg.DB.BusyTimeout, "WARNBOARD_DB_BUSY_TIMEOUT")

	// Chart
	setEnvInt(&cfg.Chart.MaxBuilds, "WARNBOARD_CHART_MAX_BUILDS")
	setEnvInt(&cfg.Chart.MaxAgeDays, "WARNBOARD_CHART_MAX_AGE_DAYS")
	setEnvBool(&cfg.Chart.UseBuildLabel, "WARNBOARD_CHART_USE_BUILD_LABEL")

	// Rate limit
	setEnvBool(&cfg.RateLimit.Enabled, "WARNBOARD_RATE_LIMIT_ENABLED")
	setEnvFloat64(&cfg.RateLimit.RequestsPerSecond, "WARNBOARD_RATE_LIMIT_REQUESTS_PER_SECOND")
	setEnvInt(&cfg.RateLimit.Burst, "WARNBOARD_RATE_LIMIT_BURST")

	// Observability
	setEnvBool(&cfg.Observability.EnableMetrics, "WARNBOARD_OBSERVABILITY_ENABLE_METRICS")
	setEnvBool(&cfg.Observability.EnableTracing, "WARNBOARD_OBSERVABILITY_ENABLE_TRACING")
	setEnvString(&cfg.Observability.OTLPEndpoint, "WARNBOARD_OBSERVABILITY_OTLP_ENDPOINT")
	setEnvFloat64(&cfg.Observability.SampleRatio, "WARNBOARD_OBSERVABILITY_SAMPLE_RATIO")

	// Inbox
	setEnvDuration(&cfg.Inbox.Debounce, "WARNBOARD_INBOX_DEBOUNCE")
	setEnvBool(&cfg.Inbox.ImportExisting, "WARNBOARD_INBOX_IMPORT_EXISTING")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvFloat64(target *float64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = f
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
