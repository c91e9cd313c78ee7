package config

import (
	"fmt"
	"net"
	"strings"

	"warnboard/internal/core/model"

	"github.com/gobwas/glob"
)

// Validate returns every problem found in cfg, in section order.
func Validate(cfg *Config) []error {
	var errs []error
	errs = append(errs, validateVersion(cfg)...)
	errs = append(errs, validateServer(cfg)...)
	errs = append(errs, validateDatabase(cfg)...)
	errs = append(errs, validateChart(cfg)...)
	errs = append(errs, validateTables(cfg)...)
	errs = append(errs, validateJobs(cfg)...)
	errs = append(errs, validateRateLimit(cfg)...)
	errs = append(errs, validateObservability(cfg)...)
	errs = append(errs, validateInbox(cfg)...)
	return errs
}

func validateVersion(cfg *Config) []error {
	if cfg.Version < 1 {
		return []error{fmt.Errorf("version must be >= 1, got %d", cfg.Version)}
	}
	if cfg.Version > 1 {
		return []error{fmt.Errorf("unsupported config version %d; supported version is 1", cfg.Version)}
	}
	return nil
}

func validateServer(cfg *Config) []error {
	var errs []error
	if _, _, err := net.SplitHostPort(cfg.Server.Address); err != nil {
		errs = append(errs, fmt.Errorf("server.address %q must be host:port: %v", cfg.Server.Address, err))
	}
	if cfg.Server.MaxBodyBytes < 0 {
		errs = append(errs, fmt.Errorf("server.max_body_bytes must not be negative"))
	}
	return errs
}

func validateDatabase(cfg *Config) []error {
	if strings.TrimSpace(cfg.DB.Path) == "" {
		return []error{fmt.Errorf("db.path must not be empty")}
	}
	return nil
}

func validateChart(cfg *Config) []error {
	var errs []error
	if cfg.Chart.MaxBuilds < 0 {
		errs = append(errs, fmt.Errorf("chart.max_builds must be >= 0, got %d", cfg.Chart.MaxBuilds))
	}
	if cfg.Chart.MaxAgeDays < 0 {
		errs = append(errs, fmt.Errorf("chart.max_age_days must be >= 0, got %d", cfg.Chart.MaxAgeDays))
	}
	return errs
}

func validateTables(cfg *Config) []error {
	var errs []error
	if _, err := model.ParseCategory(cfg.Tables.DefaultCategory); err != nil {
		errs = append(errs, fmt.Errorf("tables.default_category: %w", err))
	}
	if _, err := model.ParseGroupBy(cfg.Tables.DefaultGroupBy); err != nil {
		errs = append(errs, fmt.Errorf("tables.default_group_by: %w", err))
	}
	return errs
}

func validateJobs(cfg *Config) []error {
	var errs []error
	check := func(section string, patterns []string) {
		for i, p := range patterns {
			if strings.TrimSpace(p) == "" {
				errs = append(errs, fmt.Errorf("jobs.%s[%d] must not be empty", section, i))
				continue
			}
			if _, err := glob.Compile(p, '/'); err != nil {
				errs = append(errs, fmt.Errorf("jobs.%s[%d] %q is not a valid pattern: %v", section, i, p, err))
			}
		}
	}
	check("include", cfg.Jobs.Include)
	check("exclude", cfg.Jobs.Exclude)
	return errs
}

func validateRateLimit(cfg *Config) []error {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	var errs []error
	if cfg.RateLimit.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("rate_limit.requests_per_second must not be negative"))
	}
	if cfg.RateLimit.Burst < 1 {
		errs = append(errs, fmt.Errorf("rate_limit.burst must be >= 1, got %d", cfg.RateLimit.Burst))
	}
	return errs
}

func validateObservability(cfg *Config) []error {
	var errs []error
	if cfg.Observability.SampleRatio < 0 || cfg.Observability.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("observability.sample_ratio must be within [0, 1], got %v", cfg.Observability.SampleRatio))
	}
	if cfg.Observability.EnableTracing && strings.TrimSpace(cfg.Observability.OTLPEndpoint) == "" {
		errs = append(errs, fmt.Errorf("observability.otlp_endpoint must be set when enable_tracing=true"))
	}
	return errs
}

func validateInbox(cfg *Config) []error {
	var errs []error
	for i, dir := range cfg.Inbox.Dirs {
		if strings.TrimSpace(dir) == "" {
			errs = append(errs, fmt.Errorf("inbox.dirs[%d] must not be empty", i))
		}
	}
	for i, p := range cfg.Inbox.Exclude {
		if _, err := glob.Compile(p); err != nil {
			errs = append(errs, fmt.Errorf("inbox.exclude[%d] %q is not a valid pattern: %v", i, p, err))
		}
	}
	return errs
}
