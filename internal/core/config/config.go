package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"warnboard/internal/engine/trend"

	"github.com/BurntSushi/toml"
)

const DefaultPath = "./warnboard.toml"

type Config struct {
	Version       int           `toml:"version"`
	Server        Server        `toml:"server"`
	DB            Database      `toml:"db"`
	Chart         trend.Config  `toml:"chart"`
	Tables        Tables        `toml:"tables"`
	Jobs          Jobs          `toml:"jobs"`
	RateLimit     RateLimit     `toml:"rate_limit"`
	Observability Observability `toml:"observability"`
	UI            UI            `toml:"ui"`
	Inbox         Inbox         `toml:"inbox"`
}

type Server struct {
	Address         string        `toml:"address"`
	ReadTimeout     time.Duration `toml:"read_timeout"`
	WriteTimeout    time.Duration `toml:"write_timeout"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
	MaxBodyBytes    int64         `toml:"max_body_bytes"`
	TrustProxy      bool          `toml:"trust_proxy"`
}

type Database struct {
	Path        string        `toml:"path"`
	BusyTimeout time.Duration `toml:"busy_timeout"`
}

// Tables holds the defaults of the issue table endpoint.
type Tables struct {
	DefaultCategory string `toml:"default_category"`
	DefaultGroupBy  string `toml:"default_group_by"`
}

// Jobs restricts which stored jobs are listed. Patterns use glob syntax with '/' as
// separator, so "team/*" does not match "team/sub/job".
type Jobs struct {
	Include []string `toml:"include"`
	Exclude []string `toml:"exclude"`
}

type RateLimit struct {
	Enabled           bool          `toml:"enabled"`
	RequestsPerSecond float64       `toml:"requests_per_second"`
	Burst             int           `toml:"burst"`
	ClientTTL         time.Duration `toml:"client_ttl"`
}

type Observability struct {
	EnableMetrics bool    `toml:"enable_metrics"`
	EnableTracing bool    `toml:"enable_tracing"`
	OTLPEndpoint  string  `toml:"otlp_endpoint"`
	OTLPInsecure  bool    `toml:"otlp_insecure"`
	ServiceName   string  `toml:"service_name"`
	SampleRatio   float64 `toml:"sample_ratio"`
}

// Inbox lists directories watched for dropped snapshot files while serving.
type Inbox struct {
	Dirs           []string      `toml:"dirs"`
	Exclude        []string      `toml:"exclude"`
	Debounce       time.Duration `toml:"debounce"`
	QueueCapacity  int           `toml:"queue_capacity"`
	ImportExisting bool          `toml:"import_existing"`
}

type UI struct {
	LogFile string `toml:"log_file"`
	MaxRows int    `toml:"max_rows"`
}

// Load reads path, applies defaults and environment overrides, then validates.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(string(data))
}

func Parse(data string) (*Config, error) {
	var cfg Config
	md, err := toml.Decode(data, &cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}

	applyDefaults(&cfg, md)
	ApplyEnvOverrides(&cfg)

	if errs := Validate(&cfg); len(errs) > 0 {
		return nil, errs[0]
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg, toml.MetaData{})
	ApplyEnvOverrides(&cfg)
	return &cfg
}

func applyDefaults(cfg *Config, md toml.MetaData) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}

	if strings.TrimSpace(cfg.Server.Address) == "" {
		cfg.Server.Address = "127.0.0.1:8080"
	}
	if cfg.Server.ReadTimeout <= 0 {
		cfg.Server.ReadTimeout = 10 * time.Second
	}
	if cfg.Server.WriteTimeout <= 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		cfg.Server.ShutdownTimeout = 5 * time.Second
	}
	if cfg.Server.MaxBodyBytes <= 0 {
		cfg.Server.MaxBodyBytes = 32 << 20
	}

	if strings.TrimSpace(cfg.DB.Path) == "" {
		cfg.DB.Path = "data/warnboard.db"
	}
	if cfg.DB.BusyTimeout <= 0 {
		cfg.DB.BusyTimeout = 5 * time.Second
	}

	if !md.IsDefined("chart", "max_builds") && cfg.Chart.MaxBuilds == 0 {
		cfg.Chart.MaxBuilds = 50
	}

	if strings.TrimSpace(cfg.Tables.DefaultCategory) == "" {
		cfg.Tables.DefaultCategory = "outstanding"
	}
	if strings.TrimSpace(cfg.Tables.DefaultGroupBy) == "" {
		cfg.Tables.DefaultGroupBy = "severity"
	}

	if !md.IsDefined("rate_limit", "enabled") {
		cfg.RateLimit.Enabled = true
	}
	if cfg.RateLimit.RequestsPerSecond == 0 {
		cfg.RateLimit.RequestsPerSecond = 20
	}
	if cfg.RateLimit.Burst == 0 {
		cfg.RateLimit.Burst = 40
	}
	if cfg.RateLimit.ClientTTL <= 0 {
		cfg.RateLimit.ClientTTL = 10 * time.Minute
	}

	if !md.IsDefined("observability", "enable_metrics") {
		cfg.Observability.EnableMetrics = true
	}
	if strings.TrimSpace(cfg.Observability.ServiceName) == "" {
		cfg.Observability.ServiceName = "warnboard"
	}
	if cfg.Observability.SampleRatio == 0 {
		cfg.Observability.SampleRatio = 1
	}

	if strings.TrimSpace(cfg.UI.LogFile) == "" {
		cfg.UI.LogFile = "data/state/warnboard-tui.log"
	}
	if cfg.UI.MaxRows <= 0 {
		cfg.UI.MaxRows = 20
	}

	if !md.IsDefined("inbox", "exclude") && len(cfg.Inbox.Exclude) == 0 {
		cfg.Inbox.Exclude = []string{".*", "*.tmp", "*.part"}
	}
	if cfg.Inbox.Debounce <= 0 {
		cfg.Inbox.Debounce = 500 * time.Millisecond
	}
	if cfg.Inbox.QueueCapacity <= 0 {
		cfg.Inbox.QueueCapacity = 64
	}
	if !md.IsDefined("inbox", "import_existing") {
		cfg.Inbox.ImportExisting = true
	}
}
