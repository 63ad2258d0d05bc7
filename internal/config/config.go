package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPath names the environment variable that overrides DefaultPath.
const (
	EnvPath     = "STRATEGYLAB_CONFIG"
	DefaultPath = "config/strategylab.yaml"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for strategylab.
type Config struct {
	Storage    Storage    `yaml:"storage"`
	Server     Server     `yaml:"server"`
	Alpaca     Alpaca     `yaml:"alpaca"`
	Logging    Logging    `yaml:"logging"`
	MarketData MarketData `yaml:"market_data"`
	Backtest   Backtest   `yaml:"backtest"`
	Metrics    Metrics    `yaml:"metrics"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Server holds network listener configuration.
type Server struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	GRPCPort int    `yaml:"grpc_port"`
}

// Alpaca holds credentials and endpoints for the Alpaca APIs.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	BaseURL   string `yaml:"base_url"`
	DataURL   string `yaml:"data_url"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MarketData controls where historical bars come from.
type MarketData struct {
	Source          string        `yaml:"source"` // "alpaca" or "store"
	Market          string        `yaml:"market"`
	Feed            string        `yaml:"feed"`
	RateLimitPerMin int           `yaml:"rate_limit_per_min"`
	RetryAttempts   int           `yaml:"retry_attempts"`
	RetryDelay      time.Duration `yaml:"retry_delay"`
	CacheBars       bool          `yaml:"cache_bars"`
}

// Backtest holds run defaults and limits.
type Backtest struct {
	InitialBalance    float64       `yaml:"initial_balance"`
	Commission        float64       `yaml:"commission"`
	MaxPositionPct    float64       `yaml:"max_position_pct"`
	MaxConcurrentRuns int           `yaml:"max_concurrent_runs"`
	RunTimeout        time.Duration `yaml:"run_timeout"`
}

// Metrics configures the Prometheus endpoint.
type Metrics struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Default returns the configuration used for fields a file leaves unset.
func Default() *Config {
	return &Config{
		Storage: Storage{
			DataDir:    "data",
			SQLitePath: "data/strategylab.db",
		},
		Server: Server{
			Host:     "0.0.0.0",
			Port:     8080,
			GRPCPort: 9090,
		},
		Alpaca: Alpaca{
			BaseURL: "https://paper-api.alpaca.markets",
		},
		Logging: Logging{
			Level:  "info",
			Format: "json",
		},
		MarketData: MarketData{
			Source:          "alpaca",
			Market:          "us",
			Feed:            "iex",
			RateLimitPerMin: 200,
			RetryAttempts:   3,
			RetryDelay:      500 * time.Millisecond,
			CacheBars:       true,
		},
		Backtest: Backtest{
			InitialBalance:    10000,
			MaxPositionPct:    0.25,
			MaxConcurrentRuns: 4,
			RunTimeout:        2 * time.Minute,
		},
		Metrics: Metrics{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Path returns the config file location: $STRATEGYLAB_CONFIG if set,
// otherwise DefaultPath.
func Path() string {
	if v := os.Getenv(EnvPath); v != "" {
		return v
	}
	return DefaultPath
}

// Load reads the YAML configuration file at the given path over Default and
// then applies environment variable overrides. A missing file is not an
// error when path is DefaultPath.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case os.IsNotExist(err) && path == DefaultPath:
	default:
		return nil, err
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}

	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}

	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}

	if v := os.Getenv("ALPACA_BASE_URL"); v != "" {
		cfg.Alpaca.BaseURL = v
	}

	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Alpaca.DataURL = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	if v, err := strconv.Atoi(os.Getenv("HTTP_PORT")); err == nil && v > 0 {
		cfg.Server.Port = v
	}
	if v, err := strconv.Atoi(os.Getenv("GRPC_PORT")); err == nil && v > 0 {
		cfg.Server.GRPCPort = v
	}

	// Standard Alpaca env vars take priority; the SDK reads the same names.
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}

// HTTPAddr returns the REST listen address.
func (c *Config) HTTPAddr() string { return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port) }

// GRPCAddr returns the gRPC listen address.
func (c *Config) GRPCAddr() string { return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.GRPCPort) }
