// Package config defines all configuration for the backtesting core and its
// search driver. Config is loaded from a YAML file with sensitive-looking
// fields (none are actually secret here, but the historical provider's
// endpoint credentials follow the same override convention) overridable via
// CTABT_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"ctabacktest/pkg/types"
)

// Config is the top-level configuration. Maps directly to the YAML file structure.
type Config struct {
	Engine     EngineConfig     `mapstructure:"engine"`
	Historical HistoricalConfig `mapstructure:"historical"`
	Search     SearchConfig     `mapstructure:"search"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// EngineConfig configures a single backtest run.
type EngineConfig struct {
	VtSymbol string        `mapstructure:"vt_symbol"`
	Interval types.Interval `mapstructure:"interval"`
	Start    time.Time     `mapstructure:"start"`
	End      time.Time     `mapstructure:"end"`
	RateType types.RateType `mapstructure:"rate_type"`
	Rate     float64       `mapstructure:"rate"`
	Slippage float64       `mapstructure:"slippage"`
	Size     float64       `mapstructure:"size"`
	Pricetick float64      `mapstructure:"pricetick"`
	Capital  float64       `mapstructure:"capital"`
	Mode     types.Mode    `mapstructure:"mode"`
	Inverse  bool          `mapstructure:"inverse"`
}

// HistoricalConfig selects and configures the historical-data provider the
// engine pulls bars/ticks from. The core treats the provider purely as an
// interface; this struct only carries enough to
// construct one of the two reference providers in internal/historical.
type HistoricalConfig struct {
	Source  string `mapstructure:"source"` // "csv" or "rest"
	CSVPath string `mapstructure:"csv_path"`
	RestURL string `mapstructure:"rest_url"`
	ApiKey  string `mapstructure:"api_key"`
}

// SearchConfig tunes the grid-search and genetic-search drivers.
type SearchConfig struct {
	Target      string  `mapstructure:"target"`
	Workers     int     `mapstructure:"workers"`
	PopSize     int     `mapstructure:"pop_size"`
	Mu          int     `mapstructure:"mu"`
	CxProb      float64 `mapstructure:"cx_prob"`
	MutProb     float64 `mapstructure:"mut_prob"`
	Generations int     `mapstructure:"generations"`
	RandomSeed  int64   `mapstructure:"random_seed"`
}

// LoggingConfig controls the slog handler used across the CLI.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads config from a YAML file with env var overrides.
// CTABT_HISTORICAL_API_KEY overrides historical.api_key.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("CTABT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if key := os.Getenv("CTABT_HISTORICAL_API_KEY"); key != "" {
		cfg.Historical.ApiKey = key
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// applyDefaults fills in the search driver's GA defaults
// when the config file leaves them unset.
func applyDefaults(cfg *Config) {
	if cfg.Search.Workers <= 0 {
		cfg.Search.Workers = 1
	}
	if cfg.Search.PopSize <= 0 {
		cfg.Search.PopSize = 100
	}
	if cfg.Search.CxProb <= 0 {
		cfg.Search.CxProb = 0.95
	}
	if cfg.Search.MutProb <= 0 {
		cfg.Search.MutProb = 0.05
	}
	if cfg.Search.Generations <= 0 {
		cfg.Search.Generations = 30
	}
}

// Validate checks all required fields and value ranges.
func (c *Config) Validate() error {
	if c.Engine.VtSymbol == "" {
		return fmt.Errorf("engine.vt_symbol is required")
	}
	if c.Engine.End.Before(c.Engine.Start) {
		return fmt.Errorf("engine.end must not precede engine.start")
	}
	if c.Engine.Size <= 0 {
		return fmt.Errorf("engine.size must be > 0")
	}
	if c.Engine.Pricetick <= 0 {
		return fmt.Errorf("engine.pricetick must be > 0")
	}
	if c.Engine.Capital <= 0 {
		return fmt.Errorf("engine.capital must be > 0")
	}
	switch c.Historical.Source {
	case "csv":
		if c.Historical.CSVPath == "" {
			return fmt.Errorf("historical.csv_path is required when historical.source is csv")
		}
	case "rest":
		if c.Historical.RestURL == "" {
			return fmt.Errorf("historical.rest_url is required when historical.source is rest")
		}
	default:
		return fmt.Errorf("historical.source must be one of: csv, rest")
	}
	return nil
}
