// Package config loads the v3sim command line configuration.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. V3SIM_LOG_LEVEL.
const EnvPrefix = "V3SIM"

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type QuoterConfig struct {
	Concurrency int `mapstructure:"concurrency"`
	CacheSize   int `mapstructure:"cache_size"`
	MaxHops     int `mapstructure:"max_hops"`
	MaxResults  int `mapstructure:"max_results"`
}

// Config is the full command line configuration.
type Config struct {
	Log      LogConfig    `mapstructure:"log"`
	Snapshot string       `mapstructure:"snapshot"`
	Quoter   QuoterConfig `mapstructure:"quoter"`
	// SlippageBips is the default slippage tolerance, in basis points.
	SlippageBips int64 `mapstructure:"slippage_bips"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("snapshot", "snapshot.json")
	v.SetDefault("quoter.concurrency", 8)
	v.SetDefault("quoter.cache_size", 256)
	v.SetDefault("quoter.max_hops", 3)
	v.SetDefault("quoter.max_results", 3)
	v.SetDefault("slippage_bips", 50)
}

// LoadConfig loads configuration in priority order: defaults, the file at path (skipped when
// path is empty), then V3SIM_ environment variables.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	if c.Quoter.Concurrency <= 0 {
		return errors.New("quoter.concurrency must be positive")
	}
	if c.Quoter.CacheSize <= 0 {
		return errors.New("quoter.cache_size must be positive")
	}
	if c.Quoter.MaxHops <= 0 || c.Quoter.MaxResults <= 0 {
		return errors.New("quoter.max_hops and quoter.max_results must be positive")
	}
	if c.SlippageBips < 0 || c.SlippageBips > 10_000 {
		return fmt.Errorf("slippage_bips must be within [0, 10000], got %d", c.SlippageBips)
	}
	return nil
}

func parseLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return l, nil
}

// NewLogger builds the root logger writing to w.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, _ := parseLevel(c.Log.Level)
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
