// Package config loads process configuration from config.yaml and the
// environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full process configuration.
type Config struct {
	Symbol   string      `mapstructure:"symbol"`
	LogLevel string      `mapstructure:"log_level"`
	Feeds    FeedsConfig `mapstructure:"feeds"`
	Book     BookConfig  `mapstructure:"book"`
	HTTP     HTTPConfig  `mapstructure:"http"`
}

// FeedConfig configures one exchange adapter.
type FeedConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"` // empty means the exchange default
}

// FeedsConfig configures the feed pipeline.
type FeedsConfig struct {
	// ChannelCapacity bounds the shared update channel between the adapters
	// and the aggregator.
	ChannelCapacity int        `mapstructure:"channel_capacity"`
	Binance         FeedConfig `mapstructure:"binance"`
	Coinbase        FeedConfig `mapstructure:"coinbase"`
	Kraken          FeedConfig `mapstructure:"kraken"`
}

// BookConfig carries the order book tunables; both are injected at book
// construction rather than read from process-wide state.
type BookConfig struct {
	RetryBatchSize int `mapstructure:"retry_batch_size"`
	MaxSweepLevels int `mapstructure:"max_sweep_levels"`
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr returns the listen address.
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Load reads config.yaml (optional) and BOOKFEED_* environment overrides.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/bookfeed")
	v.SetEnvPrefix("BOOKFEED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// The file is optional; defaults plus env must be enough.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("symbol", "BTC/USD")
	v.SetDefault("log_level", "info")

	v.SetDefault("feeds.channel_capacity", 256)
	v.SetDefault("feeds.binance.enabled", true)
	v.SetDefault("feeds.coinbase.enabled", true)
	v.SetDefault("feeds.kraken.enabled", true)

	v.SetDefault("book.retry_batch_size", 4)
	v.SetDefault("book.max_sweep_levels", 1)

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", 10*time.Second)
	v.SetDefault("http.write_timeout", 10*time.Second)
	v.SetDefault("http.shutdown_timeout", 15*time.Second)
}

// Validate rejects configurations the process cannot run with.
func (c *Config) Validate() error {
	if c.Symbol == "" {
		return fmt.Errorf("config: symbol must not be empty")
	}
	if c.Feeds.ChannelCapacity <= 0 {
		return fmt.Errorf("config: feeds.channel_capacity must be positive")
	}
	if c.Book.RetryBatchSize <= 0 {
		return fmt.Errorf("config: book.retry_batch_size must be positive")
	}
	if c.Book.MaxSweepLevels <= 0 {
		return fmt.Errorf("config: book.max_sweep_levels must be positive")
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("config: http.port out of range: %d", c.HTTP.Port)
	}
	return nil
}
