package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Engine  EngineConfig  `mapstructure:"engine"`
	Feed    FeedConfig    `mapstructure:"feed"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type ServerConfig struct {
	Port            int `mapstructure:"port"`
	StreamIntervalS int `mapstructure:"stream_interval_s"`
}

type EngineConfig struct {
	RiskFreeRate         float64 `mapstructure:"risk_free_rate"`
	MarginReferencePrice float64 `mapstructure:"margin_reference_price"`
	// ImpliedVolatilities seeds the flat volatility surface, keyed by
	// underlying.
	ImpliedVolatilities map[string]float64 `mapstructure:"implied_volatilities"`
}

type FeedConfig struct {
	// Enabled switches on the synthetic quote generator. Turn off when an
	// external caller pushes real snapshots.
	Enabled bool `mapstructure:"enabled"`
	// SnapshotsPerSecond paces the generator.
	SnapshotsPerSecond float64 `mapstructure:"snapshots_per_second"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func Load(configPath string) (*Config, error) {
	// A local .env may carry overrides; absence is fine.
	_ = godotenv.Load()

	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/thv-engine")
	}

	v.SetEnvPrefix("THV")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; use defaults and environment
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&config)

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.stream_interval_s", 2)

	// Engine defaults
	v.SetDefault("engine.risk_free_rate", 0.06)
	v.SetDefault("engine.margin_reference_price", 100.0)
	v.SetDefault("engine.implied_volatilities", map[string]float64{
		"NIFTY":     0.15,
		"BANKNIFTY": 0.18,
		"FINNIFTY":  0.16,
	})

	// Feed defaults
	v.SetDefault("feed.enabled", true)
	v.SetDefault("feed.snapshots_per_second", 2.0)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

func overrideFromEnv(config *Config) {
	if port := os.Getenv("THV_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if rate := os.Getenv("THV_RISK_FREE_RATE"); rate != "" {
		if r, err := strconv.ParseFloat(rate, 64); err == nil {
			config.Engine.RiskFreeRate = r
		}
	}
	if enabled := os.Getenv("THV_FEED_ENABLED"); enabled != "" {
		config.Feed.Enabled = enabled == "true"
	}
}
