// Package common provides shared utilities for chartd
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for chartd
type Config struct {
	Environment string        `toml:"environment"`
	Symbols     []string      `toml:"symbols"` // symbols warmed at startup
	Server      ServerConfig  `toml:"server"`
	Storage     StorageConfig `toml:"storage"`
	Clients     ClientsConfig `toml:"clients"`
	Logging     LoggingConfig `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig holds configuration for the two storage tiers.
type StorageConfig struct {
	MySQL MySQLConfig `toml:"mysql"` // system of record
	Redis RedisConfig `toml:"redis"` // volatile query cache
}

// MySQLConfig holds relational store configuration.
type MySQLConfig struct {
	DSN             string `toml:"dsn"`
	MaxOpenConns    int    `toml:"max_open_conns"`
	MaxIdleConns    int    `toml:"max_idle_conns"`
	ConnMaxLifetime string `toml:"conn_max_lifetime"`
}

// GetConnMaxLifetime parses and returns the connection lifetime duration.
func (c *MySQLConfig) GetConnMaxLifetime() time.Duration {
	d, err := time.ParseDuration(c.ConnMaxLifetime)
	if err != nil {
		return time.Hour
	}
	return d
}

// RedisConfig holds cache configuration.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	FMP FMPConfig `toml:"fmp"`
}

// FMPConfig holds Financial Modeling Prep API configuration
type FMPConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *FMPConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Storage: StorageConfig{
			MySQL: MySQLConfig{
				DSN:             "chartd:chartd@tcp(localhost:3306)/chartd?charset=utf8mb4&parseTime=True&loc=UTC",
				MaxOpenConns:    25,
				MaxIdleConns:    5,
				ConnMaxLifetime: "1h",
			},
			Redis: RedisConfig{
				Addr: "localhost:6379",
			},
		},
		Clients: ClientsConfig{
			FMP: FMPConfig{
				BaseURL:   "https://financialmodelingprep.com/api/v3",
				RateLimit: 10,
				Timeout:   "30s",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("CHARTD_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("CHARTD_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("CHARTD_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("CHARTD_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if dsn := os.Getenv("CHARTD_MYSQL_DSN"); dsn != "" {
		config.Storage.MySQL.DSN = dsn
	}

	if addr := os.Getenv("CHARTD_REDIS_ADDR"); addr != "" {
		config.Storage.Redis.Addr = addr
	}

	if pw := os.Getenv("CHARTD_REDIS_PASSWORD"); pw != "" {
		config.Storage.Redis.Password = pw
	}

	if key := os.Getenv("FMP_API_KEY"); key != "" {
		config.Clients.FMP.APIKey = key
	}

	if symbols := os.Getenv("CHARTD_SYMBOLS"); symbols != "" {
		parts := strings.Split(symbols, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				cleaned = append(cleaned, strings.ToUpper(s))
			}
		}
		if len(cleaned) > 0 {
			config.Symbols = cleaned
		}
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
