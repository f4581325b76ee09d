// Package config loads server configuration from YAML with env overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the runtime configuration shared by the commands.
// Precedence: command-line flags > environment > YAML file > defaults.
type Config struct {
	// HTTPAddr is the listen address for the API server.
	HTTPAddr string `yaml:"http_addr"`

	// PostgresDSN is the connection string for the document store.
	PostgresDSN string `yaml:"postgres_dsn"`

	// ClickhouseDSN is the connection string for the line-item store.
	ClickhouseDSN string `yaml:"clickhouse_dsn"`

	// RefreshInterval is how often the aggregated view is rebuilt and
	// broadcast to stream subscribers.
	RefreshInterval time.Duration `yaml:"refresh_interval"`

	// PageSize is the default page size for grouped product listings.
	PageSize int `yaml:"page_size"`

	// MetricsNamespace overrides the Prometheus metrics namespace.
	MetricsNamespace string `yaml:"metrics_namespace"`
}

// Default returns the configuration defaults.
func Default() Config {
	return Config{
		HTTPAddr:        ":8080",
		RefreshInterval: 30 * time.Second,
		PageSize:        20,
	}
}

// Load reads the YAML file at path, if any, and applies env overrides.
// An empty path skips the file and uses defaults plus environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overrides fields from environment variables.
func applyEnv(cfg *Config) {
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		cfg.PostgresDSN = v
	}
	if v := os.Getenv("CLICKHOUSE_DSN"); v != "" {
		cfg.ClickhouseDSN = v
	}
	if v := os.Getenv("REFRESH_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.RefreshInterval = d
		}
	}
	if v := os.Getenv("PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.PageSize = n
		}
	}
	if v := os.Getenv("METRICS_NAMESPACE"); v != "" {
		cfg.MetricsNamespace = v
	}
}

func (c Config) validate() error {
	if c.HTTPAddr == "" {
		return fmt.Errorf("http_addr must not be empty")
	}
	if c.RefreshInterval <= 0 {
		return fmt.Errorf("refresh_interval must be positive, got %s", c.RefreshInterval)
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("page_size must be positive, got %d", c.PageSize)
	}
	return nil
}
