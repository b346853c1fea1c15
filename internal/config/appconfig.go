package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// MetricsConfig controls the Prometheus scrape endpoint.
type MetricsConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// HealthConfig controls the liveness/readiness HTTP endpoint.
type HealthConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// TelemetryConfig controls the optional Redis-backed stats publisher.
type TelemetryConfig struct {
	Enabled      bool          `yaml:"enabled"`
	RedisAddr    string        `yaml:"redis_addr"`
	RedisDB      int           `yaml:"redis_db"`
	Interval     time.Duration `yaml:"interval"`
	HeartbeatTTL time.Duration `yaml:"heartbeat_ttl"`
}

// PoolRef points at the key=value pool config file to load.
type PoolRef struct {
	ConfigPath string `yaml:"config_path"`
}

// AppConfig is the root of the YAML-based ambient configuration: ports,
// telemetry, and logging. This is distinct from PoolConfig, which governs
// pool sizing and is loaded from a separate key=value format.
type AppConfig struct {
	Pool      PoolRef         `yaml:"pool"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Health    HealthConfig    `yaml:"health"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	LogLevel  string          `yaml:"log_level"`
}

// LoadAppConfig reads the process-level YAML configuration and fills in
// defaults for unset fields. Field values are not otherwise validated.
func LoadAppConfig(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading app config %s: %w", path, err)
	}

	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing app config %s: %w", path, err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *AppConfig) applyDefaults() {
	if c.Pool.ConfigPath == "" {
		c.Pool.ConfigPath = "configs/pool.conf"
	}
	if c.Metrics.ListenAddr == "" {
		c.Metrics.ListenAddr = ":9090"
	}
	if c.Health.ListenAddr == "" {
		c.Health.ListenAddr = ":8080"
	}
	if c.Telemetry.RedisAddr == "" {
		c.Telemetry.RedisAddr = "127.0.0.1:6379"
	}
	if c.Telemetry.Interval == 0 {
		c.Telemetry.Interval = 10 * time.Second
	}
	if c.Telemetry.HeartbeatTTL == 0 {
		c.Telemetry.HeartbeatTTL = 30 * time.Second
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}
