// Package config handles loading and validating pool and process
// configuration. PoolConfig follows a key=value file format; AppConfig
// follows the YAML shape this project's ambient tooling (metrics, health,
// telemetry) expects.
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/polaris-dbpool/dbpool/internal/mysqlconn"
)

// PoolConfig holds the immutable, process-lifetime parameters of a single
// connection pool.
type PoolConfig struct {
	Name string

	Endpoint    mysqlconn.Endpoint
	Credentials mysqlconn.Credentials

	InitSize       int
	MaxSize        int
	MaxIdleTime    time.Duration
	AcquireTimeout time.Duration
}

// requiredKeys are the config keys that must be present for pool
// construction to succeed; their absence is a fatal ConfigLoad error.
var requiredKeys = []string{"ip", "port", "username", "password", "dbname", "initSize", "maxSize"}

// LoadPoolConfig reads a newline-delimited key=value file and produces a
// validated PoolConfig. Unknown keys are ignored; lines with no '=' —
// blank lines, comments — are skipped silently rather than rejected.
func LoadPoolConfig(path string) (*PoolConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading pool config %s: %w", path, err)
	}
	defer f.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		idx := strings.IndexByte(line, '=')
		if idx < 0 {
			continue // blank line, comment, or malformed — skip silently
		}
		key := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])
		if key == "" {
			continue
		}
		values[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: reading pool config %s: %w", path, err)
	}

	for _, k := range requiredKeys {
		if _, ok := values[k]; !ok {
			return nil, fmt.Errorf("config: missing required key %q in %s", k, path)
		}
	}

	port, err := strconv.ParseUint(values["port"], 10, 16)
	if err != nil {
		return nil, fmt.Errorf("config: parsing port: %w", err)
	}
	initSize, err := strconv.Atoi(values["initSize"])
	if err != nil {
		return nil, fmt.Errorf("config: parsing initSize: %w", err)
	}
	maxSize, err := strconv.Atoi(values["maxSize"])
	if err != nil {
		return nil, fmt.Errorf("config: parsing maxSize: %w", err)
	}

	cfg := &PoolConfig{
		Name: values["name"],
		Endpoint: mysqlconn.Endpoint{
			Host: values["ip"],
			Port: uint16(port),
		},
		Credentials: mysqlconn.Credentials{
			Username: values["username"],
			Password: values["password"],
			Database: values["dbname"],
		},
		InitSize:       initSize,
		MaxSize:        maxSize,
		MaxIdleTime:    60 * time.Second,
		AcquireTimeout: 5 * time.Second,
	}
	if cfg.Name == "" {
		cfg.Name = "default"
	}

	if raw, ok := values["maxIdleTime"]; ok {
		secs, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("config: parsing maxIdleTime: %w", err)
		}
		cfg.MaxIdleTime = time.Duration(secs) * time.Second
	}
	if raw, ok := values["connectionTimeout"]; ok {
		ms, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("config: parsing connectionTimeout: %w", err)
		}
		cfg.AcquireTimeout = time.Duration(ms) * time.Millisecond
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func (c *PoolConfig) validate() error {
	if c.InitSize < 1 {
		return fmt.Errorf("initSize must be >= 1, got %d", c.InitSize)
	}
	if c.MaxSize < c.InitSize {
		return fmt.Errorf("maxSize (%d) must be >= initSize (%d)", c.MaxSize, c.InitSize)
	}
	if c.Endpoint.Host == "" {
		return fmt.Errorf("ip must not be empty")
	}
	return nil
}
