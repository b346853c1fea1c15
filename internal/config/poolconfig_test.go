package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "pool.conf")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing temp config: %v", err)
	}
	return path
}

// Malformed lines (blank, comment, no '=') are skipped silently rather
// than rejected.
func TestLoadPoolConfigSkipsMalformedLines(t *testing.T) {
	path := writeTempConfig(t, `
# a leading comment with no '=' sign

ip=10.0.0.5
port=3306
username=app
password=secret
dbname=appdb
initSize=2
maxSize=4
this line has no equals sign in it
`)

	cfg, err := LoadPoolConfig(path)
	if err != nil {
		t.Fatalf("LoadPoolConfig() error = %v", err)
	}

	if cfg.Endpoint.Host != "10.0.0.5" || cfg.Endpoint.Port != 3306 {
		t.Fatalf("Endpoint = %+v, want 10.0.0.5:3306", cfg.Endpoint)
	}
	if cfg.InitSize != 2 || cfg.MaxSize != 4 {
		t.Fatalf("InitSize/MaxSize = %d/%d, want 2/4", cfg.InitSize, cfg.MaxSize)
	}
	if cfg.Name != "default" {
		t.Fatalf("Name = %q, want default when unset", cfg.Name)
	}
	if cfg.MaxIdleTime != 60*time.Second {
		t.Fatalf("MaxIdleTime = %v, want default 60s", cfg.MaxIdleTime)
	}
	if cfg.AcquireTimeout != 5*time.Second {
		t.Fatalf("AcquireTimeout = %v, want default 5s", cfg.AcquireTimeout)
	}
}

func TestLoadPoolConfigMissingRequiredKey(t *testing.T) {
	path := writeTempConfig(t, `
ip=10.0.0.5
port=3306
username=app
password=secret
dbname=appdb
initSize=2
`)
	if _, err := LoadPoolConfig(path); err == nil {
		t.Fatal("LoadPoolConfig() error = nil, want error for missing maxSize")
	}
}

func TestLoadPoolConfigRejectsMaxSizeBelowInitSize(t *testing.T) {
	path := writeTempConfig(t, `
ip=10.0.0.5
port=3306
username=app
password=secret
dbname=appdb
initSize=10
maxSize=5
`)
	if _, err := LoadPoolConfig(path); err == nil {
		t.Fatal("LoadPoolConfig() error = nil, want validation error")
	}
}

func TestLoadPoolConfigOverrides(t *testing.T) {
	path := writeTempConfig(t, `
name=custom-pool
ip=10.0.0.5
port=3306
username=app
password=secret
dbname=appdb
initSize=2
maxSize=4
maxIdleTime=120
connectionTimeout=2500
`)

	cfg, err := LoadPoolConfig(path)
	if err != nil {
		t.Fatalf("LoadPoolConfig() error = %v", err)
	}
	if cfg.Name != "custom-pool" {
		t.Fatalf("Name = %q, want custom-pool", cfg.Name)
	}
	if cfg.MaxIdleTime != 120*time.Second {
		t.Fatalf("MaxIdleTime = %v, want 120s", cfg.MaxIdleTime)
	}
	if cfg.AcquireTimeout != 2500*time.Millisecond {
		t.Fatalf("AcquireTimeout = %v, want 2500ms", cfg.AcquireTimeout)
	}
}

func TestLoadPoolConfigMissingFile(t *testing.T) {
	if _, err := LoadPoolConfig(filepath.Join(t.TempDir(), "does-not-exist.conf")); err == nil {
		t.Fatal("LoadPoolConfig() error = nil, want error for missing file")
	}
}
