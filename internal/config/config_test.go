package config

import (
	"os"
	"path/filepath"
	"testing"

	"eventcal/internal/storage"
)

func TestLoadCreatesDefaultOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Listen != defaultListen || cfg.Storage.Driver != storage.DriverFile {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("expected 0600 permissions, got %o", perm)
	}
}

func TestLoadNormalizesPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "listen: 0.0.0.0:9090\nstorage:\n  driver: sqlite\nexport:\n  cron: \"0 * * * *\"\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Listen != "0.0.0.0:9090" {
		t.Fatalf("listen not read from file: %q", cfg.Listen)
	}
	if cfg.Storage.Driver != storage.DriverSQLite || cfg.Storage.Path != filepath.Join(defaultStoragePath, "eventcal.db") {
		t.Fatalf("unexpected storage config: %+v", cfg.Storage)
	}
	if cfg.Storage.Key != defaultStorageKey || cfg.Export.Cron != "0 * * * *" {
		t.Fatalf("unexpected key/export: %+v %+v", cfg.Storage, cfg.Export)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := Save(path, DefaultConfig()); err != nil {
		t.Fatalf("save: %v", err)
	}
	t.Setenv("EVENTCAL_LISTEN", "127.0.0.1:7000")
	t.Setenv("EVENTCAL_STORAGE_DRIVER", "memory")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Listen != "127.0.0.1:7000" || cfg.Storage.Driver != storage.DriverMemory {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
}

func TestNormalizeUnknownDriver(t *testing.T) {
	cfg := &Config{Storage: StorageConfig{Driver: "redis"}}
	cfg.Normalize()
	if cfg.Storage.Driver != storage.DriverFile {
		t.Fatalf("expected fallback to file driver, got %q", cfg.Storage.Driver)
	}
}

func TestValidateBasicAuth(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BasicAuth = &BasicAuthConfig{Username: "admin"}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for half-configured basic auth")
	}
}
