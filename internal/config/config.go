package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"eventcal/internal/storage"
)

// StorageConfig selects where base events are persisted.
type StorageConfig struct {
	// Driver is one of "file", "sqlite" or "memory".
	Driver string `yaml:"driver" json:"driver"`
	// Path is a directory for the file driver and a database file for sqlite.
	Path string `yaml:"path" json:"path"`
	// Key is the blob key the event list is stored under.
	Key string `yaml:"key" json:"key"`
}

// ExportConfig controls the scheduled ICS export.
type ExportConfig struct {
	// Cron is a standard 5-field cron expression (e.g. "0 * * * *").
	// Empty disables the scheduled export.
	Cron string `yaml:"cron" json:"cron"`
	// Path is the .ics file the export writes.
	Path string `yaml:"path" json:"path"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// CalendarName is used as X-WR-CALNAME in exported ICS files.
	CalendarName string `yaml:"calendar_name" json:"calendar_name"`

	Storage StorageConfig `yaml:"storage" json:"storage"`
	Export  ExportConfig  `yaml:"export" json:"export"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

const (
	defaultListen       = "127.0.0.1:8080"
	defaultLogLevel     = "info"
	defaultCalendarName = "Event Calendar"
	defaultStoragePath  = "./var/eventcal"
	defaultStorageKey   = "calendar-events"
	defaultExportPath   = "./var/eventcal/calendar.ics"
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:       defaultListen,
		LogLevel:     defaultLogLevel,
		CalendarName: defaultCalendarName,
		Storage: StorageConfig{
			Driver: storage.DriverFile,
			Path:   defaultStoragePath,
			Key:    defaultStorageKey,
		},
		Export: ExportConfig{
			Path: defaultExportPath,
		},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.CalendarName == "" {
		c.CalendarName = defaultCalendarName
	}

	switch c.Storage.Driver {
	case storage.DriverFile, storage.DriverSQLite, storage.DriverMemory:
	default:
		// Unknown or empty driver; fall back to plain files.
		c.Storage.Driver = storage.DriverFile
	}
	if c.Storage.Path == "" {
		c.Storage.Path = defaultStoragePath
		if c.Storage.Driver == storage.DriverSQLite {
			c.Storage.Path = filepath.Join(defaultStoragePath, "eventcal.db")
		}
	}
	if c.Storage.Key == "" {
		c.Storage.Key = defaultStorageKey
	}
	if c.Export.Path == "" {
		c.Export.Path = defaultExportPath
	}
}

// Validate reports configuration that Normalize cannot repair.
func (c *Config) Validate() error {
	if c.BasicAuth != nil && (c.BasicAuth.Username == "") != (c.BasicAuth.Password == "") {
		return errors.New("config: basic_auth needs both username and password")
	}
	return nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms and returned.
//   - If the file exists, it is unmarshalled and normalized.
//   - A .env file next to the working directory, if present, is loaded and
//     EVENTCAL_* environment variables override file values.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	cfg, err := loadFile(path)
	if err != nil {
		return cfg, err
	}

	// Missing .env is the normal case.
	_ = godotenv.Load()
	cfg.applyEnv()
	cfg.Normalize()

	return cfg, cfg.Validate()
}

func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	overrides := []struct {
		key string
		dst *string
	}{
		{"EVENTCAL_LISTEN", &c.Listen},
		{"EVENTCAL_LOG_LEVEL", &c.LogLevel},
		{"EVENTCAL_STORAGE_DRIVER", &c.Storage.Driver},
		{"EVENTCAL_STORAGE_PATH", &c.Storage.Path},
		{"EVENTCAL_EXPORT_CRON", &c.Export.Cron},
	}
	for _, o := range overrides {
		if v, ok := os.LookupEnv(o.key); ok && v != "" {
			*o.dst = v
		}
	}
}

// Save normalizes cfg and writes it to path as YAML, atomically and with
// 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return storage.WriteFileAtomic(path, data)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
