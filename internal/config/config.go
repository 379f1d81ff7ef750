package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// StorageConfig selects and parameterizes the persistence backend.
type StorageConfig struct {
	// Driver is "file" (default) or "postgres".
	Driver string `yaml:"driver" json:"driver"`
	// Path is the JSON document location for the file driver.
	Path string `yaml:"path" json:"path"`
	// DSN is the connection string for the postgres driver. The DATABASE_URI
	// environment variable overrides it when set.
	DSN string `yaml:"dsn,omitempty" json:"dsn,omitempty"`
	// Key distinguishes documents when several events share one database.
	Key string `yaml:"key,omitempty" json:"key,omitempty"`
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

	// Locale selects display formatting ("en" or "fr").
	Locale string `yaml:"locale" json:"locale"`

	// EventName labels exported occurrences (ICS SUMMARY, feed filename).
	EventName string `yaml:"event_name" json:"event_name"`

	// SnapshotCron is a cron-style schedule for document backups
	// (e.g. "0 3 * * *"). Empty disables snapshots.
	SnapshotCron string `yaml:"snapshot_cron" json:"snapshot_cron"`

	// SnapshotDir receives timestamped document copies.
	SnapshotDir string `yaml:"snapshot_dir" json:"snapshot_dir"`

	// Storage selects the persistence backend.
	Storage StorageConfig `yaml:"storage" json:"storage"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:       "127.0.0.1:8080",
		Locale:       "en",
		EventName:    "Scheduled session",
		SnapshotCron: "",
		SnapshotDir:  "snapshots",
		Storage: StorageConfig{
			Driver: "file",
			Path:   "schedule.json",
		},
		BasicAuth: nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.Locale == "" {
		c.Locale = "en"
	}
	if c.EventName == "" {
		c.EventName = "Scheduled session"
	}
	if c.SnapshotDir == "" {
		c.SnapshotDir = "snapshots"
	}
	switch c.Storage.Driver {
	case "file", "postgres":
		// ok
	default:
		// Unknown driver; fall back to the file store rather than failing
		// at startup with data in an unexpected place.
		c.Storage.Driver = "file"
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "schedule.json"
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist: create parent directory if needed, write a
//     default config with 0600 perms, and return the default config.
//   - If the file exists: read YAML, unmarshal, normalize defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
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
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration atomically (temp file + rename, 0600).
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".occal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save delegates to the package-level Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
