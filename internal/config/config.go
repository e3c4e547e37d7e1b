package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultReconcileInterval is the watch loop period when none is configured.
const DefaultReconcileInterval = 5 * time.Minute

// Config represents the main configuration for colstore.
type Config struct {
	BaseDir   string          `toml:"base_dir"`
	LogDir    string          `toml:"log_dir"`
	Storage   StorageConfig   `toml:"storage"`
	Reconcile ReconcileConfig `toml:"reconcile"`
}

// StorageConfig selects and configures the storage backend.
// This uses a tagged union pattern - Mode determines which other fields are relevant.
type StorageConfig struct {
	Mode string `toml:"storage_mode"` // "relational" or "filesystem"

	// Relational-specific fields (only used when Mode == "relational")
	DatabasePath string `toml:"database_path,omitempty"`

	// Filesystem-specific fields (only used when Mode == "filesystem")
	FilesystemPath string `toml:"filesystem_path,omitempty"`
	MetadataDBPath string `toml:"metadata_db_path,omitempty"`
	AutoReconcile  *bool  `toml:"auto_reconcile,omitempty"` // nil means true

	AllowedExtensions []string `toml:"allowed_extensions,omitempty"`
	Ignore            []string `toml:"ignore,omitempty"`
}

// AutoReconcileEnabled resolves the optional auto_reconcile flag.
func (c StorageConfig) AutoReconcileEnabled() bool {
	return c.AutoReconcile == nil || *c.AutoReconcile
}

// ReconcileConfig configures the background reconcile loop of `colstore watch`.
type ReconcileConfig struct {
	Interval    string `toml:"interval,omitempty"` // Go duration, e.g. "5m"
	MetricsAddr string `toml:"metrics_addr,omitempty"`
}

// IntervalDuration parses Interval, falling back to DefaultReconcileInterval when empty.
func (c ReconcileConfig) IntervalDuration() (time.Duration, error) {
	if c.Interval == "" {
		return DefaultReconcileInterval, nil
	}
	d, err := time.ParseDuration(c.Interval)
	if err != nil {
		return 0, fmt.Errorf("invalid reconcile interval %q: %w", c.Interval, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("reconcile interval must be positive, got %s", c.Interval)
	}
	return d, nil
}

// NewConfig creates a filesystem-mode Config rooted at baseDir.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Storage: StorageConfig{
			Mode:           "filesystem",
			FilesystemPath: filepath.Join(baseDir, "collections"),
			MetadataDBPath: filepath.Join(baseDir, "metadata.db"),
		},
		Reconcile: ReconcileConfig{
			Interval:    DefaultReconcileInterval.String(),
			MetricsAddr: "127.0.0.1:9464",
		},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

func writeToFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
