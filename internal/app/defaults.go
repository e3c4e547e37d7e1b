package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"colstore-go/internal/config"
)

// Environment variables that override the default locations.
const (
	EnvConfigPath = "COLSTORE_CONFIG_PATH"
	EnvHome       = "COLSTORE_HOME"
)

// Defaults are the application's default locations.
type Defaults struct {
	ConfigPath string // default: ~/.config/colstore.toml
	BaseDir    string // default: ~/.local/share/colstore
	LogDir     string
}

// GetDefaults returns application default paths, checking environment variables first.
func GetDefaults() (*Defaults, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	return &Defaults{
		ConfigPath: configPath,
		BaseDir:    baseDir,
		LogDir:     filepath.Join(baseDir, "log"),
	}, nil
}

// NewConfig returns a filesystem-mode config rooted at the default base directory.
func (d *Defaults) NewConfig() *config.Config {
	cfg := config.NewConfig(d.BaseDir)
	cfg.LogDir = d.LogDir
	return cfg
}

// LoadConfig reads the config file at path, or at the default location when
// path is empty. A missing file gets a hint to run `colstore config init`.
func LoadConfig(path string) (*config.Config, error) {
	if path == "" {
		d, err := GetDefaults()
		if err != nil {
			return nil, err
		}
		path = d.ConfigPath
	}

	cfg, err := config.ReadFromFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("no config at %s (run `colstore config init`): %w", path, err)
		}
		return nil, err
	}
	if cfg.LogDir == "" {
		if cfg.BaseDir == "" {
			return nil, fmt.Errorf("config %s sets neither log_dir nor base_dir", path)
		}
		cfg.LogDir = filepath.Join(cfg.BaseDir, "log")
	}
	return cfg, nil
}

// getConfigPath returns the config file path, checking COLSTORE_CONFIG_PATH first,
// then falling back to ~/.config/colstore.toml.
func getConfigPath() (string, error) {
	if path := os.Getenv(EnvConfigPath); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "colstore.toml"), nil
}

// getBaseDir returns the base directory for colstore data, checking COLSTORE_HOME
// first, then falling back to the XDG default ~/.local/share/colstore.
func getBaseDir() (string, error) {
	if path := os.Getenv(EnvHome); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "colstore"), nil
}
