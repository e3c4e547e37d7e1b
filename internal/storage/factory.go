// Package storage turns a storage configuration into a live colstore.Manager.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"colstore-go/internal/colstore"
	"colstore-go/internal/config"
	"colstore-go/internal/database"
	"colstore-go/internal/fs"
)

// ErrModeUnavailable reports that a storage mode cannot run in this build,
// as opposed to being misconfigured.
var ErrModeUnavailable = errors.New("storage mode unavailable")

// ErrMisconfigured matches every *ConfigError.
var ErrMisconfigured = errors.New("storage misconfigured")

// ConfigError names the configuration field that is missing or unusable.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ConfigError) Is(target error) bool { return target == ErrMisconfigured }

var supportedModes = []string{colstore.ModeRelational, colstore.ModeFilesystem}

// SupportedModes returns the storage mode identifiers accepted in storage_mode.
func SupportedModes() []string {
	return append([]string(nil), supportedModes...)
}

// ValidationResult is the outcome of ValidateConfig.
type ValidationResult struct {
	Mode     string
	Problems []*ConfigError
}

// Valid reports whether no problems were found.
func (r *ValidationResult) Valid() bool { return len(r.Problems) == 0 }

// Err returns the first problem, or nil.
func (r *ValidationResult) Err() error {
	if r.Valid() {
		return nil
	}
	return r.Problems[0]
}

func (r *ValidationResult) add(field, msg string) {
	r.Problems = append(r.Problems, &ConfigError{Field: field, Message: msg})
}

// ValidateConfig checks mode-specific required fields and, for filesystem
// mode, that the content root and metadata directory are writable. It never
// constructs a manager.
func ValidateConfig(cfg config.StorageConfig) *ValidationResult {
	res := &ValidationResult{Mode: cfg.Mode}
	checkRequired(cfg, res)
	if !res.Valid() || cfg.Mode != colstore.ModeFilesystem {
		return res
	}

	if err := probeWritable(cfg.FilesystemPath); err != nil {
		res.add("filesystem_path", fmt.Sprintf("directory is not writable: %v", err))
	}
	if err := probeWritable(filepath.Dir(cfg.MetadataDBPath)); err != nil {
		res.add("metadata_db_path", fmt.Sprintf("parent directory is not writable: %v", err))
	}
	return res
}

func checkRequired(cfg config.StorageConfig, res *ValidationResult) {
	switch cfg.Mode {
	case colstore.ModeRelational:
		if cfg.DatabasePath == "" {
			res.add("database_path", "required for relational storage")
		}
	case colstore.ModeFilesystem:
		if cfg.FilesystemPath == "" {
			res.add("filesystem_path", "required for filesystem storage")
		}
		if cfg.MetadataDBPath == "" {
			res.add("metadata_db_path", "required for filesystem storage")
		}
	case "":
		res.add("storage_mode", fmt.Sprintf("required (one of %v)", supportedModes))
	default:
		res.add("storage_mode", fmt.Sprintf("unknown mode %q (one of %v)", cfg.Mode, supportedModes))
	}
}

// probeWritable creates dir if needed and writes and removes a probe file in it.
func probeWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".colstore-probe-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

// NewManagerFromConfig builds the manager for cfg.Mode. Missing fields fail
// with a *ConfigError; a mode that cannot run in this build fails with
// ErrModeUnavailable. In filesystem mode with auto_reconcile on, collection
// directories on disk are discovered and reconciled before returning.
func NewManagerFromConfig(ctx context.Context, cfg config.StorageConfig, logger colstore.Logger) (colstore.Manager, error) {
	res := &ValidationResult{Mode: cfg.Mode}
	checkRequired(cfg, res)
	if err := res.Err(); err != nil {
		return nil, err
	}

	if err := database.CheckDriver(); err != nil {
		if database.IsDriverUnavailable(err) {
			return nil, fmt.Errorf("%w: %s storage needs the SQLite driver: %v", ErrModeUnavailable, cfg.Mode, err)
		}
		return nil, fmt.Errorf("checking SQLite driver: %w", err)
	}

	switch cfg.Mode {
	case colstore.ModeRelational:
		db, err := database.NewDatabaseFromConfig(cfg)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		return colstore.NewDBCollectionManager(db, logger, cfg.AllowedExtensions), nil

	case colstore.ModeFilesystem:
		if err := os.MkdirAll(cfg.FilesystemPath, 0o755); err != nil {
			return nil, &ConfigError{Field: "filesystem_path", Message: fmt.Sprintf("cannot create content root: %v", err)}
		}
		fsmgr, err := fs.NewOSFilesystemManager(cfg.FilesystemPath, cfg.AllowedExtensions, cfg.Ignore)
		if err != nil {
			return nil, fmt.Errorf("creating filesystem manager: %w", err)
		}
		db, err := database.NewDatabaseFromConfig(cfg)
		if err != nil {
			return nil, fmt.Errorf("opening metadata database: %w", err)
		}

		mgr := colstore.NewFSCollectionManager(db, fsmgr, logger, colstore.FSOptions{
			AllowedExtensions: cfg.AllowedExtensions,
			AutoReconcile:     cfg.AutoReconcileEnabled(),
		})
		if cfg.AutoReconcileEnabled() {
			if _, err := mgr.ReconcileAll(ctx); err != nil {
				logger.Warn("startup reconciliation incomplete", "error", err)
			}
		}
		return mgr, nil
	}

	// checkRequired has rejected every other mode.
	return nil, &ConfigError{Field: "storage_mode", Message: fmt.Sprintf("unknown mode %q", cfg.Mode)}
}
