package database

import (
	"fmt"

	"colstore-go/internal/colstore"
	"colstore-go/internal/config"
)

// NewDatabaseFromConfig opens the metadata database for the configured storage mode.
// Relational mode uses database_path; filesystem mode uses metadata_db_path.
func NewDatabaseFromConfig(cfg config.StorageConfig) (*SQLiteDatabase, error) {
	switch cfg.Mode {
	case colstore.ModeRelational:
		if cfg.DatabasePath == "" {
			return nil, fmt.Errorf("database_path required for %s storage", cfg.Mode)
		}
		return NewSQLiteDatabase(cfg.DatabasePath, nil, nil)
	case colstore.ModeFilesystem:
		if cfg.MetadataDBPath == "" {
			return nil, fmt.Errorf("metadata_db_path required for %s storage", cfg.Mode)
		}
		return NewSQLiteDatabase(cfg.MetadataDBPath, nil, nil)
	default:
		return nil, fmt.Errorf("unknown storage mode: %q", cfg.Mode)
	}
}
