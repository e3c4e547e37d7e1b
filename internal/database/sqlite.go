package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"colstore-go/internal/colstore"
	"colstore-go/internal/database/migrations"
	"colstore-go/internal/database/sqlc"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// SQLiteDatabase implements colstore.MetadataStore and colstore.ContentStore
// on a single SQLite connection. Every operation runs in its own transaction
// and the one-connection pool serializes writers.
type SQLiteDatabase struct {
	db      *sql.DB
	queries *sqlc.Queries
	path    string
	clock   colstore.Clock
	idgen   colstore.IDGenerator
}

// NewSQLiteDatabase opens (creating if needed) the database at path and
// migrates it to the latest schema. path can be MemoryPath.
// A nil clock or idgen falls back to the real clock and random UUIDs.
func NewSQLiteDatabase(path string, clock colstore.Clock, idgen colstore.IDGenerator) (*SQLiteDatabase, error) {
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	s := NewSQLiteDatabaseFromDB(db, clock, idgen)
	s.path = path
	return s, nil
}

// NewSQLiteDatabaseFromDB wraps an existing, already migrated connection.
func NewSQLiteDatabaseFromDB(db *sql.DB, clock colstore.Clock, idgen colstore.IDGenerator) *SQLiteDatabase {
	if clock == nil {
		clock = colstore.RealClock{}
	}
	if idgen == nil {
		idgen = colstore.UUIDGenerator{}
	}
	return &SQLiteDatabase{
		db:      db,
		queries: sqlc.New(db),
		clock:   clock,
		idgen:   idgen,
	}
}

// OpenConnection opens and configures a SQLite database connection with appropriate PRAGMAs.
// It is exported for tools and tests that need a properly configured connection.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: PRAGMAs are per connection, an in-memory database
	// lives only as long as its connection, and SQLite has a single writer anyway.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}
	return db, nil
}

// CheckDriver reports whether the SQLite driver is usable in this build.
// Binaries built without cgo carry a stub driver that fails every open.
func CheckDriver() error {
	db, err := sql.Open("sqlite3", MemoryPath)
	if err != nil {
		return err
	}
	defer db.Close()
	return db.Ping()
}

// IsDriverUnavailable reports whether err came from the stub driver.
func IsDriverUnavailable(err error) bool {
	return err != nil && strings.Contains(err.Error(), "requires cgo")
}

func (s *SQLiteDatabase) withTx(ctx context.Context, fn func(q *sqlc.Queries) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(s.queries.WithTx(tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func requireCollection(ctx context.Context, q *sqlc.Queries, name string) error {
	n, err := q.CountCollectionsByName(ctx, name)
	if err != nil {
		return fmt.Errorf("checking collection: %w", err)
	}
	if n == 0 {
		return colstore.NotFoundError(name, "")
	}
	return nil
}

// Collection operations

func (s *SQLiteDatabase) CreateCollection(ctx context.Context, name, description string) (*colstore.Collection, error) {
	var created sqlc.Collection
	err := s.withTx(ctx, func(q *sqlc.Queries) error {
		n, err := q.CountCollectionsByName(ctx, name)
		if err != nil {
			return fmt.Errorf("checking collection: %w", err)
		}
		if n > 0 {
			return colstore.AlreadyExistsError(name)
		}

		now := s.clock.Now()
		if err := q.InsertCollection(ctx, sqlc.InsertCollectionParams{
			Name:        name,
			Description: description,
			CreatedAt:   now,
			UpdatedAt:   now,
		}); err != nil {
			return fmt.Errorf("inserting collection: %w", err)
		}
		created, err = q.GetCollection(ctx, name)
		if err != nil {
			return fmt.Errorf("loading collection: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, colstore.StorageError(name, "", err)
	}
	return toCollection(created, 0, 0), nil
}

func (s *SQLiteDatabase) CollectionExists(ctx context.Context, name string) (bool, error) {
	n, err := s.queries.CountCollectionsByName(ctx, name)
	if err != nil {
		return false, colstore.StorageError(name, "", fmt.Errorf("checking collection: %w", err))
	}
	return n > 0, nil
}

func (s *SQLiteDatabase) ListCollections(ctx context.Context) ([]*colstore.Collection, error) {
	var rows []sqlc.ListCollectionsWithFileCountRow
	err := s.withTx(ctx, func(q *sqlc.Queries) error {
		var err error
		rows, err = q.ListCollectionsWithFileCount(ctx)
		if err != nil {
			return fmt.Errorf("listing collections: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, colstore.StorageError("", "", err)
	}

	result := make([]*colstore.Collection, len(rows))
	for i, r := range rows {
		result[i] = &colstore.Collection{
			Name:        r.Name,
			Description: r.Description,
			CreatedAt:   r.CreatedAt,
			UpdatedAt:   r.UpdatedAt,
			FileCount:   r.FileCount,
		}
	}
	return result, nil
}

func (s *SQLiteDatabase) GetCollection(ctx context.Context, name string) (*colstore.Collection, error) {
	var (
		c     sqlc.Collection
		stats sqlc.GetCollectionStatsRow
	)
	err := s.withTx(ctx, func(q *sqlc.Queries) error {
		var err error
		c, err = q.GetCollection(ctx, name)
		if errors.Is(err, sql.ErrNoRows) {
			return colstore.NotFoundError(name, "")
		}
		if err != nil {
			return fmt.Errorf("loading collection: %w", err)
		}
		stats, err = q.GetCollectionStats(ctx, name)
		if err != nil {
			return fmt.Errorf("loading collection stats: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, colstore.StorageError(name, "", err)
	}
	return toCollection(c, stats.FileCount, stats.TotalSize), nil
}

func (s *SQLiteDatabase) DeleteCollection(ctx context.Context, name string) (int, error) {
	var files int64
	err := s.withTx(ctx, func(q *sqlc.Queries) error {
		var err error
		files, err = deleteCollection(ctx, q, name)
		return err
	})
	if err != nil {
		return 0, colstore.StorageError(name, "", err)
	}
	return int(files), nil
}

func deleteCollection(ctx context.Context, q *sqlc.Queries, name string) (int64, error) {
	stats, err := q.GetCollectionStats(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("counting files: %w", err)
	}
	n, err := q.DeleteCollection(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("deleting collection: %w", err)
	}
	if n == 0 {
		return 0, colstore.NotFoundError(name, "")
	}
	return stats.FileCount, nil
}

// File operations

// UpdateFileMetadata upserts explicitly: an existing row keeps its id and
// created_at, a new row gets created_at = modified_at = now.
func (s *SQLiteDatabase) UpdateFileMetadata(ctx context.Context, u colstore.FileUpdate) (*colstore.FileMetadata, error) {
	status, err := updateStatus(u)
	if err != nil {
		return nil, err
	}

	var row sqlc.FileMetadatum
	err = s.withTx(ctx, func(q *sqlc.Queries) error {
		var err error
		row, _, err = s.upsertFile(ctx, q, u, status)
		return err
	})
	if err != nil {
		return nil, colstore.StorageError(u.Collection, u.Path, err)
	}
	return toFileMetadata(row), nil
}

func updateStatus(u colstore.FileUpdate) (colstore.SyncStatus, error) {
	status := u.SyncStatus
	if status == "" {
		status = colstore.SyncStatusNotSynced
	}
	if !status.Valid() {
		return "", colstore.ValidationError(u.Collection, u.Path, fmt.Sprintf("unknown vector sync status %q", status))
	}
	return status, nil
}

// upsertFile writes one file record and returns it with the content hash it
// replaced ("" for a new record).
func (s *SQLiteDatabase) upsertFile(ctx context.Context, q *sqlc.Queries, u colstore.FileUpdate, status colstore.SyncStatus) (sqlc.FileMetadatum, string, error) {
	if err := requireCollection(ctx, q, u.Collection); err != nil {
		return sqlc.FileMetadatum{}, "", err
	}

	key := sqlc.GetFileMetadataParams{CollectionName: u.Collection, FilePath: u.Path}
	now := s.clock.Now()
	var previous string

	existing, err := q.GetFileMetadata(ctx, key)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		err = q.InsertFileMetadata(ctx, sqlc.InsertFileMetadataParams{
			ID:               s.idgen.New(),
			CollectionName:   u.Collection,
			FilePath:         u.Path,
			ContentHash:      u.ContentHash,
			FileSize:         u.Size,
			CreatedAt:        now,
			ModifiedAt:       now,
			SourceUrl:        nullString(u.SourceURL),
			VectorSyncStatus: string(status),
		})
		if err != nil {
			return sqlc.FileMetadatum{}, "", fmt.Errorf("inserting file metadata: %w", err)
		}
	case err != nil:
		return sqlc.FileMetadatum{}, "", fmt.Errorf("loading file metadata: %w", err)
	default:
		previous = existing.ContentHash
		errMsg := existing.SyncErrorMessage
		if status != colstore.SyncStatusError {
			errMsg = sql.NullString{}
		}
		err = q.UpdateFileContent(ctx, sqlc.UpdateFileContentParams{
			ContentHash:      u.ContentHash,
			FileSize:         u.Size,
			ModifiedAt:       now,
			SourceUrl:        nullString(u.SourceURL),
			VectorSyncStatus: string(status),
			SyncErrorMessage: errMsg,
			CollectionName:   u.Collection,
			FilePath:         u.Path,
		})
		if err != nil {
			return sqlc.FileMetadatum{}, "", fmt.Errorf("updating file metadata: %w", err)
		}
	}

	if err := q.TouchCollection(ctx, sqlc.TouchCollectionParams{UpdatedAt: now, Name: u.Collection}); err != nil {
		return sqlc.FileMetadatum{}, "", fmt.Errorf("touching collection: %w", err)
	}
	row, err := q.GetFileMetadata(ctx, key)
	if err != nil {
		return sqlc.FileMetadatum{}, "", fmt.Errorf("reloading file metadata: %w", err)
	}
	return row, previous, nil
}

func (s *SQLiteDatabase) GetFileMetadata(ctx context.Context, collection, path string) (*colstore.FileMetadata, error) {
	row, err := s.queries.GetFileMetadata(ctx, sqlc.GetFileMetadataParams{CollectionName: collection, FilePath: path})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, colstore.NotFoundError(collection, path)
	}
	if err != nil {
		return nil, colstore.StorageError(collection, path, fmt.Errorf("loading file metadata: %w", err))
	}
	return toFileMetadata(row), nil
}

func (s *SQLiteDatabase) GetCollectionFiles(ctx context.Context, collection string) ([]*colstore.FileMetadata, error) {
	var rows []sqlc.FileMetadatum
	err := s.withTx(ctx, func(q *sqlc.Queries) error {
		if err := requireCollection(ctx, q, collection); err != nil {
			return err
		}
		var err error
		rows, err = q.ListFilesByCollection(ctx, collection)
		if err != nil {
			return fmt.Errorf("listing files: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, colstore.StorageError(collection, "", err)
	}

	result := make([]*colstore.FileMetadata, len(rows))
	for i := range rows {
		result[i] = toFileMetadata(rows[i])
	}
	return result, nil
}

func (s *SQLiteDatabase) DeleteFileMetadata(ctx context.Context, collection, path string) error {
	err := s.withTx(ctx, func(q *sqlc.Queries) error {
		_, err := s.deleteFile(ctx, q, collection, path)
		return err
	})
	return colstore.StorageError(collection, path, err)
}

// deleteFile removes one file record and returns the content hash it held.
func (s *SQLiteDatabase) deleteFile(ctx context.Context, q *sqlc.Queries, collection, path string) (string, error) {
	row, err := q.GetFileMetadata(ctx, sqlc.GetFileMetadataParams{CollectionName: collection, FilePath: path})
	if errors.Is(err, sql.ErrNoRows) {
		return "", colstore.NotFoundError(collection, path)
	}
	if err != nil {
		return "", fmt.Errorf("loading file metadata: %w", err)
	}
	if _, err := q.DeleteFileMetadata(ctx, sqlc.DeleteFileMetadataParams{CollectionName: collection, FilePath: path}); err != nil {
		return "", fmt.Errorf("deleting file metadata: %w", err)
	}
	if err := q.TouchCollection(ctx, sqlc.TouchCollectionParams{UpdatedAt: s.clock.Now(), Name: collection}); err != nil {
		return "", fmt.Errorf("touching collection: %w", err)
	}
	return row.ContentHash, nil
}

func (s *SQLiteDatabase) UpdateSyncStatus(ctx context.Context, collection, path string, status colstore.SyncStatus, message string) (*colstore.FileMetadata, error) {
	if !status.Valid() {
		return nil, colstore.ValidationError(collection, path, fmt.Sprintf("unknown vector sync status %q", status))
	}
	if status != colstore.SyncStatusError {
		message = ""
	}

	var row sqlc.FileMetadatum
	err := s.withTx(ctx, func(q *sqlc.Queries) error {
		key := sqlc.GetFileMetadataParams{CollectionName: collection, FilePath: path}
		if _, err := q.GetFileMetadata(ctx, key); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return colstore.NotFoundError(collection, path)
			}
			return fmt.Errorf("loading file metadata: %w", err)
		}

		err := q.UpdateFileSyncStatus(ctx, sqlc.UpdateFileSyncStatusParams{
			VectorSyncStatus: string(status),
			LastSyncAttempt:  sql.NullTime{Time: s.clock.Now(), Valid: true},
			SyncErrorMessage: nullString(message),
			CollectionName:   collection,
			FilePath:         path,
		})
		if err != nil {
			return fmt.Errorf("updating sync status: %w", err)
		}
		row, err = q.GetFileMetadata(ctx, key)
		if err != nil {
			return fmt.Errorf("reloading file metadata: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, colstore.StorageError(collection, path, err)
	}
	return toFileMetadata(row), nil
}

// Reconciliation log

func (s *SQLiteDatabase) LogReconciliation(ctx context.Context, collection string, actions []colstore.ReconcileAction, added, modified, deleted int) (*colstore.ReconciliationLogEntry, error) {
	if actions == nil {
		actions = []colstore.ReconcileAction{}
	}
	encoded, err := json.Marshal(actions)
	if err != nil {
		return nil, colstore.StorageError(collection, "", fmt.Errorf("encoding reconciliation actions: %w", err))
	}

	now := s.clock.Now()
	var id int64
	err = s.withTx(ctx, func(q *sqlc.Queries) error {
		var err error
		id, err = q.InsertReconciliationLog(ctx, sqlc.InsertReconciliationLogParams{
			CollectionName:          collection,
			ReconciliationTimestamp: now,
			FilesAdded:              int64(added),
			FilesModified:           int64(modified),
			FilesDeleted:            int64(deleted),
			ReconciliationActions:   string(encoded),
		})
		if err != nil {
			return fmt.Errorf("inserting reconciliation log: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, colstore.StorageError(collection, "", err)
	}

	return &colstore.ReconciliationLogEntry{
		ID:            id,
		Collection:    collection,
		Timestamp:     now,
		FilesAdded:    added,
		FilesModified: modified,
		FilesDeleted:  deleted,
		Actions:       actions,
	}, nil
}

func (s *SQLiteDatabase) GetLastReconciliation(ctx context.Context, collection string) (*colstore.ReconciliationLogEntry, error) {
	row, err := s.queries.GetLastReconciliationLog(ctx, collection)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, colstore.StorageError(collection, "", fmt.Errorf("loading last reconciliation: %w", err))
	}

	var actions []colstore.ReconcileAction
	if err := json.Unmarshal([]byte(row.ReconciliationActions), &actions); err != nil {
		return nil, colstore.StorageError(collection, "", fmt.Errorf("decoding reconciliation actions: %w", err))
	}
	return &colstore.ReconciliationLogEntry{
		ID:            row.ID,
		Collection:    row.CollectionName,
		Timestamp:     row.ReconciliationTimestamp,
		FilesAdded:    int(row.FilesAdded),
		FilesModified: int(row.FilesModified),
		FilesDeleted:  int(row.FilesDeleted),
		Actions:       actions,
	}, nil
}

// Content operations

func (s *SQLiteDatabase) SaveFileContent(ctx context.Context, u colstore.FileUpdate, body string) (*colstore.FileMetadata, error) {
	status, err := updateStatus(u)
	if err != nil {
		return nil, err
	}
	if u.ContentHash == "" {
		return nil, colstore.ValidationError(u.Collection, u.Path, "content hash is required")
	}

	var row sqlc.FileMetadatum
	err = s.withTx(ctx, func(q *sqlc.Queries) error {
		err := q.InsertContent(ctx, sqlc.InsertContentParams{
			Checksum:  u.ContentHash,
			Body:      body,
			Size:      int64(len(body)),
			CreatedAt: s.clock.Now(),
		})
		if err != nil {
			return fmt.Errorf("storing content: %w", err)
		}

		var previous string
		row, previous, err = s.upsertFile(ctx, q, u, status)
		if err != nil {
			return err
		}
		if previous != "" && previous != u.ContentHash {
			return pruneContent(ctx, q, previous)
		}
		return nil
	})
	if err != nil {
		return nil, colstore.StorageError(u.Collection, u.Path, err)
	}
	return toFileMetadata(row), nil
}

func (s *SQLiteDatabase) GetContent(ctx context.Context, checksum string) (string, error) {
	c, err := s.queries.GetContent(ctx, checksum)
	if errors.Is(err, sql.ErrNoRows) {
		return "", &colstore.Error{Kind: colstore.KindNotFound, Message: fmt.Sprintf("content %q not found", checksum)}
	}
	if err != nil {
		return "", colstore.StorageError("", "", fmt.Errorf("loading content: %w", err))
	}
	return c.Body, nil
}

func (s *SQLiteDatabase) DeleteFileContent(ctx context.Context, collection, path string) error {
	err := s.withTx(ctx, func(q *sqlc.Queries) error {
		hash, err := s.deleteFile(ctx, q, collection, path)
		if err != nil {
			return err
		}
		return pruneContent(ctx, q, hash)
	})
	return colstore.StorageError(collection, path, err)
}

func (s *SQLiteDatabase) DeleteCollectionContent(ctx context.Context, name string) (int, error) {
	var files int64
	err := s.withTx(ctx, func(q *sqlc.Queries) error {
		rows, err := q.ListFilesByCollection(ctx, name)
		if err != nil {
			return fmt.Errorf("listing files: %w", err)
		}
		files, err = deleteCollection(ctx, q, name)
		if err != nil {
			return err
		}

		pruned := make(map[string]bool, len(rows))
		for _, r := range rows {
			if pruned[r.ContentHash] {
				continue
			}
			pruned[r.ContentHash] = true
			if err := pruneContent(ctx, q, r.ContentHash); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, colstore.StorageError(name, "", err)
	}
	return int(files), nil
}

// pruneContent drops checksum unless a file record still references it.
func pruneContent(ctx context.Context, q *sqlc.Queries, checksum string) error {
	if _, err := q.DeleteUnreferencedContent(ctx, checksum); err != nil {
		return fmt.Errorf("pruning content %s: %w", checksum, err)
	}
	return nil
}

// Path returns the database file path (or ":memory:" for in-memory databases).
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// MigrationStatus reports the schema version of the database.
func (s *SQLiteDatabase) MigrationStatus() (migrations.Status, error) {
	return migrations.GetStatus(s.db)
}

// BackupTo writes a consistent copy of the database to destPath with
// VACUUM INTO. destPath must not exist; its parent directory is created.
func (s *SQLiteDatabase) BackupTo(ctx context.Context, destPath string) error {
	if _, err := os.Stat(destPath); err == nil {
		return fmt.Errorf("backup destination %s already exists", destPath)
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("creating backup directory: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", destPath); err != nil {
		return fmt.Errorf("backing up database: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func toCollection(c sqlc.Collection, files, size int64) *colstore.Collection {
	return &colstore.Collection{
		Name:        c.Name,
		Description: c.Description,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
		FileCount:   files,
		TotalSize:   size,
	}
}

func toFileMetadata(r sqlc.FileMetadatum) *colstore.FileMetadata {
	m := &colstore.FileMetadata{
		ID:               r.ID,
		Collection:       r.CollectionName,
		Path:             r.FilePath,
		ContentHash:      r.ContentHash,
		Size:             r.FileSize,
		CreatedAt:        r.CreatedAt,
		ModifiedAt:       r.ModifiedAt,
		SourceURL:        r.SourceUrl.String,
		SyncStatus:       colstore.SyncStatus(r.VectorSyncStatus),
		SyncErrorMessage: r.SyncErrorMessage.String,
	}
	if r.LastSyncAttempt.Valid {
		t := r.LastSyncAttempt.Time
		m.LastSyncAttempt = &t
	}
	return m
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Compile-time checks that SQLiteDatabase implements the store interfaces.
var (
	_ colstore.MetadataStore   = (*SQLiteDatabase)(nil)
	_ colstore.RelationalStore = (*SQLiteDatabase)(nil)
)
