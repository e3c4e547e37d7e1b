package colstore

import "context"

// MetadataStore is the transactional gateway to collection and file records.
// Every method runs in a single transaction. Failures are classified with
// the *Error kinds defined in this package.
type MetadataStore interface {
	// Collection operations

	// CreateCollection inserts a new collection. Fails with KindAlreadyExists
	// if the name is taken.
	CreateCollection(ctx context.Context, name, description string) (*Collection, error)

	// CollectionExists reports whether a collection record exists.
	CollectionExists(ctx context.Context, name string) (bool, error)

	// ListCollections returns all collections with live file counts, newest first.
	ListCollections(ctx context.Context) ([]*Collection, error)

	// GetCollection returns a collection with its file count and total size.
	GetCollection(ctx context.Context, name string) (*Collection, error)

	// DeleteCollection removes a collection and, by cascade, its file and
	// reconciliation records. Returns the number of file records removed.
	DeleteCollection(ctx context.Context, name string) (int, error)

	// File operations

	// UpdateFileMetadata inserts or updates the record for (collection, path).
	// An existing record keeps its created_at; a new one gets created_at = modified_at = now.
	UpdateFileMetadata(ctx context.Context, update FileUpdate) (*FileMetadata, error)

	// GetFileMetadata returns one file record.
	GetFileMetadata(ctx context.Context, collection, path string) (*FileMetadata, error)

	// GetCollectionFiles returns all file records of a collection ordered by path.
	GetCollectionFiles(ctx context.Context, collection string) ([]*FileMetadata, error)

	// DeleteFileMetadata removes one file record.
	DeleteFileMetadata(ctx context.Context, collection, path string) error

	// UpdateSyncStatus records a vector sync transition for one file and
	// stamps last_sync_attempt. message is kept only for SyncStatusError.
	UpdateSyncStatus(ctx context.Context, collection, path string, status SyncStatus, message string) (*FileMetadata, error)

	// Reconciliation log

	// LogReconciliation appends an audit record.
	LogReconciliation(ctx context.Context, collection string, actions []ReconcileAction, added, modified, deleted int) (*ReconciliationLogEntry, error)

	// GetLastReconciliation returns the newest audit record, or nil if none exists.
	GetLastReconciliation(ctx context.Context, collection string) (*ReconciliationLogEntry, error)

	// Close releases the underlying connection.
	Close() error
}

// ContentStore keeps document bodies addressed by their content hash.
// It backs the relational storage mode, where no filesystem tree exists.
// Each write stores or drops bodies in the same transaction as the file
// records that reference them, so a tracked file never points at a missing body.
type ContentStore interface {
	// SaveFileContent stores body under update.ContentHash, upserts the file
	// record and prunes the body it replaced if nothing references it any more.
	SaveFileContent(ctx context.Context, update FileUpdate, body string) (*FileMetadata, error)

	// GetContent returns the body stored under checksum.
	GetContent(ctx context.Context, checksum string) (string, error)

	// DeleteFileContent removes one file record and prunes its body if unreferenced.
	DeleteFileContent(ctx context.Context, collection, path string) error

	// DeleteCollectionContent removes a collection with its records and prunes
	// the bodies only it referenced. Returns the number of file records removed.
	DeleteCollectionContent(ctx context.Context, name string) (int, error)
}
