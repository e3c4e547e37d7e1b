package colstore

import "context"

// Manager is the common surface of both storage modes.
type Manager interface {
	// Mode returns ModeRelational or ModeFilesystem.
	Mode() string

	CreateCollection(ctx context.Context, name, description string) (*Collection, error)
	ListCollections(ctx context.Context) ([]*Collection, error)
	GetCollection(ctx context.Context, name string) (*CollectionInfo, error)
	DeleteCollection(ctx context.Context, name string) (int, error)

	SaveFile(ctx context.Context, req SaveRequest) (*FileMetadata, error)
	ReadFile(ctx context.Context, collection, path string) (string, error)
	DeleteFile(ctx context.Context, collection, path string) error
	ListFiles(ctx context.Context, collection string) ([]*FileMetadata, error)

	// SyncSummary derives the overall vector sync state of a collection.
	SyncSummary(ctx context.Context, collection string) (*SyncSummary, error)

	// SetSyncStatus records a status reported by the vector sync collaborator.
	SetSyncStatus(ctx context.Context, collection, path string, status SyncStatus, message string) (*FileMetadata, error)

	Close() error
}

// Reconciling is implemented by managers that keep metadata in step with an
// independently mutable filesystem tree.
type Reconciling interface {
	ReconcileCollection(ctx context.Context, name string) (*ReconcileResult, error)
	DiscoverCollections(ctx context.Context) ([]string, error)
	ReconcileAll(ctx context.Context) ([]*ReconcileResult, error)
}
