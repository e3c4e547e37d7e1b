package colstore

import (
	"context"
	"errors"
	"fmt"
)

// RelationalStore is a MetadataStore that also keeps document bodies.
type RelationalStore interface {
	MetadataStore
	ContentStore
}

// DBCollectionManager keeps everything in the relational store. There is no
// directory tree, so nothing can drift and no reconciliation is needed.
type DBCollectionManager struct {
	store   RelationalStore
	logger  Logger
	allowed []string
}

var _ Manager = (*DBCollectionManager)(nil)

// NewDBCollectionManager creates a manager for the relational storage mode.
func NewDBCollectionManager(store RelationalStore, logger Logger, allowedExtensions []string) *DBCollectionManager {
	if len(allowedExtensions) == 0 {
		allowedExtensions = DefaultAllowedExtensions
	}
	return &DBCollectionManager{
		store:   store,
		logger:  logger,
		allowed: allowedExtensions,
	}
}

func (m *DBCollectionManager) Mode() string { return ModeRelational }

func (m *DBCollectionManager) CreateCollection(ctx context.Context, name, description string) (*Collection, error) {
	clean, err := SanitizeCollectionName(name)
	if err != nil {
		return nil, err
	}
	c, err := m.store.CreateCollection(ctx, clean, description)
	if err != nil {
		return nil, err
	}
	m.logger.Info("collection created", "collection", clean)
	return c, nil
}

func (m *DBCollectionManager) ListCollections(ctx context.Context) ([]*Collection, error) {
	return m.store.ListCollections(ctx)
}

func (m *DBCollectionManager) GetCollection(ctx context.Context, name string) (*CollectionInfo, error) {
	clean, err := SanitizeCollectionName(name)
	if err != nil {
		return nil, err
	}
	c, err := m.store.GetCollection(ctx, clean)
	if err != nil {
		return nil, err
	}
	files, err := m.store.GetCollectionFiles(ctx, clean)
	if err != nil {
		return nil, err
	}
	last, err := m.store.GetLastReconciliation(ctx, clean)
	if err != nil {
		return nil, err
	}
	return &CollectionInfo{Collection: *c, Sync: SummarizeSync(clean, files), LastReconciliation: last}, nil
}

// DeleteCollection removes the collection and the bodies no other
// collection references.
func (m *DBCollectionManager) DeleteCollection(ctx context.Context, name string) (int, error) {
	clean, err := SanitizeCollectionName(name)
	if err != nil {
		return 0, err
	}
	removed, err := m.store.DeleteCollectionContent(ctx, clean)
	if err != nil {
		return 0, err
	}
	m.logger.Info("collection deleted", "collection", clean, "files", removed)
	return removed, nil
}

// SaveFile stores the body and upserts the file record in one store
// transaction. A replaced body is pruned in that same transaction.
func (m *DBCollectionManager) SaveFile(ctx context.Context, req SaveRequest) (*FileMetadata, error) {
	if err := CheckExtension(req.Collection, req.Filename, m.allowed); err != nil {
		return nil, err
	}
	rel, err := SanitizeFilePath(req.Folder, req.Filename)
	if err != nil {
		return nil, withCollection(err, req.Collection)
	}
	clean, err := SanitizeCollectionName(req.Collection)
	if err != nil {
		return nil, err
	}
	if err := checkText(clean, rel, req.Content); err != nil {
		return nil, err
	}

	meta, err := m.store.SaveFileContent(ctx, FileUpdate{
		Collection:  clean,
		Path:        rel,
		ContentHash: HashContent([]byte(req.Content)),
		Size:        int64(len(req.Content)),
		SyncStatus:  SyncStatusNotSynced,
		SourceURL:   req.SourceURL,
	}, req.Content)
	if err != nil {
		return nil, err
	}

	m.logger.Info("file saved", "collection", clean, "path", rel, "size", meta.Size)
	return meta, nil
}

func (m *DBCollectionManager) ReadFile(ctx context.Context, collection, path string) (string, error) {
	clean, err := SanitizeCollectionName(collection)
	if err != nil {
		return "", err
	}
	rel, err := CleanRelativePath(path)
	if err != nil {
		return "", withCollection(err, clean)
	}
	meta, err := m.store.GetFileMetadata(ctx, clean, rel)
	if err != nil {
		return "", err
	}
	body, err := m.store.GetContent(ctx, meta.ContentHash)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", StorageError(clean, rel, fmt.Errorf("content %s missing for tracked file", shortHash(meta.ContentHash)))
		}
		return "", StorageError(clean, rel, err)
	}
	return body, nil
}

func (m *DBCollectionManager) DeleteFile(ctx context.Context, collection, path string) error {
	clean, err := SanitizeCollectionName(collection)
	if err != nil {
		return err
	}
	rel, err := CleanRelativePath(path)
	if err != nil {
		return withCollection(err, clean)
	}
	if err := m.store.DeleteFileContent(ctx, clean, rel); err != nil {
		return err
	}
	m.logger.Info("file deleted", "collection", clean, "path", rel)
	return nil
}

func (m *DBCollectionManager) ListFiles(ctx context.Context, collection string) ([]*FileMetadata, error) {
	clean, err := SanitizeCollectionName(collection)
	if err != nil {
		return nil, err
	}
	return m.store.GetCollectionFiles(ctx, clean)
}

func (m *DBCollectionManager) SyncSummary(ctx context.Context, collection string) (*SyncSummary, error) {
	clean, err := SanitizeCollectionName(collection)
	if err != nil {
		return nil, err
	}
	files, err := m.store.GetCollectionFiles(ctx, clean)
	if err != nil {
		return nil, err
	}
	return SummarizeSync(clean, files), nil
}

func (m *DBCollectionManager) SetSyncStatus(ctx context.Context, collection, path string, status SyncStatus, message string) (*FileMetadata, error) {
	return setSyncStatus(ctx, m.store, collection, path, status, message)
}

func (m *DBCollectionManager) Close() error {
	return m.store.Close()
}
