package colstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"unicode/utf8"

	"github.com/hashicorp/go-multierror"
)

// FSOptions configures an FSCollectionManager.
type FSOptions struct {
	// AllowedExtensions is the file extension allow-list. Empty means DefaultAllowedExtensions.
	AllowedExtensions []string
	// AutoReconcile runs a reconciliation pass before reads.
	AutoReconcile bool
}

// FSCollectionManager stores document bytes in a directory tree and mirrors
// their state into a MetadataStore. It is the only writer of file bytes.
type FSCollectionManager struct {
	store         MetadataStore
	fsmgr         FilesystemManager
	reconciler    *Reconciler
	logger        Logger
	allowed       []string
	autoReconcile bool
}

var (
	_ Manager     = (*FSCollectionManager)(nil)
	_ Reconciling = (*FSCollectionManager)(nil)
)

// NewFSCollectionManager wires a filesystem-backed manager. No I/O happens
// here; call DiscoverCollections to register directories created elsewhere.
func NewFSCollectionManager(store MetadataStore, fsmgr FilesystemManager, logger Logger, opts FSOptions) *FSCollectionManager {
	allowed := opts.AllowedExtensions
	if len(allowed) == 0 {
		allowed = DefaultAllowedExtensions
	}
	return &FSCollectionManager{
		store:         store,
		fsmgr:         fsmgr,
		reconciler:    NewReconciler(store, fsmgr, logger),
		logger:        logger,
		allowed:       allowed,
		autoReconcile: opts.AutoReconcile,
	}
}

func (m *FSCollectionManager) Mode() string { return ModeFilesystem }

// CreateCollection creates the directory, then the metadata record. A failed
// metadata insert leaves the directory behind; retrying is safe.
func (m *FSCollectionManager) CreateCollection(ctx context.Context, name, description string) (*Collection, error) {
	clean, err := SanitizeCollectionName(name)
	if err != nil {
		return nil, err
	}
	if err := m.fsmgr.EnsureCollectionDir(clean); err != nil {
		return nil, StorageError(clean, "", fmt.Errorf("creating collection directory: %w", err))
	}
	c, err := m.store.CreateCollection(ctx, clean, description)
	if err != nil {
		return nil, err
	}
	m.logger.Info("collection created", "collection", clean)
	return c, nil
}

func (m *FSCollectionManager) ListCollections(ctx context.Context) ([]*Collection, error) {
	return m.store.ListCollections(ctx)
}

// GetCollection returns the collection record with its sync summary and the
// most recent reconciliation entry.
func (m *FSCollectionManager) GetCollection(ctx context.Context, name string) (*CollectionInfo, error) {
	clean, err := SanitizeCollectionName(name)
	if err != nil {
		return nil, err
	}
	m.maybeReconcile(ctx, clean)

	c, err := m.store.GetCollection(ctx, clean)
	if err != nil {
		return nil, err
	}
	summary, err := m.reconciler.SyncSummary(ctx, clean)
	if err != nil {
		return nil, err
	}
	last, err := m.store.GetLastReconciliation(ctx, clean)
	if err != nil {
		return nil, err
	}
	return &CollectionInfo{Collection: *c, Sync: summary, LastReconciliation: last}, nil
}

// DeleteCollection removes tracking first, then the directory tree. A failed
// directory removal is logged; the files are already untracked.
func (m *FSCollectionManager) DeleteCollection(ctx context.Context, name string) (int, error) {
	clean, err := SanitizeCollectionName(name)
	if err != nil {
		return 0, err
	}
	removed, err := m.store.DeleteCollection(ctx, clean)
	if err != nil {
		return 0, err
	}
	if err := m.fsmgr.RemoveCollectionDir(clean); err != nil {
		m.logger.Warn("collection untracked but directory removal failed", "collection", clean, "error", err)
	}
	m.logger.Info("collection deleted", "collection", clean, "files", removed)
	return removed, nil
}

// SaveFile writes content to disk, then records it as not_synced. If the
// metadata write fails, the file is restored to its previous bytes (or
// removed) so no untracked content is left behind.
func (m *FSCollectionManager) SaveFile(ctx context.Context, req SaveRequest) (*FileMetadata, error) {
	if err := CheckExtension(req.Collection, req.Filename, m.allowed); err != nil {
		return nil, err
	}
	rel, err := SanitizeFilePath(req.Folder, req.Filename)
	if err != nil {
		return nil, withCollection(err, req.Collection)
	}
	if !m.fsmgr.IsVisible(rel) {
		return nil, ValidationError(req.Collection, rel, "file path matches an ignore pattern")
	}
	clean, err := SanitizeCollectionName(req.Collection)
	if err != nil {
		return nil, err
	}
	if err := checkText(clean, rel, req.Content); err != nil {
		return nil, err
	}
	exists, err := m.store.CollectionExists(ctx, clean)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, NotFoundError(clean, "")
	}

	previous, readErr := m.fsmgr.ReadFile(clean, rel)
	hadPrevious := readErr == nil

	data := []byte(req.Content)
	if err := m.fsmgr.WriteFile(clean, rel, data); err != nil {
		return nil, StorageError(clean, rel, fmt.Errorf("writing file: %w", err))
	}

	meta, err := m.store.UpdateFileMetadata(ctx, FileUpdate{
		Collection:  clean,
		Path:        rel,
		ContentHash: HashContent(data),
		Size:        int64(len(data)),
		SyncStatus:  SyncStatusNotSynced,
		SourceURL:   req.SourceURL,
	})
	if err != nil {
		m.rollbackWrite(clean, rel, previous, hadPrevious)
		return nil, StorageError(clean, rel, err)
	}

	m.logger.Info("file saved", "collection", clean, "path", rel, "size", meta.Size)
	return meta, nil
}

func (m *FSCollectionManager) rollbackWrite(collection, rel string, previous []byte, hadPrevious bool) {
	var err error
	if hadPrevious {
		err = m.fsmgr.WriteFile(collection, rel, previous)
	} else {
		err = m.fsmgr.RemoveFile(collection, rel)
	}
	if err != nil {
		m.logger.Error("failed to roll back file write", "collection", collection, "path", rel, "error", err)
	}
}

// ReadFile returns the content of a tracked file.
func (m *FSCollectionManager) ReadFile(ctx context.Context, collection, path string) (string, error) {
	clean, err := SanitizeCollectionName(collection)
	if err != nil {
		return "", err
	}
	rel, err := CleanRelativePath(path)
	if err != nil {
		return "", withCollection(err, clean)
	}
	m.maybeReconcile(ctx, clean)

	if _, err := m.store.GetFileMetadata(ctx, clean, rel); err != nil {
		return "", err
	}
	data, err := m.fsmgr.ReadFile(clean, rel)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", NotFoundError(clean, rel)
		}
		return "", StorageError(clean, rel, fmt.Errorf("reading file: %w", err))
	}
	if !utf8.Valid(data) {
		return "", StorageError(clean, rel, errors.New("file content is not valid UTF-8"))
	}
	return string(data), nil
}

// DeleteFile removes the metadata record, then the file on disk.
func (m *FSCollectionManager) DeleteFile(ctx context.Context, collection, path string) error {
	clean, err := SanitizeCollectionName(collection)
	if err != nil {
		return err
	}
	rel, err := CleanRelativePath(path)
	if err != nil {
		return withCollection(err, clean)
	}
	if err := m.store.DeleteFileMetadata(ctx, clean, rel); err != nil {
		return err
	}
	if err := m.fsmgr.RemoveFile(clean, rel); err != nil {
		return StorageError(clean, rel, fmt.Errorf("removing file: %w", err))
	}
	m.logger.Info("file deleted", "collection", clean, "path", rel)
	return nil
}

func (m *FSCollectionManager) ListFiles(ctx context.Context, collection string) ([]*FileMetadata, error) {
	clean, err := SanitizeCollectionName(collection)
	if err != nil {
		return nil, err
	}
	m.maybeReconcile(ctx, clean)
	return m.store.GetCollectionFiles(ctx, clean)
}

func (m *FSCollectionManager) SyncSummary(ctx context.Context, collection string) (*SyncSummary, error) {
	clean, err := SanitizeCollectionName(collection)
	if err != nil {
		return nil, err
	}
	return m.reconciler.SyncSummary(ctx, clean)
}

func (m *FSCollectionManager) SetSyncStatus(ctx context.Context, collection, path string, status SyncStatus, message string) (*FileMetadata, error) {
	return setSyncStatus(ctx, m.store, collection, path, status, message)
}

// ReconcileCollection runs one reconciliation pass for a collection.
func (m *FSCollectionManager) ReconcileCollection(ctx context.Context, name string) (*ReconcileResult, error) {
	clean, err := SanitizeCollectionName(name)
	if err != nil {
		return nil, err
	}
	return m.reconciler.ReconcileCollection(ctx, clean)
}

// DiscoverCollections registers directories under the content root that
// have no collection record. Directory names go through the same
// sanitization as explicit creation, so names that collapse to the same
// string are one collection. Directories that sanitize to nothing are skipped.
func (m *FSCollectionManager) DiscoverCollections(ctx context.Context) ([]string, error) {
	dirs, err := m.fsmgr.ListCollectionDirs()
	if err != nil {
		return nil, StorageError("", "", fmt.Errorf("listing collection directories: %w", err))
	}

	var created []string
	seen := make(map[string]bool, len(dirs))
	for _, dir := range dirs {
		name, err := SanitizeCollectionName(dir)
		if err != nil || seen[name] {
			continue
		}
		seen[name] = true

		exists, err := m.store.CollectionExists(ctx, name)
		if err != nil {
			return created, err
		}
		if exists {
			continue
		}
		desc := fmt.Sprintf("Auto-discovered collection from directory %q", dir)
		if _, err := m.store.CreateCollection(ctx, name, desc); err != nil {
			if errors.Is(err, ErrAlreadyExists) {
				continue
			}
			return created, err
		}
		m.logger.Info("collection discovered on disk", "collection", name, "directory", dir)
		created = append(created, name)
	}
	return created, nil
}

// ReconcileAll discovers new collection directories and reconciles every
// known collection. Per-collection failures are aggregated; the pass continues.
func (m *FSCollectionManager) ReconcileAll(ctx context.Context) ([]*ReconcileResult, error) {
	var merr *multierror.Error
	if _, err := m.DiscoverCollections(ctx); err != nil {
		merr = multierror.Append(merr, err)
	}

	collections, err := m.store.ListCollections(ctx)
	if err != nil {
		return nil, multierror.Append(merr, err).ErrorOrNil()
	}

	results := make([]*ReconcileResult, 0, len(collections))
	for _, c := range collections {
		if err := ctx.Err(); err != nil {
			return results, multierror.Append(merr, err).ErrorOrNil()
		}
		res, err := m.reconciler.ReconcileCollection(ctx, c.Name)
		if err != nil {
			merr = multierror.Append(merr, err)
			continue
		}
		if perr := res.Err(); perr != nil {
			merr = multierror.Append(merr, perr)
		}
		results = append(results, res)
	}
	return results, merr.ErrorOrNil()
}

func (m *FSCollectionManager) maybeReconcile(ctx context.Context, collection string) {
	if !m.autoReconcile {
		return
	}
	if _, err := m.reconciler.ReconcileCollection(ctx, collection); err != nil {
		m.logger.Warn("implicit reconciliation failed", "collection", collection, "error", err)
	}
}

// Close closes the metadata store.
func (m *FSCollectionManager) Close() error {
	return m.store.Close()
}

func setSyncStatus(ctx context.Context, store MetadataStore, collection, path string, status SyncStatus, message string) (*FileMetadata, error) {
	if !status.Valid() {
		return nil, ValidationError(collection, path, fmt.Sprintf("unknown vector sync status %q", status))
	}
	clean, err := SanitizeCollectionName(collection)
	if err != nil {
		return nil, err
	}
	rel, err := CleanRelativePath(path)
	if err != nil {
		return nil, withCollection(err, clean)
	}
	return store.UpdateSyncStatus(ctx, clean, rel, status, message)
}

// withCollection fills in the collection name on a classified error.
func withCollection(err error, collection string) error {
	var e *Error
	if errors.As(err, &e) && e.Collection == "" {
		cp := *e
		cp.Collection = collection
		return &cp
	}
	return err
}
