package testutil

import (
	"context"
	"errors"
	"sync"

	"colstore-go/internal/colstore"
)

// ErrInjected is the failure returned by FaultyStore for armed paths.
var ErrInjected = errors.New("injected store failure")

// FaultyStore wraps a MetadataStore and fails selected writes.
// Unarmed calls pass straight through.
type FaultyStore struct {
	colstore.MetadataStore

	mu           sync.Mutex
	failUpdate   map[string]bool
	failDelete   map[string]bool
	failLogWrite bool
}

// NewFaultyStore wraps inner.
func NewFaultyStore(inner colstore.MetadataStore) *FaultyStore {
	return &FaultyStore{
		MetadataStore: inner,
		failUpdate:    make(map[string]bool),
		failDelete:    make(map[string]bool),
	}
}

// FailUpdate makes UpdateFileMetadata fail for path.
func (s *FaultyStore) FailUpdate(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failUpdate[path] = true
}

// FailDelete makes DeleteFileMetadata fail for path.
func (s *FaultyStore) FailDelete(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failDelete[path] = true
}

// FailLogWrites makes LogReconciliation fail.
func (s *FaultyStore) FailLogWrites() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failLogWrite = true
}

// Reset disarms every failure.
func (s *FaultyStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failUpdate = make(map[string]bool)
	s.failDelete = make(map[string]bool)
	s.failLogWrite = false
}

func (s *FaultyStore) UpdateFileMetadata(ctx context.Context, u colstore.FileUpdate) (*colstore.FileMetadata, error) {
	s.mu.Lock()
	fail := s.failUpdate[u.Path]
	s.mu.Unlock()
	if fail {
		return nil, colstore.StorageError(u.Collection, u.Path, ErrInjected)
	}
	return s.MetadataStore.UpdateFileMetadata(ctx, u)
}

func (s *FaultyStore) DeleteFileMetadata(ctx context.Context, collection, path string) error {
	s.mu.Lock()
	fail := s.failDelete[path]
	s.mu.Unlock()
	if fail {
		return colstore.StorageError(collection, path, ErrInjected)
	}
	return s.MetadataStore.DeleteFileMetadata(ctx, collection, path)
}

func (s *FaultyStore) LogReconciliation(ctx context.Context, collection string, actions []colstore.ReconcileAction, added, modified, deleted int) (*colstore.ReconciliationLogEntry, error) {
	s.mu.Lock()
	fail := s.failLogWrite
	s.mu.Unlock()
	if fail {
		return nil, colstore.StorageError(collection, "", ErrInjected)
	}
	return s.MetadataStore.LogReconciliation(ctx, collection, actions, added, modified, deleted)
}

var _ colstore.MetadataStore = (*FaultyStore)(nil)
