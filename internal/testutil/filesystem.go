package testutil

import (
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"colstore-go/internal/colstore"
)

// MockFile represents a file in the mock filesystem.
type MockFile struct {
	Content []byte
	ModTime time.Time
}

// MockFilesystemManager is an in-memory collection tree for testing.
// Keys are "collection/relative/path". Visibility follows the extension
// allow-list and the dot-file rule, like the OS implementation.
type MockFilesystemManager struct {
	mu      sync.Mutex
	dirs    map[string]bool
	files   map[string]*MockFile
	allowed []string

	// WriteErr, when set, is returned by every WriteFile call.
	WriteErr error
	// RemoveDirErr, when set, is returned by RemoveCollectionDir.
	RemoveDirErr error
}

// NewMockFilesystemManager creates an empty mock tree using the default allow-list.
func NewMockFilesystemManager() *MockFilesystemManager {
	return &MockFilesystemManager{
		dirs:    make(map[string]bool),
		files:   make(map[string]*MockFile),
		allowed: colstore.DefaultAllowedExtensions,
	}
}

// AddFile places a file in the tree directly, as an external process would.
// The collection directory is created if needed.
func (m *MockFilesystemManager) AddFile(collection, relPath string, content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dirs[collection] = true
	m.files[collection+"/"+relPath] = &MockFile{Content: content, ModTime: time.Now()}
}

// DeleteFile removes a file from the tree directly.
func (m *MockFilesystemManager) DeleteFile(collection, relPath string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, collection+"/"+relPath)
}

// HasFile reports whether the tree holds the file.
func (m *MockFilesystemManager) HasFile(collection, relPath string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[collection+"/"+relPath]
	return ok
}

// HasDir reports whether the collection directory exists.
func (m *MockFilesystemManager) HasDir(collection string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dirs[collection]
}

func (m *MockFilesystemManager) Root() string { return "/mock" }

func (m *MockFilesystemManager) EnsureCollectionDir(collection string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dirs[collection] = true
	return nil
}

func (m *MockFilesystemManager) RemoveCollectionDir(collection string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RemoveDirErr != nil {
		return m.RemoveDirErr
	}
	delete(m.dirs, collection)
	prefix := collection + "/"
	for k := range m.files {
		if strings.HasPrefix(k, prefix) {
			delete(m.files, k)
		}
	}
	return nil
}

func (m *MockFilesystemManager) ListCollectionDirs() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var dirs []string
	for d := range m.dirs {
		if !strings.HasPrefix(d, ".") {
			dirs = append(dirs, d)
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}

func (m *MockFilesystemManager) ScanCollection(collection string) (*colstore.ScanResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.dirs[collection] {
		return nil, fmt.Errorf("stat collection directory %s: %w", collection, fs.ErrNotExist)
	}

	res := &colstore.ScanResult{}
	prefix := collection + "/"
	for k, f := range m.files {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		rel := strings.TrimPrefix(k, prefix)
		if !m.isVisible(rel) {
			continue
		}
		if !utf8.Valid(f.Content) {
			res.Skipped = append(res.Skipped, colstore.SkippedFile{RelativePath: rel, Reason: "content is not valid UTF-8 text"})
			continue
		}
		res.Files = append(res.Files, &colstore.FileInfo{
			RelativePath: rel,
			ContentHash:  SHA256Hex(f.Content),
			Size:         int64(len(f.Content)),
			ModifiedAt:   f.ModTime,
		})
	}
	sort.Slice(res.Files, func(i, j int) bool { return res.Files[i].RelativePath < res.Files[j].RelativePath })
	return res, nil
}

func (m *MockFilesystemManager) ReadFile(collection, relPath string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[collection+"/"+relPath]
	if !ok {
		return nil, fmt.Errorf("read %s/%s: %w", collection, relPath, fs.ErrNotExist)
	}
	return append([]byte(nil), f.Content...), nil
}

func (m *MockFilesystemManager) WriteFile(collection, relPath string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.dirs[collection] = true
	m.files[collection+"/"+relPath] = &MockFile{Content: append([]byte(nil), data...), ModTime: time.Now()}
	return nil
}

func (m *MockFilesystemManager) RemoveFile(collection, relPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, collection+"/"+relPath)
	return nil
}

func (m *MockFilesystemManager) IsVisible(relPath string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isVisible(relPath)
}

func (m *MockFilesystemManager) isVisible(relPath string) bool {
	for _, seg := range strings.Split(relPath, "/") {
		if seg == "" || strings.HasPrefix(seg, ".") {
			return false
		}
	}
	return colstore.HasAllowedExtension(path.Base(relPath), m.allowed)
}

// Compile-time check
var _ colstore.FilesystemManager = (*MockFilesystemManager)(nil)
