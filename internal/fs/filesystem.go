package fs

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"colstore-go/internal/colstore"
)

// OSFilesystemManager is the real filesystem implementation of colstore.FilesystemManager.
// Collections are directories directly under root.
type OSFilesystemManager struct {
	root    string
	allowed []string
	ignore  *IgnoreMatcher
}

// NewOSFilesystemManager creates a filesystem manager rooted at root. The
// extension allow-list defaults to colstore.DefaultAllowedExtensions.
// Patterns from root/.colstoreignore are appended to ignorePatterns.
func NewOSFilesystemManager(root string, allowed, ignorePatterns []string) (*OSFilesystemManager, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving content root: %w", err)
	}
	if len(allowed) == 0 {
		allowed = colstore.DefaultAllowedExtensions
	}

	filePatterns, err := ParseIgnoreFile(filepath.Join(abs, IgnoreFileName))
	if err != nil {
		return nil, err
	}
	patterns := append(append([]string{}, ignorePatterns...), filePatterns...)

	return &OSFilesystemManager{
		root:    abs,
		allowed: allowed,
		ignore:  NewIgnoreMatcher(patterns),
	}, nil
}

func (m *OSFilesystemManager) Root() string { return m.root }

// collectionDir returns the absolute directory of a collection, refusing
// names that would step outside the root.
func (m *OSFilesystemManager) collectionDir(collection string) (string, error) {
	if collection == "" || strings.ContainsAny(collection, `/\`) || collection == "." || collection == ".." {
		return "", fmt.Errorf("invalid collection directory name %q", collection)
	}
	return filepath.Join(m.root, collection), nil
}

// filePath resolves a collection-relative path and verifies it stays inside the collection.
func (m *OSFilesystemManager) filePath(collection, relPath string) (string, error) {
	dir, err := m.collectionDir(collection)
	if err != nil {
		return "", err
	}
	full := filepath.Join(dir, filepath.FromSlash(relPath))
	rel, err := filepath.Rel(dir, full)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes collection %q", relPath, collection)
	}
	return full, nil
}

func (m *OSFilesystemManager) EnsureCollectionDir(collection string) error {
	dir, err := m.collectionDir(collection)
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}

func (m *OSFilesystemManager) RemoveCollectionDir(collection string) error {
	dir, err := m.collectionDir(collection)
	if err != nil {
		return err
	}
	return os.RemoveAll(dir)
}

// ListCollectionDirs returns visible directory names under the root. A
// missing root has no collections.
func (m *OSFilesystemManager) ListCollectionDirs() ([]string, error) {
	entries, err := os.ReadDir(m.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading content root: %w", err)
	}

	var dirs []string
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		dirs = append(dirs, e.Name())
	}
	return dirs, nil
}

// ScanCollection walks the collection directory. Hidden directories are not
// descended into; files that are not visible are not reported at all; files
// that cannot be read as UTF-8 text are reported as skipped.
func (m *OSFilesystemManager) ScanCollection(collection string) (*colstore.ScanResult, error) {
	dir, err := m.collectionDir(collection)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("stat collection directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("collection path is not a directory: %s", collection)
	}

	result := &colstore.ScanResult{}
	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == dir {
				return err
			}
			rel, _ := filepath.Rel(dir, p)
			result.Skipped = append(result.Skipped, colstore.SkippedFile{RelativePath: filepath.ToSlash(rel), Reason: err.Error()})
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if p == dir {
			return nil
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return fmt.Errorf("relative path for %s: %w", p, err)
		}
		rel = filepath.ToSlash(rel)
		if !m.IsVisible(rel) {
			return nil
		}

		fi, skip := readFileInfo(p, rel)
		if skip != nil {
			result.Skipped = append(result.Skipped, *skip)
			return nil
		}
		result.Files = append(result.Files, fi)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking collection directory: %w", err)
	}
	return result, nil
}

func readFileInfo(fullPath, rel string) (*colstore.FileInfo, *colstore.SkippedFile) {
	info, err := os.Stat(fullPath)
	if err != nil {
		return nil, &colstore.SkippedFile{RelativePath: rel, Reason: err.Error()}
	}
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, &colstore.SkippedFile{RelativePath: rel, Reason: err.Error()}
	}
	if !utf8.Valid(data) {
		return nil, &colstore.SkippedFile{RelativePath: rel, Reason: "content is not valid UTF-8 text"}
	}
	return &colstore.FileInfo{
		RelativePath: rel,
		ContentHash:  colstore.HashContent(data),
		Size:         int64(len(data)),
		ModifiedAt:   info.ModTime().UTC(),
	}, nil
}

func (m *OSFilesystemManager) ReadFile(collection, relPath string) ([]byte, error) {
	p, err := m.filePath(collection, relPath)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(p)
}

// WriteFile replaces the file atomically (temp file + rename), creating parent directories.
func (m *OSFilesystemManager) WriteFile(collection, relPath string, data []byte) error {
	p, err := m.filePath(collection, relPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}
	return writeFileAtomic(p, bytes.NewReader(data), int64(len(data)))
}

func (m *OSFilesystemManager) RemoveFile(collection, relPath string) error {
	p, err := m.filePath(collection, relPath)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// IsVisible reports whether a collection-relative path passes the dot-file
// rule, the extension allow-list and the ignore patterns.
func (m *OSFilesystemManager) IsVisible(relPath string) bool {
	for _, seg := range strings.Split(relPath, "/") {
		if seg == "" || strings.HasPrefix(seg, ".") {
			return false
		}
	}
	if !colstore.HasAllowedExtension(relPath, m.allowed) {
		return false
	}
	return !m.ignore.Match(filepath.FromSlash(relPath))
}

// writeFileAtomic writes r to destPath via a temp file in the same directory.
// The temp name starts with a dot, so a concurrent scan never sees it.
func writeFileAtomic(destPath string, r io.Reader, expectedSize int64) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmpFile, r)
	if err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if written != expectedSize {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", expectedSize, written)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return fmt.Errorf("failed to set file mode: %w", err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

// Compile-time check that OSFilesystemManager implements colstore.FilesystemManager.
var _ colstore.FilesystemManager = (*OSFilesystemManager)(nil)
