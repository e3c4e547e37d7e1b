package fs

import (
	"errors"
	iofs "io/fs"
	"os"
	"path/filepath"
	"testing"

	"colstore-go/internal/colstore"
	"colstore-go/internal/testutil"
)

func newTestManager(t *testing.T, ignore ...string) *OSFilesystemManager {
	t.Helper()
	m, err := NewOSFilesystemManager(t.TempDir(), nil, ignore)
	if err != nil {
		t.Fatalf("NewOSFilesystemManager() error = %v", err)
	}
	return m
}

func writeRaw(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestOSFilesystemManager_ScanCollection(t *testing.T) {
	t.Run("reports visible files with hashes", func(t *testing.T) {
		m := newTestManager(t)
		dir := filepath.Join(m.Root(), "docs")
		writeRaw(t, filepath.Join(dir, "readme.md"), []byte("v1"))
		writeRaw(t, filepath.Join(dir, "guides", "setup.txt"), []byte("setup"))

		res, err := m.ScanCollection("docs")
		if err != nil {
			t.Fatalf("ScanCollection() error = %v", err)
		}
		if len(res.Files) != 2 {
			t.Fatalf("len(Files) = %d, want 2", len(res.Files))
		}

		byPath := map[string]*colstore.FileInfo{}
		for _, f := range res.Files {
			byPath[f.RelativePath] = f
		}
		got, ok := byPath["guides/setup.txt"]
		if !ok {
			t.Fatalf("nested file missing from scan: %v", byPath)
		}
		if got.ContentHash != testutil.SHA256Hex([]byte("setup")) {
			t.Errorf("ContentHash = %q, want sha256 of content", got.ContentHash)
		}
		if got.Size != 5 {
			t.Errorf("Size = %d, want 5", got.Size)
		}
	})

	t.Run("ignores disallowed, hidden and ignored files", func(t *testing.T) {
		m := newTestManager(t, "*.draft.md")
		dir := filepath.Join(m.Root(), "docs")
		writeRaw(t, filepath.Join(dir, "keep.md"), []byte("keep"))
		writeRaw(t, filepath.Join(dir, "image.png"), []byte("png"))
		writeRaw(t, filepath.Join(dir, ".hidden.md"), []byte("hidden"))
		writeRaw(t, filepath.Join(dir, ".git", "notes.md"), []byte("git"))
		writeRaw(t, filepath.Join(dir, "wip.draft.md"), []byte("draft"))

		res, err := m.ScanCollection("docs")
		if err != nil {
			t.Fatalf("ScanCollection() error = %v", err)
		}
		if len(res.Files) != 1 || res.Files[0].RelativePath != "keep.md" {
			t.Errorf("Files = %v, want only keep.md", res.Files)
		}
		if len(res.Skipped) != 0 {
			t.Errorf("Skipped = %v, want none", res.Skipped)
		}
	})

	t.Run("skips files that are not UTF-8", func(t *testing.T) {
		m := newTestManager(t)
		dir := filepath.Join(m.Root(), "docs")
		writeRaw(t, filepath.Join(dir, "good.md"), []byte("ok"))
		writeRaw(t, filepath.Join(dir, "bad.txt"), []byte{0xff, 0xfe, 0xfd})

		res, err := m.ScanCollection("docs")
		if err != nil {
			t.Fatalf("ScanCollection() error = %v", err)
		}
		if len(res.Files) != 1 {
			t.Errorf("len(Files) = %d, want 1", len(res.Files))
		}
		if len(res.Skipped) != 1 || res.Skipped[0].RelativePath != "bad.txt" {
			t.Errorf("Skipped = %v, want bad.txt", res.Skipped)
		}
	})

	t.Run("missing directory wraps ErrNotExist", func(t *testing.T) {
		m := newTestManager(t)
		_, err := m.ScanCollection("nope")
		if !errors.Is(err, iofs.ErrNotExist) {
			t.Errorf("ScanCollection() error = %v, want ErrNotExist", err)
		}
	})
}

func TestOSFilesystemManager_WriteReadRemove(t *testing.T) {
	m := newTestManager(t)
	if err := m.EnsureCollectionDir("docs"); err != nil {
		t.Fatalf("EnsureCollectionDir() error = %v", err)
	}

	if err := m.WriteFile("docs", "a/b/c.md", []byte("first")); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if err := m.WriteFile("docs", "a/b/c.md", []byte("second")); err != nil {
		t.Fatalf("WriteFile() overwrite error = %v", err)
	}

	got, err := m.ReadFile("docs", "a/b/c.md")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(got) != "second" {
		t.Errorf("ReadFile() = %q, want %q", got, "second")
	}

	entries, err := os.ReadDir(filepath.Join(m.Root(), "docs", "a", "b"))
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want 1 (no temp files left)", len(entries))
	}

	if err := m.RemoveFile("docs", "a/b/c.md"); err != nil {
		t.Fatalf("RemoveFile() error = %v", err)
	}
	if err := m.RemoveFile("docs", "a/b/c.md"); err != nil {
		t.Errorf("RemoveFile() on missing file error = %v, want nil", err)
	}
}

func TestOSFilesystemManager_RefusesEscapes(t *testing.T) {
	m := newTestManager(t)

	tests := []struct {
		name       string
		collection string
		rel        string
	}{
		{"parent traversal", "docs", "../outside.md"},
		{"deep traversal", "docs", "a/../../outside.md"},
		{"collection with separator", "docs/../other", "a.md"},
		{"dot collection", "..", "a.md"},
		{"empty path", "docs", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := m.WriteFile(tt.collection, tt.rel, []byte("x")); err == nil {
				t.Errorf("WriteFile(%q, %q) expected error", tt.collection, tt.rel)
			}
		})
	}
}

func TestOSFilesystemManager_ListCollectionDirs(t *testing.T) {
	t.Run("lists visible directories only", func(t *testing.T) {
		m := newTestManager(t)
		for _, d := range []string{"docs", "notes", ".trash"} {
			if err := os.MkdirAll(filepath.Join(m.Root(), d), 0o755); err != nil {
				t.Fatalf("mkdir: %v", err)
			}
		}
		writeRaw(t, filepath.Join(m.Root(), "stray.md"), []byte("x"))

		dirs, err := m.ListCollectionDirs()
		if err != nil {
			t.Fatalf("ListCollectionDirs() error = %v", err)
		}
		if len(dirs) != 2 || dirs[0] != "docs" || dirs[1] != "notes" {
			t.Errorf("ListCollectionDirs() = %v, want [docs notes]", dirs)
		}
	})

	t.Run("missing root has no collections", func(t *testing.T) {
		m, err := NewOSFilesystemManager(filepath.Join(t.TempDir(), "absent"), nil, nil)
		if err != nil {
			t.Fatalf("NewOSFilesystemManager() error = %v", err)
		}
		dirs, err := m.ListCollectionDirs()
		if err != nil {
			t.Fatalf("ListCollectionDirs() error = %v", err)
		}
		if len(dirs) != 0 {
			t.Errorf("ListCollectionDirs() = %v, want empty", dirs)
		}
	})
}

func TestOSFilesystemManager_IgnoreFile(t *testing.T) {
	root := t.TempDir()
	writeRaw(t, filepath.Join(root, IgnoreFileName), []byte("# local drafts\nscratch.md\n"))

	m, err := NewOSFilesystemManager(root, nil, nil)
	if err != nil {
		t.Fatalf("NewOSFilesystemManager() error = %v", err)
	}
	if m.IsVisible("scratch.md") {
		t.Error("IsVisible(scratch.md) = true, want false")
	}
	if !m.IsVisible("notes/keep.md") {
		t.Error("IsVisible(notes/keep.md) = false, want true")
	}
	if m.IsVisible("notes/keep.exe") {
		t.Error("IsVisible(notes/keep.exe) = true, want false")
	}
}
