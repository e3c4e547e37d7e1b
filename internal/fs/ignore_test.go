package fs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewIgnoreMatcher(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		want     int
	}{
		{"comments and blanks", []string{"", "  ", "# drafts", "*.draft.md"}, 1},
		{"bare negation and slash", []string{"!", "/", "//"}, 0},
		{"malformed glob", []string{"[a-", "*.tmp"}, 1},
		{"kinds", []string{"*.tmp", "drafts/", "archive/*.csv", "!keep.md"}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewIgnoreMatcher(tt.patterns).Len(); got != tt.want {
				t.Errorf("Len() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestIgnoreMatcher_Match(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		path     string
		want     bool
	}{
		{"no rules", nil, "readme.md", false},
		{"basename at root", []string{"*.draft.md"}, "intro.draft.md", true},
		{"basename nested", []string{"*.draft.md"}, "guides/setup/intro.draft.md", true},
		{"basename miss", []string{"*.draft.md"}, "guides/intro.md", false},
		{"basename does not match a directory", []string{"drafts"}, "drafts/a.md", false},
		{"path pattern at root", []string{"archive/*.csv"}, "archive/2023.csv", true},
		{"path pattern nested", []string{"archive/*.csv"}, "data/archive/2023.csv", true},
		{"path pattern wrong dir", []string{"archive/*.csv"}, "current/2023.csv", false},
		{"leading slash is relative", []string{"/archive/*.csv"}, "archive/2023.csv", true},
		{"dir pattern hides subtree", []string{"drafts/"}, "guides/drafts/deep/a.md", true},
		{"dir pattern ignores files of that name", []string{"drafts/"}, "guides/drafts", false},
		{"dir glob", []string{"tmp-*/"}, "tmp-2024/notes.md", true},
		{"negation re-includes", []string{"*.md", "!keep.md"}, "notes/keep.md", false},
		{"negation keeps others hidden", []string{"*.md", "!keep.md"}, "notes/other.md", true},
		{"last rule wins", []string{"!keep.md", "*.md"}, "keep.md", true},
		{"negated dir", []string{"*.csv", "!exports/"}, "exports/q1.csv", false},
		{"os separators", []string{"archive/*.csv"}, filepath.Join("data", "archive", "a.csv"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewIgnoreMatcher(tt.patterns)
			if got := m.Match(tt.path); got != tt.want {
				t.Errorf("Match(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestParseIgnoreFile(t *testing.T) {
	t.Run("returns raw lines", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), IgnoreFileName)
		if err := os.WriteFile(path, []byte("*.draft.md\r\n# local\n\n!keep.draft.md"), 0o644); err != nil {
			t.Fatalf("writing ignore file: %v", err)
		}

		lines, err := ParseIgnoreFile(path)
		if err != nil {
			t.Fatalf("ParseIgnoreFile() error = %v", err)
		}
		if len(lines) != 4 {
			t.Fatalf("ParseIgnoreFile() = %q, want 4 lines", lines)
		}

		m := NewIgnoreMatcher(lines)
		if m.Len() != 2 {
			t.Errorf("Len() = %d, want 2", m.Len())
		}
		if !m.Match("a.draft.md") || m.Match("keep.draft.md") {
			t.Error("parsed rules do not apply as written")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		lines, err := ParseIgnoreFile(filepath.Join(t.TempDir(), IgnoreFileName))
		if err != nil {
			t.Fatalf("ParseIgnoreFile() error = %v", err)
		}
		if lines != nil {
			t.Errorf("ParseIgnoreFile() = %v, want nil", lines)
		}
	})

	t.Run("unreadable path", func(t *testing.T) {
		if _, err := ParseIgnoreFile(t.TempDir()); err == nil {
			t.Error("ParseIgnoreFile(dir) expected error")
		}
	})
}
