package colstore_test

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"colstore-go/internal/colstore"
)

func TestSanitizeCollectionName(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "plain name", raw: "docs", want: "docs"},
		{name: "keeps dashes and dots", raw: "team-notes.v2", want: "team-notes.v2"},
		{name: "separators become underscores", raw: "a/b\\c", want: "a_b_c"},
		{name: "traversal removed", raw: "../etc", want: "_etc"},
		{name: "spaces neutralized", raw: "my docs", want: "my_docs"},
		{name: "unicode letters kept", raw: "naïve", want: "naïve"},
		{name: "control characters dropped", raw: "do\x00cs\n", want: "docs"},
		{name: "leading dots trimmed", raw: ".hidden", want: "hidden"},
		{name: "empty fails", raw: "", wantErr: true},
		{name: "only dots fails", raw: "...", wantErr: true},
		{name: "only control characters fails", raw: "\x00\x01", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := colstore.SanitizeCollectionName(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SanitizeCollectionName(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, colstore.ErrValidation) {
					t.Errorf("error kind = %v, want validation", colstore.KindOf(err))
				}
				return
			}
			if got != tt.want {
				t.Errorf("SanitizeCollectionName(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}

	t.Run("long names are truncated", func(t *testing.T) {
		got, err := colstore.SanitizeCollectionName(strings.Repeat("é", 150))
		if err != nil {
			t.Fatalf("SanitizeCollectionName() error = %v", err)
		}
		if n := utf8.RuneCountInString(got); n != colstore.MaxCollectionNameLength {
			t.Errorf("rune count = %d, want %d", n, colstore.MaxCollectionNameLength)
		}
	})

	t.Run("is idempotent", func(t *testing.T) {
		for _, raw := range []string{"docs", "a/b", "../x", "my docs!"} {
			once, err := colstore.SanitizeCollectionName(raw)
			if err != nil {
				t.Fatalf("SanitizeCollectionName(%q) error = %v", raw, err)
			}
			twice, err := colstore.SanitizeCollectionName(once)
			if err != nil {
				t.Fatalf("SanitizeCollectionName(%q) error = %v", once, err)
			}
			if once != twice {
				t.Errorf("not idempotent: %q -> %q -> %q", raw, once, twice)
			}
		}
	})
}

func TestSanitizeFilePath(t *testing.T) {
	tests := []struct {
		name     string
		folder   string
		filename string
		want     string
		wantErr  bool
	}{
		{name: "bare file", filename: "readme.md", want: "readme.md"},
		{name: "nested folder", folder: "guides/setup", filename: "a.md", want: "guides/setup/a.md"},
		{name: "redundant separators", folder: "/guides//", filename: "a.md", want: "guides/a.md"},
		{name: "backslash folder", folder: "guides\\setup", filename: "a.md", want: "guides/setup/a.md"},
		{name: "separator in filename neutralized", filename: "a/b.md", want: "a_b.md"},
		{name: "parent filename", filename: "..", wantErr: true},
		{name: "parent folder", folder: "../outside", filename: "a.md", wantErr: true},
		{name: "hidden file", filename: ".secret.md", wantErr: true},
		{name: "hidden folder", folder: ".git", filename: "a.md", wantErr: true},
		{name: "blank filename", filename: "   ", wantErr: true},
		{name: "NUL byte", filename: "a\x00.md", wantErr: true},
		{name: "overlong segment", filename: strings.Repeat("a", 300) + ".md", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := colstore.SanitizeFilePath(tt.folder, tt.filename)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SanitizeFilePath(%q, %q) error = %v, wantErr %v", tt.folder, tt.filename, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("SanitizeFilePath(%q, %q) = %q, want %q", tt.folder, tt.filename, got, tt.want)
			}
		})
	}
}

func TestCleanRelativePath(t *testing.T) {
	tests := []struct {
		rel     string
		want    string
		wantErr bool
	}{
		{rel: "a.md", want: "a.md"},
		{rel: "guides/a.md", want: "guides/a.md"},
		{rel: "guides\\a.md", want: "guides/a.md"},
		{rel: "/etc/passwd.txt", wantErr: true},
		{rel: "../a.md", wantErr: true},
		{rel: "guides/../../a.md", wantErr: true},
		{rel: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := colstore.CleanRelativePath(tt.rel)
		if (err != nil) != tt.wantErr {
			t.Errorf("CleanRelativePath(%q) error = %v, wantErr %v", tt.rel, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("CleanRelativePath(%q) = %q, want %q", tt.rel, got, tt.want)
		}
	}
}

func TestCheckExtension(t *testing.T) {
	allowed := []string{".md", ".txt"}

	for _, name := range []string{"a.md", "NOTES.MD", "dir.v2.txt"} {
		if err := colstore.CheckExtension("docs", name, allowed); err != nil {
			t.Errorf("CheckExtension(%q) error = %v", name, err)
		}
	}

	for _, name := range []string{"a.exe", "Makefile", "a.md.bak"} {
		err := colstore.CheckExtension("docs", name, allowed)
		if err == nil {
			t.Errorf("CheckExtension(%q) expected error", name)
			continue
		}
		var cerr *colstore.Error
		if !errors.As(err, &cerr) {
			t.Fatalf("error type = %T, want *colstore.Error", err)
		}
		if cerr.Kind != colstore.KindValidation || cerr.Collection != "docs" || cerr.File != name {
			t.Errorf("error = %+v, want validation error naming docs/%s", cerr, name)
		}
	}
}
