// Package redact scrubs host-specific paths from messages before they reach
// a user, so failures only ever show collection-relative names.
package redact

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"colstore-go/internal/config"
)

// Placeholders substituted for configured locations.
const (
	ContentRoot = "<content-root>"
	Database    = "<database>"
	MetadataDB  = "<metadata-db>"
	BaseDir     = "<base-dir>"
	LogDir      = "<log-dir>"
	Home        = "~"
)

// Redactor rewrites text for display.
type Redactor interface {
	Redact(s string) string
}

// Nop returns text unchanged.
type Nop struct{}

func (Nop) Redact(s string) string { return s }

type rule struct {
	prefix      string
	placeholder string
}

// PathRedactor replaces absolute path prefixes with placeholders. A prefix
// only matches on path boundaries, so "/data" leaves "/database" alone.
type PathRedactor struct {
	rules []rule
}

var (
	_ Redactor = Nop{}
	_ Redactor = (*PathRedactor)(nil)
)

func NewPathRedactor() *PathRedactor {
	return &PathRedactor{}
}

// Add registers root to be replaced by placeholder. Empty and relative roots
// are ignored. If root resolves through a symlink, the resolved form is
// registered too.
func (r *PathRedactor) Add(root, placeholder string) *PathRedactor {
	if root == "" || !filepath.IsAbs(root) {
		return r
	}
	r.add(filepath.Clean(root), placeholder)
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		r.add(resolved, placeholder)
	}
	return r
}

func (r *PathRedactor) add(prefix, placeholder string) {
	if prefix == string(filepath.Separator) {
		return
	}
	for _, existing := range r.rules {
		if existing.prefix == prefix {
			return
		}
	}
	r.rules = append(r.rules, rule{prefix: prefix, placeholder: placeholder})
	// Longest prefix first so nested roots win over their parents.
	sort.SliceStable(r.rules, func(i, j int) bool {
		return len(r.rules[i].prefix) > len(r.rules[j].prefix)
	})
}

func (r *PathRedactor) Redact(s string) string {
	for _, rl := range r.rules {
		s = replaceOnBoundary(s, rl.prefix, rl.placeholder)
	}
	return s
}

func replaceOnBoundary(s, prefix, placeholder string) string {
	var b strings.Builder
	for {
		i := strings.Index(s, prefix)
		if i < 0 {
			b.WriteString(s)
			return b.String()
		}
		j := i + len(prefix)
		before := i == 0 || !isPathByte(s[i-1])
		after := j == len(s) || s[j] == '/' || s[j] == '\\' || !isPathByte(s[j])
		if before && after {
			b.WriteString(s[:i])
			b.WriteString(placeholder)
		} else {
			b.WriteString(s[:j])
		}
		s = s[j:]
	}
}

func isPathByte(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '-' || c == '_' || c == '.' || c == '/' || c == '\\':
		return true
	case c >= 0x80:
		return true
	}
	return false
}

// NewFromConfig builds a PathRedactor for the locations named in cfg plus the
// user's home directory.
func NewFromConfig(cfg *config.Config) *PathRedactor {
	r := NewPathRedactor().
		Add(cfg.Storage.FilesystemPath, ContentRoot).
		Add(cfg.Storage.DatabasePath, Database).
		Add(cfg.Storage.MetadataDBPath, MetadataDB).
		Add(cfg.LogDir, LogDir).
		Add(cfg.BaseDir, BaseDir)
	if home, err := os.UserHomeDir(); err == nil {
		r.Add(home, Home)
	}
	return r
}

// Error returns err with a redacted message. errors.Is and errors.As still
// see the original chain.
func Error(r Redactor, err error) error {
	if err == nil {
		return nil
	}
	msg := r.Redact(err.Error())
	if msg == err.Error() {
		return err
	}
	return &redactedError{err: err, msg: msg}
}

type redactedError struct {
	err error
	msg string
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }
