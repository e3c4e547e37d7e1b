package fs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// IgnoreFileName is read from the content root for extra ignore patterns.
const IgnoreFileName = ".colstoreignore"

type patternKind int

const (
	matchBasename patternKind = iota // "*.draft.md"
	matchPath                        // "drafts/*.md", any trailing run of segments
	matchDir                         // "drafts/", any enclosing directory
)

type ignoreRule struct {
	glob   string
	kind   patternKind
	negate bool
}

// IgnoreMatcher decides which collection-relative paths the scanner hides.
//
// Rules are evaluated in order and the last one that matches wins, so a
// later "!keep.md" re-includes a file an earlier "*.md" hid. A pattern ending
// in '/' matches directories only and hides everything beneath them. A
// pattern containing '/' matches the path or any trailing run of its segments.
// Anything else matches the basename.
type IgnoreMatcher struct {
	rules []ignoreRule
}

// NewIgnoreMatcher parses raw patterns. Blank lines and '#' comments are skipped,
// as are patterns filepath.Match rejects.
func NewIgnoreMatcher(rawPatterns []string) *IgnoreMatcher {
	m := &IgnoreMatcher{}
	for _, raw := range rawPatterns {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}

		var r ignoreRule
		if rest, ok := strings.CutPrefix(raw, "!"); ok {
			r.negate = true
			raw = rest
		}
		raw = strings.TrimPrefix(raw, "/")
		switch {
		case strings.HasSuffix(raw, "/"):
			r.kind = matchDir
			raw = strings.TrimRight(raw, "/")
		case strings.Contains(raw, "/"):
			r.kind = matchPath
		}
		if raw == "" {
			continue
		}
		if _, err := filepath.Match(raw, ""); err != nil {
			continue
		}
		r.glob = raw
		m.rules = append(m.rules, r)
	}
	return m
}

// Len returns the number of usable rules.
func (m *IgnoreMatcher) Len() int { return len(m.rules) }

// Match reports whether relativePath is ignored.
func (m *IgnoreMatcher) Match(relativePath string) bool {
	if len(m.rules) == 0 {
		return false
	}

	segs := strings.Split(filepath.ToSlash(relativePath), "/")
	ignored := false
	for _, r := range m.rules {
		if r.matches(segs) {
			ignored = !r.negate
		}
	}
	return ignored
}

func (r ignoreRule) matches(segs []string) bool {
	switch r.kind {
	case matchDir:
		for _, dir := range segs[:len(segs)-1] {
			if ok, _ := filepath.Match(r.glob, dir); ok {
				return true
			}
		}
	case matchPath:
		for i := range segs {
			if ok, _ := filepath.Match(r.glob, strings.Join(segs[i:], "/")); ok {
				return true
			}
		}
	default:
		ok, _ := filepath.Match(r.glob, segs[len(segs)-1])
		return ok
	}
	return false
}

// ParseIgnoreFile returns the lines of an ignore file, or nil if it does not exist.
func ParseIgnoreFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading ignore file: %w", err)
	}
	return strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n"), nil
}
