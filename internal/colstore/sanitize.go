package colstore

import (
	"fmt"
	"path"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxCollectionNameLength is the rune limit applied to collection names.
// Longer names are truncated rather than rejected.
const MaxCollectionNameLength = 100

// maxPathSegmentBytes matches the common filesystem limit for one path element.
const maxPathSegmentBytes = 255

// DefaultAllowedExtensions is the extension allow-list used when none is configured.
var DefaultAllowedExtensions = []string{".md", ".txt", ".json", ".yaml", ".yml", ".csv"}

// SanitizeCollectionName neutralizes separators, traversal sequences and
// control characters, and truncates overlong names. It fails only when
// nothing usable remains.
func SanitizeCollectionName(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r == 0 || unicode.IsControl(r):
			continue
		case r == '/' || r == '\\':
			b.WriteRune('_')
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' || r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	name := b.String()
	for strings.Contains(name, "..") {
		name = strings.ReplaceAll(name, "..", "")
	}
	name = strings.Trim(name, ".")

	if utf8.RuneCountInString(name) > MaxCollectionNameLength {
		name = string([]rune(name)[:MaxCollectionNameLength])
		name = strings.TrimRight(name, ".")
	}

	if name == "" {
		return "", ValidationError(raw, "", "collection name is empty after sanitization")
	}
	return name, nil
}

// SanitizeFilePath builds the collection-relative path for filename inside
// folder. Separators inside filename are neutralized; folder may be nested
// but must not escape the collection root or name hidden entries.
func SanitizeFilePath(folder, filename string) (string, error) {
	name := strings.TrimSpace(filename)
	name = strings.NewReplacer("/", "_", "\\", "_").Replace(name)
	if err := checkSegment(name, filename); err != nil {
		return "", err
	}

	var segments []string
	for _, seg := range strings.FieldsFunc(folder, func(r rune) bool { return r == '/' || r == '\\' }) {
		seg = strings.TrimSpace(seg)
		if seg == "" || seg == "." {
			continue
		}
		if err := checkSegment(seg, filename); err != nil {
			return "", err
		}
		segments = append(segments, seg)
	}

	return path.Join(append(segments, name)...), nil
}

// CleanRelativePath validates a collection-relative path supplied by a caller
// (for example to read or delete a file) and returns it in canonical form.
func CleanRelativePath(rel string) (string, error) {
	idx := strings.LastIndexAny(rel, "/\\")
	if idx < 0 {
		return SanitizeFilePath("", rel)
	}
	if strings.HasPrefix(rel, "/") || strings.HasPrefix(rel, "\\") {
		return "", ValidationError("", rel, "file path must be relative to the collection")
	}
	return SanitizeFilePath(rel[:idx], rel[idx+1:])
}

func checkSegment(seg, file string) error {
	switch {
	case seg == "":
		return ValidationError("", file, "file name is empty")
	case seg == "." || seg == "..":
		return ValidationError("", file, "parent directory references are not allowed")
	case strings.ContainsRune(seg, 0):
		return ValidationError("", file, "file path contains a NUL byte")
	case strings.HasPrefix(seg, "."):
		return ValidationError("", file, fmt.Sprintf("hidden path element %q is not allowed", seg))
	case len(seg) > maxPathSegmentBytes:
		return ValidationError("", file, fmt.Sprintf("path element exceeds %d bytes", maxPathSegmentBytes))
	}
	return nil
}

// HasAllowedExtension reports whether name ends in one of the allowed
// extensions, compared case-insensitively.
func HasAllowedExtension(name string, allowed []string) bool {
	ext := strings.ToLower(path.Ext(name))
	if ext == "" {
		return false
	}
	for _, a := range allowed {
		if strings.ToLower(a) == ext {
			return true
		}
	}
	return false
}

// CheckExtension returns a validation error when filename is not on the allow-list.
func CheckExtension(collection, filename string, allowed []string) error {
	if HasAllowedExtension(filename, allowed) {
		return nil
	}
	return ValidationError(collection, filename,
		fmt.Sprintf("file extension %q is not allowed (allowed: %s)", path.Ext(filename), strings.Join(allowed, " ")))
}

// checkText rejects content the scanner would skip, so a saved file can
// always be rediscovered by reconciliation.
func checkText(collection, rel, content string) error {
	if !utf8.ValidString(content) {
		return ValidationError(collection, rel, "content is not valid UTF-8 text")
	}
	return nil
}
