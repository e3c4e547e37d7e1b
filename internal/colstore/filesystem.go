package colstore

// FilesystemManager abstracts the collection directory tree.
// All paths it accepts are collection names and collection-relative paths;
// implementations must refuse anything that resolves outside the content root.
type FilesystemManager interface {
	// Root returns the content root that holds one directory per collection.
	Root() string

	// EnsureCollectionDir creates the collection directory (mkdir -p semantics).
	EnsureCollectionDir(collection string) error

	// RemoveCollectionDir removes the collection directory tree.
	RemoveCollectionDir(collection string) error

	// ListCollectionDirs returns the names of visible directories under the root.
	ListCollectionDirs() ([]string, error)

	// ScanCollection walks a collection directory and hashes every visible file.
	// Returns an error wrapping fs.ErrNotExist if the directory is missing.
	ScanCollection(collection string) (*ScanResult, error)

	// ReadFile returns the raw bytes of a file.
	ReadFile(collection, relPath string) ([]byte, error)

	// WriteFile atomically replaces a file, creating parent directories.
	WriteFile(collection, relPath string, data []byte) error

	// RemoveFile deletes a file. A missing file is not an error.
	RemoveFile(collection, relPath string) error

	// IsVisible reports whether a relative path would be picked up by ScanCollection.
	IsVisible(relPath string) bool
}
