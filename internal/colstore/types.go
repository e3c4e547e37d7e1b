package colstore

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Storage modes understood by the storage factory.
const (
	ModeRelational = "relational"
	ModeFilesystem = "filesystem"
)

// SyncStatus is the lifecycle state of a file's downstream vector representation.
type SyncStatus string

const (
	SyncStatusNotSynced SyncStatus = "not_synced"
	SyncStatusSyncing   SyncStatus = "syncing"
	SyncStatusSynced    SyncStatus = "synced"
	SyncStatusError     SyncStatus = "sync_error"
)

// Valid reports whether s is one of the four known statuses.
func (s SyncStatus) Valid() bool {
	switch s {
	case SyncStatusNotSynced, SyncStatusSyncing, SyncStatusSynced, SyncStatusError:
		return true
	}
	return false
}

// ParseSyncStatus converts a raw string into a SyncStatus.
func ParseSyncStatus(raw string) (SyncStatus, error) {
	s := SyncStatus(raw)
	if !s.Valid() {
		return "", ValidationError("", "", fmt.Sprintf("unknown vector sync status %q", raw))
	}
	return s, nil
}

// Collection is a named group of documents.
// FileCount is populated by list and get; TotalSize only by get.
type Collection struct {
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	FileCount   int64
	TotalSize   int64
}

// FileMetadata is the tracked state of one file within a collection.
type FileMetadata struct {
	ID               string
	Collection       string
	Path             string // relative to the collection root, forward slashes
	ContentHash      string
	Size             int64
	CreatedAt        time.Time
	ModifiedAt       time.Time
	SourceURL        string
	SyncStatus       SyncStatus
	LastSyncAttempt  *time.Time
	SyncErrorMessage string
}

// FileUpdate carries the values written by MetadataStore.UpdateFileMetadata.
type FileUpdate struct {
	Collection  string
	Path        string
	ContentHash string
	Size        int64
	SyncStatus  SyncStatus
	SourceURL   string
}

// FileInfo is a transient snapshot of one file found on disk during a scan.
type FileInfo struct {
	RelativePath string
	ContentHash  string
	Size         int64
	ModifiedAt   time.Time
}

// SkippedFile is a file the scanner saw but could not hash.
type SkippedFile struct {
	RelativePath string
	Reason       string
}

// ScanResult is the outcome of scanning one collection directory.
type ScanResult struct {
	Files   []*FileInfo
	Skipped []SkippedFile
}

// ActionType names a corrective action taken by reconciliation.
type ActionType string

const (
	ActionAddedToMetadata      ActionType = "added_to_metadata"
	ActionRemovedFromMetadata  ActionType = "removed_from_metadata"
	ActionDetectedModification ActionType = "detected_modification"
	ActionFailedToAdd          ActionType = "failed_to_add"
	ActionFailedToRemove       ActionType = "failed_to_remove"
	ActionFailedToUpdate       ActionType = "failed_to_update"
)

// Failed reports whether the action records a failed metadata write.
func (a ActionType) Failed() bool {
	switch a {
	case ActionFailedToAdd, ActionFailedToRemove, ActionFailedToUpdate:
		return true
	}
	return false
}

// ReconcileAction is one entry in a reconciliation audit record.
type ReconcileAction struct {
	Action ActionType `json:"action"`
	File   string     `json:"file"`
	Reason string     `json:"reason"`
	Error  string     `json:"error,omitempty"`
}

// ReconciliationLogEntry is an append-only audit record of one reconciliation run.
type ReconciliationLogEntry struct {
	ID            int64
	Collection    string
	Timestamp     time.Time
	FilesAdded    int
	FilesModified int
	FilesDeleted  int
	Actions       []ReconcileAction
}

// SaveRequest describes content to be stored in a collection.
// Folder is optional and may contain nested segments ("guides/setup").
type SaveRequest struct {
	Collection string
	Filename   string
	Content    string
	Folder     string
	SourceURL  string
}

// CollectionInfo is the detailed view of a single collection.
type CollectionInfo struct {
	Collection
	Sync               *SyncSummary
	LastReconciliation *ReconciliationLogEntry
}

// HashContent returns the lowercase hex SHA-256 digest of data.
func HashContent(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// shortHash returns the first eight characters of a digest for log and reason text.
func shortHash(h string) string {
	if len(h) > 8 {
		return h[:8]
	}
	return h
}
