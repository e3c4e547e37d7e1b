package colstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"time"

	"github.com/hashicorp/go-multierror"
)

// ReconcileResult summarizes one reconciliation pass over a collection.
// Counts include only actions whose metadata write succeeded.
type ReconcileResult struct {
	Collection    string
	FilesAdded    int
	FilesModified int
	FilesDeleted  int
	Actions       []ReconcileAction
}

// HasChanges reports whether any metadata was corrected.
func (r *ReconcileResult) HasChanges() bool {
	return r.FilesAdded > 0 || r.FilesModified > 0 || r.FilesDeleted > 0
}

// Failures returns the actions whose metadata write failed.
func (r *ReconcileResult) Failures() []ReconcileAction {
	var failed []ReconcileAction
	for _, a := range r.Actions {
		if a.Action.Failed() {
			failed = append(failed, a)
		}
	}
	return failed
}

// Err returns a KindPartialFailure error aggregating every failed action,
// or nil when the pass applied everything it attempted.
func (r *ReconcileResult) Err() error {
	var merr *multierror.Error
	for _, a := range r.Failures() {
		merr = multierror.Append(merr, fmt.Errorf("%s %s: %s", a.Action, a.File, a.Error))
	}
	if merr == nil {
		return nil
	}
	return &Error{
		Kind:       KindPartialFailure,
		Collection: r.Collection,
		Message:    fmt.Sprintf("%d of %d reconciliation actions failed", merr.Len(), len(r.Actions)),
		Err:        merr.ErrorOrNil(),
	}
}

// Reconciler detects and corrects drift between a collection directory and
// its metadata records. It never fails a pass because of a single file.
type Reconciler struct {
	store  MetadataStore
	fsmgr  FilesystemManager
	logger Logger
}

// NewReconciler creates a Reconciler over the given store and filesystem.
func NewReconciler(store MetadataStore, fsmgr FilesystemManager, logger Logger) *Reconciler {
	return &Reconciler{
		store:  store,
		fsmgr:  fsmgr,
		logger: logger,
	}
}

// ReconcileCollection scans the collection directory, diffs it against the
// stored records and applies corrective writes. A log entry is written only
// when at least one action was taken.
func (r *Reconciler) ReconcileCollection(ctx context.Context, name string) (*ReconcileResult, error) {
	started := time.Now()
	result := &ReconcileResult{Collection: name}

	scan, err := r.fsmgr.ScanCollection(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			r.logger.Warn("collection directory missing, skipping reconciliation", "collection", name)
			reconcileRunsTotal.WithLabelValues("skipped").Inc()
			return result, nil
		}
		reconcileRunsTotal.WithLabelValues("error").Inc()
		return nil, StorageError(name, "", fmt.Errorf("scanning collection: %w", err))
	}
	skipped := make(map[string]bool, len(scan.Skipped))
	for _, s := range scan.Skipped {
		r.logger.Warn("skipping unreadable file", "collection", name, "path", s.RelativePath, "reason", s.Reason)
		reconcileSkippedFilesTotal.Inc()
		skipped[s.RelativePath] = true
	}

	known, err := r.store.GetCollectionFiles(ctx, name)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			reconcileRunsTotal.WithLabelValues("error").Inc()
			return nil, StorageError(name, "", fmt.Errorf("loading file metadata: %w", err))
		}
		known = nil
	}

	onDisk := make(map[string]*FileInfo, len(scan.Files))
	for _, f := range scan.Files {
		onDisk[f.RelativePath] = f
	}
	// Rows the scan could never see (extension no longer allowed, newly
	// ignored) or could not read this time are left alone rather than
	// treated as deleted. The file is still on disk.
	inStore := make(map[string]*FileMetadata, len(known))
	for _, m := range known {
		if !r.fsmgr.IsVisible(m.Path) || skipped[m.Path] {
			continue
		}
		inStore[m.Path] = m
	}

	added, deleted, candidates := diffPaths(onDisk, inStore)

	for _, p := range added {
		f := onDisk[p]
		_, err := r.store.UpdateFileMetadata(ctx, FileUpdate{
			Collection:  name,
			Path:        p,
			ContentHash: f.ContentHash,
			Size:        f.Size,
			SyncStatus:  SyncStatusNotSynced,
		})
		if err != nil {
			result.record(ActionFailedToAdd, p, "new file found on disk", err)
			continue
		}
		result.FilesAdded++
		result.record(ActionAddedToMetadata, p, "new file found on disk", nil)
	}

	for _, p := range deleted {
		if err := r.store.DeleteFileMetadata(ctx, name, p); err != nil {
			result.record(ActionFailedToRemove, p, "file no longer exists on disk", err)
			continue
		}
		result.FilesDeleted++
		result.record(ActionRemovedFromMetadata, p, "file no longer exists on disk", nil)
	}

	for _, p := range candidates {
		f, m := onDisk[p], inStore[p]
		if f.ContentHash == m.ContentHash {
			continue
		}
		reason := fmt.Sprintf("content hash changed from %s to %s", shortHash(m.ContentHash), shortHash(f.ContentHash))
		_, err := r.store.UpdateFileMetadata(ctx, FileUpdate{
			Collection:  name,
			Path:        p,
			ContentHash: f.ContentHash,
			Size:        f.Size,
			SyncStatus:  SyncStatusNotSynced,
			SourceURL:   m.SourceURL,
		})
		if err != nil {
			result.record(ActionFailedToUpdate, p, reason, err)
			continue
		}
		result.FilesModified++
		result.record(ActionDetectedModification, p, reason, nil)
	}

	for _, a := range result.Actions {
		reconcileActionsTotal.WithLabelValues(string(a.Action)).Inc()
		if a.Action.Failed() {
			r.logger.Warn("reconciliation action failed", "collection", name, "action", string(a.Action), "path", a.File, "error", a.Error)
		} else {
			r.logger.Info("reconciled file", "collection", name, "action", string(a.Action), "path", a.File)
		}
	}

	if len(result.Actions) > 0 {
		if _, err := r.store.LogReconciliation(ctx, name, result.Actions, result.FilesAdded, result.FilesModified, result.FilesDeleted); err != nil {
			r.logger.Warn("failed to write reconciliation log", "collection", name, "error", err)
		}
	}

	outcome := "clean"
	switch {
	case len(result.Failures()) > 0:
		outcome = "partial"
	case result.HasChanges():
		outcome = "changed"
	}
	reconcileRunsTotal.WithLabelValues(outcome).Inc()
	reconcileDurationSeconds.Observe(time.Since(started).Seconds())

	r.logger.Debug("reconciliation finished",
		"collection", name,
		"added", result.FilesAdded,
		"modified", result.FilesModified,
		"deleted", result.FilesDeleted,
		"failed", len(result.Failures()),
	)
	return result, nil
}

// SyncSummary derives the overall sync status of a collection.
func (r *Reconciler) SyncSummary(ctx context.Context, name string) (*SyncSummary, error) {
	files, err := r.store.GetCollectionFiles(ctx, name)
	if err != nil {
		return nil, err
	}
	return SummarizeSync(name, files), nil
}

func (r *ReconcileResult) record(action ActionType, file, reason string, err error) {
	a := ReconcileAction{Action: action, File: file, Reason: reason}
	if err != nil {
		a.Error = err.Error()
	}
	r.Actions = append(r.Actions, a)
}

// diffPaths partitions the union of disk and store paths into paths only on
// disk, paths only in the store, and paths in both. Each slice is sorted.
func diffPaths(onDisk map[string]*FileInfo, inStore map[string]*FileMetadata) (added, deleted, candidates []string) {
	for p := range onDisk {
		if _, ok := inStore[p]; ok {
			candidates = append(candidates, p)
		} else {
			added = append(added, p)
		}
	}
	for p := range inStore {
		if _, ok := onDisk[p]; !ok {
			deleted = append(deleted, p)
		}
	}
	sort.Strings(added)
	sort.Strings(deleted)
	sort.Strings(candidates)
	return added, deleted, candidates
}
