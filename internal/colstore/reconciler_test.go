package colstore_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"colstore-go/internal/colstore"
	"colstore-go/internal/database"
	"colstore-go/internal/testutil"
)

func setupReconciler(t *testing.T) (*colstore.Reconciler, *database.SQLiteDatabase, *testutil.MockFilesystemManager) {
	t.Helper()
	db := testutil.NewTestDatabase(t, nil)
	fsmgr := testutil.NewMockFilesystemManager()

	if _, err := db.CreateCollection(context.Background(), "docs", ""); err != nil {
		t.Fatalf("CreateCollection() error = %v", err)
	}
	if err := fsmgr.EnsureCollectionDir("docs"); err != nil {
		t.Fatalf("EnsureCollectionDir() error = %v", err)
	}
	return colstore.NewReconciler(db, fsmgr, colstore.NewNopLogger()), db, fsmgr
}

func actionsByType(res *colstore.ReconcileResult) map[colstore.ActionType][]string {
	out := make(map[colstore.ActionType][]string)
	for _, a := range res.Actions {
		out[a.Action] = append(out[a.Action], a.File)
	}
	return out
}

func TestReconciler_ReconcileCollection(t *testing.T) {
	ctx := context.Background()

	t.Run("adds files found on disk", func(t *testing.T) {
		r, db, fsmgr := setupReconciler(t)
		fsmgr.AddFile("docs", "readme.md", []byte("hello"))
		fsmgr.AddFile("docs", "guides/setup.md", []byte("steps"))

		res, err := r.ReconcileCollection(ctx, "docs")
		if err != nil {
			t.Fatalf("ReconcileCollection() error = %v", err)
		}
		if res.FilesAdded != 2 || res.FilesModified != 0 || res.FilesDeleted != 0 {
			t.Errorf("counts = %d/%d/%d, want 2/0/0", res.FilesAdded, res.FilesModified, res.FilesDeleted)
		}
		added := actionsByType(res)[colstore.ActionAddedToMetadata]
		if len(added) != 2 || added[0] != "guides/setup.md" || added[1] != "readme.md" {
			t.Errorf("added actions = %v, want sorted [guides/setup.md readme.md]", added)
		}

		meta, err := db.GetFileMetadata(ctx, "docs", "readme.md")
		if err != nil {
			t.Fatalf("GetFileMetadata() error = %v", err)
		}
		if meta.ContentHash != testutil.SHA256Hex([]byte("hello")) {
			t.Errorf("ContentHash = %q, want sha256 of content", meta.ContentHash)
		}
		if meta.Size != 5 {
			t.Errorf("Size = %d, want 5", meta.Size)
		}
		if meta.SyncStatus != colstore.SyncStatusNotSynced {
			t.Errorf("SyncStatus = %q, want not_synced", meta.SyncStatus)
		}

		last, err := db.GetLastReconciliation(ctx, "docs")
		if err != nil {
			t.Fatalf("GetLastReconciliation() error = %v", err)
		}
		if last == nil || last.FilesAdded != 2 || len(last.Actions) != 2 {
			t.Errorf("log entry = %+v, want 2 additions", last)
		}
	})

	t.Run("second pass is a no-op", func(t *testing.T) {
		r, db, fsmgr := setupReconciler(t)
		fsmgr.AddFile("docs", "a.md", []byte("a"))
		fsmgr.AddFile("docs", "b.txt", []byte("b"))

		if _, err := r.ReconcileCollection(ctx, "docs"); err != nil {
			t.Fatalf("first ReconcileCollection() error = %v", err)
		}
		first, _ := db.GetLastReconciliation(ctx, "docs")

		res, err := r.ReconcileCollection(ctx, "docs")
		if err != nil {
			t.Fatalf("second ReconcileCollection() error = %v", err)
		}
		if len(res.Actions) != 0 || res.HasChanges() {
			t.Errorf("second pass actions = %+v, want none", res.Actions)
		}

		second, _ := db.GetLastReconciliation(ctx, "docs")
		if second.ID != first.ID {
			t.Errorf("clean pass wrote a log entry (id %d -> %d)", first.ID, second.ID)
		}
	})

	t.Run("modification resets sync status", func(t *testing.T) {
		r, db, fsmgr := setupReconciler(t)
		if _, err := db.UpdateFileMetadata(ctx, colstore.FileUpdate{
			Collection:  "docs",
			Path:        "a.md",
			ContentHash: testutil.SHA256Hex([]byte("old")),
			Size:        3,
			SourceURL:   "https://example.com/a",
		}); err != nil {
			t.Fatalf("UpdateFileMetadata() error = %v", err)
		}
		if _, err := db.UpdateSyncStatus(ctx, "docs", "a.md", colstore.SyncStatusSynced, ""); err != nil {
			t.Fatalf("UpdateSyncStatus() error = %v", err)
		}
		fsmgr.AddFile("docs", "a.md", []byte("new body"))

		res, err := r.ReconcileCollection(ctx, "docs")
		if err != nil {
			t.Fatalf("ReconcileCollection() error = %v", err)
		}
		if res.FilesModified != 1 {
			t.Fatalf("FilesModified = %d, want 1", res.FilesModified)
		}
		if !strings.Contains(res.Actions[0].Reason, "content hash changed") {
			t.Errorf("Reason = %q", res.Actions[0].Reason)
		}

		meta, _ := db.GetFileMetadata(ctx, "docs", "a.md")
		if meta.SyncStatus != colstore.SyncStatusNotSynced {
			t.Errorf("SyncStatus = %q, want not_synced", meta.SyncStatus)
		}
		if meta.ContentHash != testutil.SHA256Hex([]byte("new body")) {
			t.Error("ContentHash not updated")
		}
		if meta.SourceURL != "https://example.com/a" {
			t.Errorf("SourceURL = %q, want it preserved", meta.SourceURL)
		}
	})

	t.Run("removes files gone from disk", func(t *testing.T) {
		r, db, fsmgr := setupReconciler(t)
		fsmgr.AddFile("docs", "a.md", []byte("a"))
		if _, err := r.ReconcileCollection(ctx, "docs"); err != nil {
			t.Fatalf("ReconcileCollection() error = %v", err)
		}
		fsmgr.DeleteFile("docs", "a.md")

		res, err := r.ReconcileCollection(ctx, "docs")
		if err != nil {
			t.Fatalf("ReconcileCollection() error = %v", err)
		}
		if res.FilesDeleted != 1 {
			t.Errorf("FilesDeleted = %d, want 1", res.FilesDeleted)
		}
		if _, err := db.GetFileMetadata(ctx, "docs", "a.md"); !errors.Is(err, colstore.ErrNotFound) {
			t.Errorf("GetFileMetadata() error = %v, want not found", err)
		}
	})

	t.Run("every path lands in exactly one set", func(t *testing.T) {
		r, db, fsmgr := setupReconciler(t)
		for _, p := range []string{"keep.md", "change.md", "gone.md"} {
			fsmgr.AddFile("docs", p, []byte(p))
		}
		if _, err := r.ReconcileCollection(ctx, "docs"); err != nil {
			t.Fatalf("ReconcileCollection() error = %v", err)
		}
		fsmgr.AddFile("docs", "change.md", []byte("changed"))
		fsmgr.DeleteFile("docs", "gone.md")
		fsmgr.AddFile("docs", "new.md", []byte("new"))

		res, err := r.ReconcileCollection(ctx, "docs")
		if err != nil {
			t.Fatalf("ReconcileCollection() error = %v", err)
		}

		seen := make(map[string]colstore.ActionType)
		for _, a := range res.Actions {
			if prev, dup := seen[a.File]; dup {
				t.Errorf("%s appears as both %s and %s", a.File, prev, a.Action)
			}
			seen[a.File] = a.Action
		}
		want := map[string]colstore.ActionType{
			"new.md":    colstore.ActionAddedToMetadata,
			"gone.md":   colstore.ActionRemovedFromMetadata,
			"change.md": colstore.ActionDetectedModification,
		}
		for p, action := range want {
			if seen[p] != action {
				t.Errorf("action for %s = %q, want %q", p, seen[p], action)
			}
		}
		if _, ok := seen["keep.md"]; ok {
			t.Error("unchanged file produced an action")
		}

		files, _ := db.GetCollectionFiles(ctx, "docs")
		if len(files) != 3 {
			t.Errorf("tracked files = %d, want 3", len(files))
		}
	})

	t.Run("missing directory is skipped", func(t *testing.T) {
		db := testutil.NewTestDatabase(t, nil)
		fsmgr := testutil.NewMockFilesystemManager()
		if _, err := db.CreateCollection(ctx, "ghost", ""); err != nil {
			t.Fatalf("CreateCollection() error = %v", err)
		}
		r := colstore.NewReconciler(db, fsmgr, colstore.NewNopLogger())

		res, err := r.ReconcileCollection(ctx, "ghost")
		if err != nil {
			t.Fatalf("ReconcileCollection() error = %v", err)
		}
		if len(res.Actions) != 0 {
			t.Errorf("actions = %+v, want none", res.Actions)
		}
		if last, _ := db.GetLastReconciliation(ctx, "ghost"); last != nil {
			t.Error("skipped pass wrote a log entry")
		}
	})

	t.Run("disallowed files are never tracked", func(t *testing.T) {
		r, db, fsmgr := setupReconciler(t)
		fsmgr.AddFile("docs", "tool.exe", []byte("MZ"))
		fsmgr.AddFile("docs", ".hidden.md", []byte("x"))
		fsmgr.AddFile("docs", "ok.md", []byte("ok"))

		if _, err := r.ReconcileCollection(ctx, "docs"); err != nil {
			t.Fatalf("ReconcileCollection() error = %v", err)
		}
		files, _ := db.GetCollectionFiles(ctx, "docs")
		if len(files) != 1 || files[0].Path != "ok.md" {
			t.Errorf("tracked = %v, want only ok.md", files)
		}
	})

	t.Run("rows under a disallowed extension are left alone", func(t *testing.T) {
		r, db, _ := setupReconciler(t)
		if _, err := db.UpdateFileMetadata(ctx, colstore.FileUpdate{
			Collection: "docs", Path: "legacy.rst", ContentHash: "abc", Size: 1,
		}); err != nil {
			t.Fatalf("UpdateFileMetadata() error = %v", err)
		}

		res, err := r.ReconcileCollection(ctx, "docs")
		if err != nil {
			t.Fatalf("ReconcileCollection() error = %v", err)
		}
		if res.FilesDeleted != 0 {
			t.Errorf("FilesDeleted = %d, want 0", res.FilesDeleted)
		}
		if _, err := db.GetFileMetadata(ctx, "docs", "legacy.rst"); err != nil {
			t.Errorf("GetFileMetadata() error = %v, want row kept", err)
		}
	})

	t.Run("non UTF-8 files are skipped", func(t *testing.T) {
		r, db, fsmgr := setupReconciler(t)
		fsmgr.AddFile("docs", "binary.txt", []byte{0xff, 0xfe, 0x00})

		res, err := r.ReconcileCollection(ctx, "docs")
		if err != nil {
			t.Fatalf("ReconcileCollection() error = %v", err)
		}
		if res.HasChanges() {
			t.Errorf("actions = %+v, want none", res.Actions)
		}
		if files, _ := db.GetCollectionFiles(ctx, "docs"); len(files) != 0 {
			t.Errorf("tracked = %d files, want 0", len(files))
		}
	})

	t.Run("tracked file that becomes unreadable keeps its row", func(t *testing.T) {
		r, db, fsmgr := setupReconciler(t)
		fsmgr.AddFile("docs", "notes.md", []byte("readable"))
		if _, err := r.ReconcileCollection(ctx, "docs"); err != nil {
			t.Fatalf("ReconcileCollection() error = %v", err)
		}
		if _, err := db.UpdateSyncStatus(ctx, "docs", "notes.md", colstore.SyncStatusSynced, ""); err != nil {
			t.Fatalf("UpdateSyncStatus() error = %v", err)
		}

		fsmgr.AddFile("docs", "notes.md", []byte{'o', 'k', 0xff})
		res, err := r.ReconcileCollection(ctx, "docs")
		if err != nil {
			t.Fatalf("ReconcileCollection() error = %v", err)
		}
		if res.HasChanges() || len(res.Actions) != 0 {
			t.Errorf("actions = %+v, want none", res.Actions)
		}

		meta, err := db.GetFileMetadata(ctx, "docs", "notes.md")
		if err != nil {
			t.Fatalf("GetFileMetadata() error = %v, want row kept", err)
		}
		if meta.ContentHash != testutil.SHA256Hex([]byte("readable")) {
			t.Errorf("ContentHash = %q, want last readable content", meta.ContentHash)
		}
		if meta.SyncStatus != colstore.SyncStatusSynced {
			t.Errorf("SyncStatus = %q, want synced kept", meta.SyncStatus)
		}
	})
}

func TestReconciler_PartialFailure(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewTestDatabase(t, nil)
	store := testutil.NewFaultyStore(db)
	fsmgr := testutil.NewMockFilesystemManager()
	if _, err := db.CreateCollection(ctx, "docs", ""); err != nil {
		t.Fatalf("CreateCollection() error = %v", err)
	}
	fsmgr.AddFile("docs", "a.md", []byte("a"))
	fsmgr.AddFile("docs", "b.md", []byte("b"))
	store.FailUpdate("b.md")

	r := colstore.NewReconciler(store, fsmgr, colstore.NewNopLogger())
	res, err := r.ReconcileCollection(ctx, "docs")
	if err != nil {
		t.Fatalf("ReconcileCollection() error = %v", err)
	}

	if res.FilesAdded != 1 {
		t.Errorf("FilesAdded = %d, want 1", res.FilesAdded)
	}
	failed := res.Failures()
	if len(failed) != 1 || failed[0].Action != colstore.ActionFailedToAdd || failed[0].File != "b.md" {
		t.Fatalf("Failures() = %+v, want failed_to_add b.md", failed)
	}
	if !strings.Contains(failed[0].Error, testutil.ErrInjected.Error()) {
		t.Errorf("failure error = %q", failed[0].Error)
	}

	perr := res.Err()
	if colstore.KindOf(perr) != colstore.KindPartialFailure {
		t.Errorf("Err() kind = %q, want partial_failure", colstore.KindOf(perr))
	}

	last, _ := db.GetLastReconciliation(ctx, "docs")
	if last == nil || last.FilesAdded != 1 || len(last.Actions) != 2 {
		t.Errorf("log entry = %+v, want 1 addition and 2 actions", last)
	}

	t.Run("failed file is retried on the next pass", func(t *testing.T) {
		store.Reset()
		res, err := r.ReconcileCollection(ctx, "docs")
		if err != nil {
			t.Fatalf("ReconcileCollection() error = %v", err)
		}
		if res.FilesAdded != 1 || res.Err() != nil {
			t.Errorf("retry: added = %d, err = %v", res.FilesAdded, res.Err())
		}
	})
}

func TestReconciler_LogWriteFailureKeepsResult(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewTestDatabase(t, nil)
	store := testutil.NewFaultyStore(db)
	fsmgr := testutil.NewMockFilesystemManager()
	if _, err := db.CreateCollection(ctx, "docs", ""); err != nil {
		t.Fatalf("CreateCollection() error = %v", err)
	}
	fsmgr.AddFile("docs", "a.md", []byte("a"))
	store.FailLogWrites()

	r := colstore.NewReconciler(store, fsmgr, colstore.NewNopLogger())
	res, err := r.ReconcileCollection(ctx, "docs")
	if err != nil {
		t.Fatalf("ReconcileCollection() error = %v", err)
	}
	if res.FilesAdded != 1 {
		t.Errorf("FilesAdded = %d, want 1", res.FilesAdded)
	}
	if last, _ := db.GetLastReconciliation(ctx, "docs"); last != nil {
		t.Errorf("log entry = %+v, want none", last)
	}
}
