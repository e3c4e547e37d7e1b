package testutil

import (
	"testing"

	"colstore-go/internal/colstore"
	"colstore-go/internal/database"
)

// NewTestDatabase creates a migrated in-memory SQLite database using clock
// (a ManualClock at DefaultTime when nil) and sequential IDs.
// The database is automatically closed when the test completes.
func NewTestDatabase(t *testing.T, clock colstore.Clock) *database.SQLiteDatabase {
	t.Helper()

	if clock == nil {
		clock = NewManualClock(DefaultTime)
	}
	db, err := database.NewSQLiteDatabase(database.MemoryPath, clock, &sequentialIDs{})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})
	return db
}
