package colstore

// OverallSyncStatus summarizes the sync state of a whole collection.
type OverallSyncStatus string

const (
	OverallEmpty            OverallSyncStatus = "empty"
	OverallHasUnsyncedFiles OverallSyncStatus = "has_unsynced_files"
	OverallSyncInProgress   OverallSyncStatus = "sync_in_progress"
	OverallHasSyncErrors    OverallSyncStatus = "has_sync_errors"
	OverallFullySynced      OverallSyncStatus = "fully_synced"
)

// SyncSummary is the distribution of vector sync statuses in a collection.
type SyncSummary struct {
	Collection string
	TotalFiles int
	NotSynced  int
	Syncing    int
	Synced     int
	SyncErrors int
	Status     OverallSyncStatus
}

// SyncActionable reports whether a sync run would have work to do.
func (s *SyncSummary) SyncActionable() bool {
	return s.NotSynced > 0
}

// SummarizeSync counts statuses and picks the overall state. Work still to
// do always outranks healthy states: unsynced > syncing > errors > synced.
func SummarizeSync(collection string, files []*FileMetadata) *SyncSummary {
	s := &SyncSummary{Collection: collection, TotalFiles: len(files)}
	for _, f := range files {
		switch f.SyncStatus {
		case SyncStatusNotSynced:
			s.NotSynced++
		case SyncStatusSyncing:
			s.Syncing++
		case SyncStatusSynced:
			s.Synced++
		case SyncStatusError:
			s.SyncErrors++
		}
	}

	switch {
	case s.TotalFiles == 0:
		s.Status = OverallEmpty
	case s.NotSynced > 0:
		s.Status = OverallHasUnsyncedFiles
	case s.Syncing > 0:
		s.Status = OverallSyncInProgress
	case s.SyncErrors > 0:
		s.Status = OverallHasSyncErrors
	default:
		s.Status = OverallFullySynced
	}
	return s
}
