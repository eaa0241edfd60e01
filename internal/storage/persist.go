package storage

import (
	"context"
	"fmt"

	"github.com/checkrun-dev/engine/pkg/journal"
)

// PersistJournal writes every entry currently in j to repo under runID, in
// one batch insert. Intended to be called once a run finishes (or
// periodically against a long-running one); pkg/journal itself has no
// storage dependency, so nothing upstream needs to know this ran.
func PersistJournal(ctx context.Context, repo *EventRepository, runID string, j *journal.Journal) error {
	entries := j.AllEntries()
	if len(entries) == 0 {
		return nil
	}
	if err := repo.AppendBatch(ctx, runID, entries); err != nil {
		return fmt.Errorf("persist journal for run %s: %w", runID, err)
	}
	return nil
}
