// Package journal implements the append-only output journal and its
// scoped, snapshotted views, grounded on spec.md §4.2 and on the teacher's
// bun-backed EventRepository's append/sequence discipline.
package journal

import (
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/checkrun-dev/engine/pkg/models"
)

// Entry is one append-only record: a check's result at a given scope,
// stamped with the wave it was produced in and a monotone sequence number.
type Entry struct {
	CheckID   string
	Scope     models.Scope
	Value     *models.CheckResult
	Wave      int
	Sequence  int64
}

// entryList holds every entry ever written for one check id. Appends hold
// a short-lived mutex; reads take an atomic snapshot of the slice header
// and never block a writer, matching §5's "append lock held briefly, read
// lock-free against an immutable prefix" discipline.
type entryList struct {
	mu      sync.Mutex
	entries atomic.Pointer[[]*Entry]
}

func newEntryList() *entryList {
	el := &entryList{}
	empty := []*Entry{}
	el.entries.Store(&empty)
	return el
}

func (el *entryList) append(e *Entry) {
	el.mu.Lock()
	defer el.mu.Unlock()
	cur := *el.entries.Load()
	next := make([]*Entry, len(cur)+1)
	copy(next, cur)
	next[len(cur)] = e
	el.entries.Store(&next)
}

func (el *entryList) snapshot() []*Entry {
	return *el.entries.Load()
}

// Journal is the append-only, concurrency-safe record of every check's
// outputs across a run.
type Journal struct {
	byCheck xsync.MapOf[string, *entryList]
	seq     atomic.Int64
}

// New creates an empty Journal.
func New() *Journal {
	return &Journal{byCheck: xsync.NewMapOf[*entryList]()}
}

// Append records a result for checkID at scope, produced during wave, and
// returns the entry's monotone sequence number.
func (j *Journal) Append(checkID string, scope models.Scope, value *models.CheckResult, wave int) int64 {
	seq := j.seq.Add(1)
	list, _ := j.byCheck.LoadOrCompute(checkID, func() *entryList { return newEntryList() })
	list.append(&Entry{CheckID: checkID, Scope: scope, Value: value, Wave: wave, Sequence: seq})
	return seq
}

// Snapshot captures the current write frontier: every entry with a
// sequence number at most the returned value is visible through a View
// built from it. Because sequence numbers are monotone and entries are
// never mutated in place, a plain int64 is a sufficient opaque snapshot id.
func (j *Journal) Snapshot() int64 {
	return j.seq.Load()
}

// entriesFor returns every entry for checkID with Sequence <= asOf, newest
// last.
func (j *Journal) entriesFor(checkID string, asOf int64) []*Entry {
	list, ok := j.byCheck.Load(checkID)
	if !ok {
		return nil
	}
	all := list.snapshot()
	if len(all) == 0 {
		return nil
	}
	if all[len(all)-1].Sequence <= asOf {
		return all
	}
	out := make([]*Entry, 0, len(all))
	for _, e := range all {
		if e.Sequence <= asOf {
			out = append(out, e)
		}
	}
	return out
}

// AllEntries returns every entry ever appended, across all checks, for
// callers that need to export the full journal (e.g. internal/storage's
// persistence sink). Order is unspecified across checks; within a check
// entries are in append order.
func (j *Journal) AllEntries() []*Entry {
	var out []*Entry
	j.byCheck.Range(func(_ string, list *entryList) bool {
		out = append(out, list.snapshot()...)
		return true
	})
	return out
}

// CheckIDs returns every check id that has ever been appended to.
func (j *Journal) CheckIDs() []string {
	var out []string
	j.byCheck.Range(func(key string, _ *entryList) bool {
		out = append(out, key)
		return true
	})
	return out
}

// EntryCount returns the total number of entries appended across all
// checks, used for JournalSummary.
func (j *Journal) EntryCount() int {
	return int(j.seq.Load())
}
