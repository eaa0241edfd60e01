package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/checkrun-dev/engine/pkg/journal"
	"github.com/checkrun-dev/engine/pkg/models"
)

// EntryModel is the persisted form of a pkg/journal.Entry, scoped to the
// run it belongs to. Grounded on the teacher's EventModel/EventRepository
// append/sequence shape (internal/infrastructure/storage/event_repository.go),
// reworked onto journal entries instead of workflow execution events.
type EntryModel struct {
	bun.BaseModel `bun:"table:journal_entries,alias:je"`

	ID        uuid.UUID `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	RunID     string    `bun:"run_id,notnull"`
	CheckID   string    `bun:"check_id,notnull"`
	ScopeKey  string    `bun:"scope_key,notnull"`
	Wave      int       `bun:"wave,notnull"`
	Sequence  int64     `bun:"sequence,notnull"`
	Value     []byte    `bun:"value,type:jsonb"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// EventRepository persists journal entries for runs that opt into durable
// storage (spec.md's Non-goals exclude requiring this). It is used only by
// callers that construct it or call PersistJournal; cmd/checkengine does
// neither.
type EventRepository struct {
	db bun.IDB
}

// NewEventRepository creates an EventRepository over db.
func NewEventRepository(db bun.IDB) *EventRepository {
	return &EventRepository{db: db}
}

// Append persists a single journal entry for runID.
func (r *EventRepository) Append(ctx context.Context, runID string, entry *journal.Entry) error {
	model, err := toModel(runID, entry)
	if err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}
	if _, err := r.db.NewInsert().Model(model).Exec(ctx); err != nil {
		return fmt.Errorf("append entry: %w", err)
	}
	return nil
}

// AppendBatch persists every entry in entries for runID in one insert.
func (r *EventRepository) AppendBatch(ctx context.Context, runID string, entries []*journal.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	models := make([]*EntryModel, 0, len(entries))
	for _, e := range entries {
		model, err := toModel(runID, e)
		if err != nil {
			return fmt.Errorf("encode entry: %w", err)
		}
		models = append(models, model)
	}
	if _, err := r.db.NewInsert().Model(&models).Exec(ctx); err != nil {
		return fmt.Errorf("append entries batch: %w", err)
	}
	return nil
}

// FindByRunID retrieves every persisted entry for runID, ordered by
// sequence.
func (r *EventRepository) FindByRunID(ctx context.Context, runID string) ([]*EntryModel, error) {
	var entries []*EntryModel
	err := r.db.NewSelect().
		Model(&entries).
		Where("run_id = ?", runID).
		Order("sequence ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("find entries by run id: %w", err)
	}
	return entries, nil
}

// FindByRunIDSince retrieves entries for runID with sequence > sinceSequence.
func (r *EventRepository) FindByRunIDSince(ctx context.Context, runID string, sinceSequence int64) ([]*EntryModel, error) {
	var entries []*EntryModel
	err := r.db.NewSelect().
		Model(&entries).
		Where("run_id = ?", runID).
		Where("sequence > ?", sinceSequence).
		Order("sequence ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("find entries since sequence: %w", err)
	}
	return entries, nil
}

// CountByRunID returns the number of entries persisted for runID.
func (r *EventRepository) CountByRunID(ctx context.Context, runID string) (int, error) {
	count, err := r.db.NewSelect().
		Model((*EntryModel)(nil)).
		Where("run_id = ?", runID).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count entries by run id: %w", err)
	}
	return count, nil
}

func toModel(runID string, entry *journal.Entry) (*EntryModel, error) {
	value, err := json.Marshal(entry.Value)
	if err != nil {
		return nil, err
	}
	return &EntryModel{
		RunID:    runID,
		CheckID:  entry.CheckID,
		ScopeKey: entry.Scope.Key(),
		Wave:     entry.Wave,
		Sequence: entry.Sequence,
		Value:    value,
	}, nil
}

// ToCheckResult decodes a persisted entry's value back into a CheckResult,
// for callers rehydrating a run's journal from storage.
func (m *EntryModel) ToCheckResult() (*models.CheckResult, error) {
	var result models.CheckResult
	if err := json.Unmarshal(m.Value, &result); err != nil {
		return nil, fmt.Errorf("decode entry value: %w", err)
	}
	return &result, nil
}
