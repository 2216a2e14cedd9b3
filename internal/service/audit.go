package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"machinery-backend/internal/model"
	"machinery-backend/internal/store"
)

// Event is one fact to append to a machine's history.
type Event struct {
	Type        model.EventType
	Description string
	Previous    string
	New         string
	Cost        decimal.NullDecimal
	AlertID     *int64
	Details     model.EventDetails
}

// Recorder appends history entries and ledger records.
type Recorder struct {
	st  store.Store
	now func() time.Time
}

func NewRecorder(st store.Store, now func() time.Time) *Recorder {
	if now == nil {
		now = time.Now
	}
	return &Recorder{st: st, now: now}
}

// Record appends ev to the history of machineID using tx, which must be the
// transaction of the surrounding operation. Timestamps are strictly increasing
// per machine: when the clock has not moved past the last entry the new one is
// stamped one microsecond later.
func (r *Recorder) Record(ctx context.Context, tx store.Store, machineID int64, ev Event, actor Actor) (*model.HistoryEntry, error) {
	if !ev.Type.IsValid() {
		return nil, fmt.Errorf("unknown history event type %q", ev.Type)
	}

	at := r.now().UTC().Truncate(time.Microsecond)
	last, ok, err := tx.LastHistoryTime(ctx, machineID)
	if err != nil {
		return nil, err
	}
	if ok && !at.After(last) {
		at = last.UTC().Truncate(time.Microsecond).Add(time.Microsecond)
	}

	e := &model.HistoryEntry{
		MachineID:     machineID,
		EventType:     ev.Type,
		Description:   ev.Description,
		PreviousValue: ev.Previous,
		NewValue:      ev.New,
		Cost:          ev.Cost,
		OccurredAt:    at,
		UserID:        actor.UserID,
		ActorName:     actor.Name,
		AlertID:       ev.AlertID,
		Details:       datatypes.NewJSONType(ev.Details),
	}
	if err := tx.AppendHistory(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// Ledger appends a record that outlives the entity it describes.
func (r *Recorder) Ledger(ctx context.Context, tx store.Store, entityType string, entityID int64, action model.EventType, summary string, actor Actor, details any) error {
	rec := &model.AuditRecord{
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		Summary:    summary,
		UserID:     actor.UserID,
		ActorName:  actor.Name,
		CreatedAt:  r.now().UTC(),
	}
	if details != nil {
		raw, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("failed to encode audit details: %w", err)
		}
		rec.Details = datatypes.JSON(raw)
	}
	return tx.AppendAudit(ctx, rec)
}

// History returns the newest entries of a machine first.
func (r *Recorder) History(ctx context.Context, machineID int64, limit int) ([]model.HistoryEntry, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if _, err := r.st.GetMachine(ctx, machineID); err != nil {
		return nil, err
	}
	return r.st.ListHistory(ctx, machineID, limit)
}

// AuditTrail returns the ledger records of one entity.
func (r *Recorder) AuditTrail(ctx context.Context, entityType string, entityID int64) ([]model.AuditRecord, error) {
	return r.st.ListAudit(ctx, entityType, entityID)
}

const defaultHistoryLimit = 20
