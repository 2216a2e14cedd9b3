package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// EventDetails is the typed auxiliary payload of a history entry.
type EventDetails struct {
	Alert         *AlertDetails `json:"alert,omitempty"`
	Automatic     bool          `json:"automatic,omitempty"`
	ChangedFields []string      `json:"changed_fields,omitempty"`
	Notes         string        `json:"notes,omitempty"`
}

// HistoryEntry is an append-only audit record of something that happened to a machine.
// Entries are never updated; they are removed only together with their machine.
type HistoryEntry struct {
	ID            int64               `gorm:"primaryKey" json:"id"`
	MachineID     int64               `gorm:"index:idx_history_machine_time,priority:1;not null" json:"machine_id"`
	EventType     EventType           `gorm:"size:20;not null" json:"event_type"`
	Description   string              `gorm:"type:text;not null" json:"description"`
	PreviousValue string              `gorm:"type:text" json:"previous_value,omitempty"`
	NewValue      string              `gorm:"type:text" json:"new_value,omitempty"`
	Cost          decimal.NullDecimal `gorm:"type:numeric(12,2)" json:"cost"`
	OccurredAt    time.Time           `gorm:"index:idx_history_machine_time,priority:2;not null" json:"occurred_at"`
	UserID        *int64              `json:"user_id,omitempty"`
	ActorName     string              `gorm:"size:200;not null" json:"actor"`
	AlertID       *int64              `gorm:"index" json:"alert_id,omitempty"`

	Details datatypes.JSONType[EventDetails] `json:"details"`

	Machine *Machine `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
