package model

import (
	"time"

	"gorm.io/datatypes"
)

// AuditRecord is a ledger row that outlives the entity it describes; it has no foreign keys.
type AuditRecord struct {
	ID         int64          `gorm:"primaryKey" json:"id"`
	EntityType string         `gorm:"size:50;index:idx_audit_entity,priority:1;not null" json:"entity_type"`
	EntityID   int64          `gorm:"index:idx_audit_entity,priority:2;not null" json:"entity_id"`
	Action     EventType      `gorm:"size:20;not null" json:"action"`
	Summary    string         `gorm:"type:text;not null" json:"summary"`
	UserID     *int64         `json:"user_id,omitempty"`
	ActorName  string         `gorm:"size:200;not null" json:"actor"`
	Details    datatypes.JSON `json:"details,omitempty"`
	CreatedAt  time.Time      `gorm:"index" json:"created_at"`
}
