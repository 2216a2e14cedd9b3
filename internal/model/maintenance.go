package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// ScheduledMaintenance is a planned maintenance window for a machine.
type ScheduledMaintenance struct {
	ID                int64             `gorm:"primaryKey" json:"id"`
	MachineID         int64             `gorm:"index;not null" json:"machine_id"`
	TechnicianID      *int64            `gorm:"index" json:"technician_id,omitempty"`
	Type              MaintenanceType   `gorm:"size:15;not null" json:"type"`
	Title             string            `gorm:"size:200;not null" json:"title"`
	Description       string            `gorm:"type:text;not null" json:"description"`
	Priority          AlertPriority     `gorm:"size:10;not null;default:media" json:"priority"`
	ScheduledAt       time.Time         `gorm:"index;not null" json:"scheduled_at"`
	EstimatedDuration Duration          `gorm:"not null" json:"estimated_duration"`
	Status            MaintenanceStatus `gorm:"size:15;index;not null;default:programado" json:"status"`

	Components datatypes.JSONSlice[string] `json:"components"`
	Tools      datatypes.JSONSlice[string] `json:"tools"`
	Parts      datatypes.JSONSlice[string] `json:"parts"`
	Procedures string                      `gorm:"type:text" json:"procedures,omitempty"`

	EstimatedCost decimal.NullDecimal `gorm:"type:numeric(12,2)" json:"estimated_cost"`
	ActualCost    decimal.NullDecimal `gorm:"type:numeric(12,2)" json:"actual_cost"`
	Notes         string              `gorm:"type:text" json:"notes,omitempty"`
	StartedAt     *time.Time          `json:"started_at,omitempty"`
	CompletedAt   *time.Time          `json:"completed_at,omitempty"`

	CreatedByID *int64    `json:"created_by_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Machine    *Machine `gorm:"constraint:OnDelete:CASCADE" json:"machine,omitempty"`
	Technician *User    `gorm:"foreignKey:TechnicianID;constraint:OnDelete:SET NULL" json:"technician,omitempty"`
}

// Open reports whether the maintenance still counts toward the pending workload.
func (m *ScheduledMaintenance) Open() bool {
	return m.Status == MaintenanceScheduled || m.Status == MaintenanceInProgress
}

// Duration is a time span stored as nanoseconds and serialized as HH:MM:SS.
type Duration time.Duration

func (d Duration) String() string {
	total := int64(time.Duration(d) / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total/60)%60, total%60)
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}
