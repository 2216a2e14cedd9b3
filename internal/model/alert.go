package model

import (
	"time"

	"gorm.io/datatypes"
)

// AlertDetails is the structured payload captured when an alert is raised.
type AlertDetails struct {
	Category           string     `json:"category,omitempty"`
	DetectedBy         string     `json:"detected_by,omitempty"`
	Symptoms           []string   `json:"symptoms,omitempty"`
	OperationalImpact  string     `json:"operational_impact,omitempty"`
	SafetyRisk         string     `json:"safety_risk,omitempty"`
	ImmediateActions   []string   `json:"immediate_actions,omitempty"`
	AssignedTechnician string     `json:"assigned_technician,omitempty"`
	EstimatedDate      *time.Time `json:"estimated_date,omitempty"`
}

// Suspends reports whether the immediate actions request suspending the machine.
func (d AlertDetails) Suspends() bool {
	for _, a := range d.ImmediateActions {
		if a == ActionSuspendOperation {
			return true
		}
	}
	return false
}

// Alert is a flagged condition on a machine. ResolvedAt is set iff Status is resuelta.
type Alert struct {
	ID          int64         `gorm:"primaryKey" json:"id"`
	MachineID   int64         `gorm:"index;not null" json:"machine_id"`
	Type        AlertType     `gorm:"size:20;not null" json:"type"`
	Priority    AlertPriority `gorm:"size:10;not null;default:media" json:"priority"`
	Status      AlertStatus   `gorm:"size:15;index;not null;default:activa" json:"status"`
	Title       string        `gorm:"size:200;not null" json:"title"`
	Description string        `gorm:"type:text;not null" json:"description"`

	Details datatypes.JSONType[AlertDetails] `json:"details"`

	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
	ResolvedByID    *int64     `json:"resolved_by_id,omitempty"`
	ResolvedBy      string     `gorm:"size:200" json:"resolved_by,omitempty"`
	ResolutionNotes string     `gorm:"type:text" json:"resolution_notes,omitempty"`

	CreatedByID *int64    `json:"created_by_id,omitempty"`
	CreatedBy   string    `gorm:"size:200" json:"created_by,omitempty"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Machine *Machine `gorm:"constraint:OnDelete:CASCADE" json:"machine,omitempty"`
}
