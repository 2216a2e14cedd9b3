package model

import "time"

// PerformanceMetrics is a periodic operational snapshot shown on the dashboard.
type PerformanceMetrics struct {
	ID             int64     `gorm:"primaryKey" json:"id"`
	Date           time.Time `gorm:"uniqueIndex:idx_metrics_period;not null" json:"date"`
	Period         string    `gorm:"uniqueIndex:idx_metrics_period;size:20;not null" json:"period"`
	TrainingCenter string    `gorm:"uniqueIndex:idx_metrics_period;size:200;not null;default:''" json:"training_center"`

	TotalMachines       int64   `json:"total_machines"`
	OperationalMachines int64   `json:"operational_machines"`
	MaintenanceMachines int64   `json:"maintenance_machines"`
	OutOfOrderMachines  int64   `json:"out_of_order_machines"`
	AverageEfficiency   float64 `json:"average_efficiency"`

	MaintenanceScheduled int64   `json:"maintenance_scheduled"`
	MaintenanceCompleted int64   `json:"maintenance_completed"`
	MaintenancePending   int64   `json:"maintenance_pending"`
	ComplianceRate       float64 `json:"compliance_rate"`

	AlertsGenerated int64 `json:"alerts_generated"`
	AlertsResolved  int64 `json:"alerts_resolved"`
	AlertsCritical  int64 `json:"alerts_critical"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PeriodDaily is the period label written by the daily sweep.
const PeriodDaily = "diario"
