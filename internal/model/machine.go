package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Machine is a tracked piece of training equipment and the aggregate root for
// its alerts, history, scheduled maintenance and documents.
type Machine struct {
	ID            int64  `gorm:"primaryKey" json:"id"`
	InventoryCode string `gorm:"uniqueIndex;size:50;not null" json:"inventory_code"`
	Name          string `gorm:"size:200;not null" json:"name"`
	CategoryID    int64  `gorm:"index;not null" json:"category_id"`
	SupplierID    *int64 `gorm:"index" json:"supplier_id,omitempty"`
	Brand         string `gorm:"size:100;not null" json:"brand"`
	Model         string `gorm:"size:100;not null" json:"model"`
	SerialNumber  string `gorm:"uniqueIndex;size:100;not null" json:"serial_number"`

	Status    MachineStatus    `gorm:"size:20;index;not null;default:disponible" json:"status"`
	Condition MachineCondition `gorm:"size:20;not null;default:excelente" json:"condition"`

	TechnicalSpecs string  `gorm:"type:text" json:"technical_specs,omitempty"`
	Capacity       string  `gorm:"size:100" json:"capacity,omitempty"`
	PowerKW        float64 `json:"power_kw,omitempty"`
	Voltage        string  `gorm:"size:50" json:"voltage,omitempty"`
	Dimensions     string  `gorm:"size:100" json:"dimensions,omitempty"`
	WeightKG       float64 `json:"weight_kg,omitempty"`

	Location       string `gorm:"size:200" json:"location,omitempty"`
	TrainingCenter string `gorm:"size:200;index" json:"training_center,omitempty"`
	TrainingRoom   string `gorm:"size:100" json:"training_room,omitempty"`
	ResponsibleID  *int64 `gorm:"index" json:"responsible_id,omitempty"`

	AcquiredOn       time.Time       `gorm:"not null" json:"acquired_on"`
	AcquisitionValue decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"acquisition_value"`
	InvoiceNumber    string          `gorm:"size:50" json:"invoice_number,omitempty"`
	WarrantyMonths   int             `gorm:"not null;default:12" json:"warranty_months"`

	UsageHours        float64 `gorm:"not null;default:0" json:"usage_hours"`
	MonthlyUsageHours float64 `gorm:"not null;default:0" json:"monthly_usage_hours"`
	Efficiency        float64 `gorm:"not null;default:100" json:"efficiency"`

	LastMaintenanceOn        *time.Time `json:"last_maintenance_on,omitempty"`
	NextMaintenanceOn        *time.Time `gorm:"index" json:"next_maintenance_on,omitempty"`
	MaintenanceFrequencyDays int        `gorm:"not null;default:90" json:"maintenance_frequency_days"`

	Notes       string    `gorm:"type:text" json:"notes,omitempty"`
	Version     int64     `gorm:"not null;default:1" json:"version"`
	CreatedByID *int64    `json:"created_by_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Category    *Category `gorm:"constraint:OnDelete:RESTRICT" json:"category,omitempty"`
	Supplier    *Supplier `gorm:"constraint:OnDelete:RESTRICT" json:"supplier,omitempty"`
	Responsible *User     `gorm:"foreignKey:ResponsibleID;constraint:OnDelete:SET NULL" json:"-"`
}

// NeedsMaintenance reports whether the next maintenance date is set and falls on or before today.
func (m *Machine) NeedsMaintenance(today time.Time) bool {
	if m.NextMaintenanceOn == nil {
		return false
	}
	return !DateOf(*m.NextMaintenanceOn).After(DateOf(today))
}

// WarrantyEndsOn returns the last covered day of the acquisition warranty.
func (m *Machine) WarrantyEndsOn() time.Time {
	return DateOf(m.AcquiredOn).AddDate(0, m.WarrantyMonths, 0)
}

// DateOf strips the clock from t, keeping its calendar date as UTC midnight.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
