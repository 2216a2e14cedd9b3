package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"machinery-backend/internal/blob"
	"machinery-backend/internal/events"
	"machinery-backend/internal/model"
	"machinery-backend/internal/store"
)

const (
	minSearchLength = 2
	maxSearchResult = 10
)

// MachineInput carries the editable fields of a machine. Pointer fields left nil
// keep their current (or default) value.
type MachineInput struct {
	InventoryCode string `json:"inventory_code"`
	Name          string `json:"name"`
	CategoryID    int64  `json:"category_id"`
	SupplierID    *int64 `json:"supplier_id"`
	Brand         string `json:"brand"`
	Model         string `json:"model"`
	SerialNumber  string `json:"serial_number"`
	Condition     string `json:"condition"`

	TechnicalSpecs string  `json:"technical_specs"`
	Capacity       string  `json:"capacity"`
	PowerKW        float64 `json:"power_kw"`
	Voltage        string  `json:"voltage"`
	Dimensions     string  `json:"dimensions"`
	WeightKG       float64 `json:"weight_kg"`

	Location       string `json:"location"`
	TrainingCenter string `json:"training_center"`
	TrainingRoom   string `json:"training_room"`
	ResponsibleID  *int64 `json:"responsible_id"`

	AcquiredOn       *Date            `json:"acquired_on"`
	AcquisitionValue *decimal.Decimal `json:"acquisition_value"`
	InvoiceNumber    string           `json:"invoice_number"`
	WarrantyMonths   *int             `json:"warranty_months"`

	UsageHours               *float64 `json:"usage_hours"`
	MonthlyUsageHours        *float64 `json:"monthly_usage_hours"`
	Efficiency               *float64 `json:"efficiency"`
	NextMaintenanceOn        *Date    `json:"next_maintenance_on"`
	MaintenanceFrequencyDays *int     `json:"maintenance_frequency_days"`
	Notes                    string   `json:"notes"`

	// Version, when non-zero, must match the stored machine.
	Version int64 `json:"version"`
}

func (in *MachineInput) normalize() {
	in.InventoryCode = strings.ToUpper(strings.TrimSpace(in.InventoryCode))
	in.Name = strings.TrimSpace(in.Name)
	in.Brand = strings.TrimSpace(in.Brand)
	in.Model = strings.TrimSpace(in.Model)
	in.SerialNumber = strings.TrimSpace(in.SerialNumber)
	in.Location = strings.TrimSpace(in.Location)
	in.TrainingCenter = strings.TrimSpace(in.TrainingCenter)
	in.TrainingRoom = strings.TrimSpace(in.TrainingRoom)
}

func (in *MachineInput) validate(v *model.ValidationError) {
	v.Required("name", in.Name == "")
	v.Required("inventory_code", in.InventoryCode == "")
	v.Required("category_id", in.CategoryID <= 0)
	v.Required("brand", in.Brand == "")
	v.Required("model", in.Model == "")
	v.Required("serial_number", in.SerialNumber == "")
	v.Required("acquired_on", in.AcquiredOn == nil || in.AcquiredOn.IsZero())
	v.Required("acquisition_value", in.AcquisitionValue == nil)

	if in.Condition != "" && !model.MachineCondition(in.Condition).IsValid() {
		v.Add("condition", fmt.Sprintf("unknown condition %q", in.Condition))
	}
	if in.AcquisitionValue != nil && in.AcquisitionValue.IsNegative() {
		v.Add("acquisition_value", "must not be negative")
	}
	if in.WarrantyMonths != nil && *in.WarrantyMonths < 0 {
		v.Add("warranty_months", "must not be negative")
	}
	if in.Efficiency != nil && (*in.Efficiency < 0 || *in.Efficiency > 100) {
		v.Add("efficiency", "must be between 0 and 100")
	}
	if in.UsageHours != nil && *in.UsageHours < 0 {
		v.Add("usage_hours", "must not be negative")
	}
	if in.MonthlyUsageHours != nil && *in.MonthlyUsageHours < 0 {
		v.Add("monthly_usage_hours", "must not be negative")
	}
	if in.MaintenanceFrequencyDays != nil && *in.MaintenanceFrequencyDays <= 0 {
		v.Add("maintenance_frequency_days", "must be positive")
	}
}

func (in *MachineInput) apply(m *model.Machine) {
	m.InventoryCode = in.InventoryCode
	m.Name = in.Name
	m.CategoryID = in.CategoryID
	m.SupplierID = in.SupplierID
	m.Brand = in.Brand
	m.Model = in.Model
	m.SerialNumber = in.SerialNumber
	if in.Condition != "" {
		m.Condition = model.MachineCondition(in.Condition)
	}
	m.TechnicalSpecs = in.TechnicalSpecs
	m.Capacity = in.Capacity
	m.PowerKW = in.PowerKW
	m.Voltage = in.Voltage
	m.Dimensions = in.Dimensions
	m.WeightKG = in.WeightKG
	m.Location = in.Location
	m.TrainingCenter = in.TrainingCenter
	m.TrainingRoom = in.TrainingRoom
	m.ResponsibleID = in.ResponsibleID
	if d := datePtr(in.AcquiredOn); d != nil {
		m.AcquiredOn = *d
	}
	if in.AcquisitionValue != nil {
		m.AcquisitionValue = *in.AcquisitionValue
	}
	m.InvoiceNumber = in.InvoiceNumber
	if in.WarrantyMonths != nil {
		m.WarrantyMonths = *in.WarrantyMonths
	}
	if in.UsageHours != nil {
		m.UsageHours = *in.UsageHours
	}
	if in.MonthlyUsageHours != nil {
		m.MonthlyUsageHours = *in.MonthlyUsageHours
	}
	if in.Efficiency != nil {
		m.Efficiency = *in.Efficiency
	}
	if in.NextMaintenanceOn != nil {
		m.NextMaintenanceOn = datePtr(in.NextMaintenanceOn)
	}
	if in.MaintenanceFrequencyDays != nil {
		m.MaintenanceFrequencyDays = *in.MaintenanceFrequencyDays
	}
	m.Notes = in.Notes
}

// StatusChange requests a machine status transition.
type StatusChange struct {
	Status  string `json:"status"`
	Notes   string `json:"notes"`
	Version *int64 `json:"version"`
}

// Registry manages machines.
type Registry struct {
	Deps
	audit *Recorder
	blobs blob.Store
}

// NewRegistry creates a registry. blobs may be nil when documents are not stored.
func NewRegistry(deps Deps, audit *Recorder, blobs blob.Store) *Registry {
	deps.fill()
	return &Registry{Deps: deps, audit: audit, blobs: blobs}
}

// Today is the local calendar day used for derived maintenance flags.
func (r *Registry) Today() time.Time {
	return r.today()
}

func (r *Registry) Create(ctx context.Context, actor Actor, in MachineInput) (*model.Machine, error) {
	in.normalize()
	verr := &model.ValidationError{}
	in.validate(verr)
	if err := verr.Err(); err != nil {
		return nil, err
	}

	m := &model.Machine{
		Status:                   model.MachineAvailable,
		Condition:                model.ConditionExcellent,
		WarrantyMonths:           12,
		Efficiency:               100,
		MaintenanceFrequencyDays: 90,
		Version:                  1,
		CreatedByID:              actor.UserID,
	}
	in.apply(m)

	err := r.Store.Transaction(ctx, func(tx store.Store) error {
		if err := r.checkReferences(ctx, tx, m, true); err != nil {
			return err
		}
		if err := tx.CreateMachine(ctx, m); err != nil {
			return err
		}
		_, err := r.audit.Record(ctx, tx, m.ID, Event{
			Type:        model.EventCreated,
			Description: fmt.Sprintf("Machine registered: %s - %s", m.InventoryCode, m.Name),
			New:         string(m.Status),
		}, actor)
		return err
	})
	if err != nil {
		return nil, err
	}

	r.Log.Info("machine created", zap.Int64("machine_id", m.ID), zap.String("inventory_code", m.InventoryCode))
	r.publish(ctx, events.Event{Type: events.MachineCreated, MachineID: m.ID, EntityID: m.ID,
		Data: map[string]any{"inventory_code": m.InventoryCode, "status": m.Status}}, actor)
	return r.Store.GetMachine(ctx, m.ID)
}

// checkReferences verifies unique columns and referenced rows of m using tx.
// An inactive category is only rejected when activeCategory is set.
func (r *Registry) checkReferences(ctx context.Context, tx store.Store, m *model.Machine, activeCategory bool) error {
	verr := &model.ValidationError{}

	for _, col := range []struct{ name, value string }{
		{"inventory_code", m.InventoryCode},
		{"serial_number", m.SerialNumber},
	} {
		taken, err := tx.MachineFieldTaken(ctx, col.name, col.value, m.ID)
		if err != nil {
			return err
		}
		if taken {
			verr.Add(col.name, fmt.Sprintf("%q is already registered", col.value))
		}
	}

	cat, err := tx.GetCategory(ctx, m.CategoryID)
	if err != nil {
		return err
	}
	if activeCategory && !cat.Active {
		verr.Add("category_id", fmt.Sprintf("category %q is inactive", cat.Name))
	}
	if m.SupplierID != nil {
		if _, err := tx.GetSupplier(ctx, *m.SupplierID); err != nil {
			return err
		}
	}
	if m.ResponsibleID != nil {
		if _, err := tx.GetUser(ctx, *m.ResponsibleID); err != nil {
			return err
		}
	}
	return verr.Err()
}

// Update applies in to the machine and records which fields changed. Status is
// not editable here; use ChangeStatus.
func (r *Registry) Update(ctx context.Context, actor Actor, id int64, in MachineInput) (*model.Machine, error) {
	in.normalize()
	verr := &model.ValidationError{}
	in.validate(verr)
	if err := verr.Err(); err != nil {
		return nil, err
	}

	var changed []string
	err := r.Store.Transaction(ctx, func(tx store.Store) error {
		m, err := tx.GetMachine(ctx, id)
		if err != nil {
			return err
		}
		if in.Version != 0 && in.Version != m.Version {
			return fmt.Errorf("machine %d is at version %d, not %d: %w", id, m.Version, in.Version, model.ErrConflict)
		}
		if in.UsageHours != nil && *in.UsageHours < m.UsageHours {
			return model.NewValidationError("usage_hours",
				fmt.Sprintf("cannot decrease from %.1f to %.1f", m.UsageHours, *in.UsageHours))
		}

		before := *m
		in.apply(m)
		changed = changedFields(&before, m)
		if len(changed) == 0 {
			return nil
		}
		if err := r.checkReferences(ctx, tx, m, before.CategoryID != m.CategoryID); err != nil {
			return err
		}
		if err := tx.SaveMachine(ctx, m); err != nil {
			return err
		}

		_, err = r.audit.Record(ctx, tx, id, Event{
			Type:        model.EventUpdated,
			Description: "Updated fields: " + strings.Join(changed, ", "),
			Details:     model.EventDetails{ChangedFields: changed},
		}, actor)
		if err != nil {
			return err
		}

		if prev, next := placeOf(&before), placeOf(m); prev != next {
			if _, err := r.audit.Record(ctx, tx, id, Event{
				Type:        model.EventLocationChange,
				Description: "Location changed",
				Previous:    prev,
				New:         next,
			}, actor); err != nil {
				return err
			}
		}
		if !sameID(before.ResponsibleID, m.ResponsibleID) {
			if _, err := r.audit.Record(ctx, tx, id, Event{
				Type:        model.EventResponsibleChange,
				Description: "Responsible changed",
				Previous:    idString(before.ResponsibleID),
				New:         idString(m.ResponsibleID),
			}, actor); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(changed) > 0 {
		r.Log.Info("machine updated", zap.Int64("machine_id", id), zap.Strings("fields", changed))
		r.publish(ctx, events.Event{Type: events.MachineUpdated, MachineID: id, EntityID: id,
			Data: map[string]any{"changed_fields": changed}}, actor)
	}
	return r.Store.GetMachine(ctx, id)
}

// ChangeStatus moves a machine to any valid status. The write is conditional on
// the machine's version, so a concurrent change yields model.ErrConflict.
func (r *Registry) ChangeStatus(ctx context.Context, actor Actor, id int64, in StatusChange) (*model.Machine, error) {
	status := model.MachineStatus(strings.TrimSpace(in.Status))
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidStatus, in.Status)
	}

	var previous model.MachineStatus
	err := r.Store.Transaction(ctx, func(tx store.Store) error {
		m, err := tx.GetMachine(ctx, id)
		if err != nil {
			return err
		}
		expected := m.Version
		if in.Version != nil {
			expected = *in.Version
		}
		previous = m.Status
		if err := tx.UpdateMachineStatus(ctx, id, expected, status); err != nil {
			return err
		}
		_, err = r.audit.Record(ctx, tx, id, Event{
			Type:        model.EventStatusChange,
			Description: fmt.Sprintf("Status changed from %s to %s", previous, status),
			Previous:    string(previous),
			New:         string(status),
			Details:     model.EventDetails{Notes: in.Notes},
		}, actor)
		return err
	})
	if err != nil {
		return nil, err
	}

	r.Metrics.StatusChanged(string(status), false)
	r.Log.Info("machine status changed", zap.Int64("machine_id", id),
		zap.String("from", string(previous)), zap.String("to", string(status)))
	r.publish(ctx, events.Event{Type: events.MachineStatusChanged, MachineID: id, EntityID: id,
		Data: map[string]any{"from": previous, "to": status}}, actor)
	return r.Store.GetMachine(ctx, id)
}

// Delete removes a machine and everything it owns. The deletion is written to the
// audit ledger, which is not owned by the machine and survives it.
func (r *Registry) Delete(ctx context.Context, actor Actor, id int64) error {
	if err := requireAdmin(actor, "deleting a machine"); err != nil {
		return err
	}

	var (
		m    *model.Machine
		docs []model.MachineDocument
	)
	err := r.Store.Transaction(ctx, func(tx store.Store) error {
		var err error
		if m, err = tx.GetMachine(ctx, id); err != nil {
			return err
		}
		if docs, err = tx.ListDocuments(ctx, id); err != nil {
			return err
		}
		err = r.audit.Ledger(ctx, tx, "machine", id, model.EventDeleted,
			fmt.Sprintf("%s - %s", m.InventoryCode, m.Name), actor,
			map[string]any{
				"inventory_code": m.InventoryCode,
				"name":           m.Name,
				"serial_number":  m.SerialNumber,
				"status":         m.Status,
			})
		if err != nil {
			return err
		}
		return tx.DeleteMachineCascade(ctx, id)
	})
	if err != nil {
		return err
	}

	if r.blobs != nil {
		for _, d := range docs {
			if err := r.blobs.Delete(context.WithoutCancel(ctx), d.BlobKey); err != nil {
				r.Log.Warn("failed to delete document blob", zap.Int64("document_id", d.ID), zap.Error(err))
			}
		}
	}

	r.Log.Info("machine deleted", zap.Int64("machine_id", id), zap.String("inventory_code", m.InventoryCode))
	r.publish(ctx, events.Event{Type: events.MachineDeleted, MachineID: id, EntityID: id,
		Data: map[string]any{"inventory_code": m.InventoryCode}}, actor)
	return nil
}

func (r *Registry) Get(ctx context.Context, id int64) (*model.Machine, error) {
	return r.Store.GetMachine(ctx, id)
}

func (r *Registry) List(ctx context.Context, f store.MachineFilter) ([]model.Machine, int64, error) {
	f.Query = strings.TrimSpace(f.Query)
	return r.Store.ListMachines(ctx, f)
}

// Search matches name, code, brand or model. Queries shorter than two characters return nothing.
func (r *Registry) Search(ctx context.Context, q string) ([]model.Machine, error) {
	q = strings.TrimSpace(q)
	if len([]rune(q)) < minSearchLength {
		return []model.Machine{}, nil
	}
	return r.Store.SearchMachines(ctx, q, maxSearchResult)
}

func (r *Registry) History(ctx context.Context, id int64, limit int) ([]model.HistoryEntry, error) {
	return r.audit.History(ctx, id, limit)
}

// DueForMaintenance lists machines whose next maintenance date is today or earlier.
func (r *Registry) DueForMaintenance(ctx context.Context) ([]model.Machine, error) {
	return r.Store.MachinesDueForMaintenance(ctx, r.today())
}

func changedFields(a, b *model.Machine) []string {
	checks := []struct {
		name    string
		changed bool
	}{
		{"inventory_code", a.InventoryCode != b.InventoryCode},
		{"name", a.Name != b.Name},
		{"category_id", a.CategoryID != b.CategoryID},
		{"supplier_id", !sameID(a.SupplierID, b.SupplierID)},
		{"brand", a.Brand != b.Brand},
		{"model", a.Model != b.Model},
		{"serial_number", a.SerialNumber != b.SerialNumber},
		{"condition", a.Condition != b.Condition},
		{"technical_specs", a.TechnicalSpecs != b.TechnicalSpecs},
		{"capacity", a.Capacity != b.Capacity},
		{"power_kw", a.PowerKW != b.PowerKW},
		{"voltage", a.Voltage != b.Voltage},
		{"dimensions", a.Dimensions != b.Dimensions},
		{"weight_kg", a.WeightKG != b.WeightKG},
		{"location", a.Location != b.Location},
		{"training_center", a.TrainingCenter != b.TrainingCenter},
		{"training_room", a.TrainingRoom != b.TrainingRoom},
		{"responsible_id", !sameID(a.ResponsibleID, b.ResponsibleID)},
		{"acquired_on", !model.DateOf(a.AcquiredOn).Equal(model.DateOf(b.AcquiredOn))},
		{"acquisition_value", !a.AcquisitionValue.Equal(b.AcquisitionValue)},
		{"invoice_number", a.InvoiceNumber != b.InvoiceNumber},
		{"warranty_months", a.WarrantyMonths != b.WarrantyMonths},
		{"usage_hours", a.UsageHours != b.UsageHours},
		{"monthly_usage_hours", a.MonthlyUsageHours != b.MonthlyUsageHours},
		{"efficiency", a.Efficiency != b.Efficiency},
		{"next_maintenance_on", !sameDate(a.NextMaintenanceOn, b.NextMaintenanceOn)},
		{"maintenance_frequency_days", a.MaintenanceFrequencyDays != b.MaintenanceFrequencyDays},
		{"notes", a.Notes != b.Notes},
	}
	var out []string
	for _, c := range checks {
		if c.changed {
			out = append(out, c.name)
		}
	}
	return out
}

func placeOf(m *model.Machine) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{m.Location, m.TrainingCenter, m.TrainingRoom} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " / ")
}

func sameID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return model.DateOf(*a).Equal(model.DateOf(*b))
}

func idString(id *int64) string {
	if id == nil {
		return ""
	}
	return strconv.FormatInt(*id, 10)
}

// isConflict reports whether err is an optimistic concurrency failure.
func isConflict(err error) bool {
	return errors.Is(err, model.ErrConflict)
}
