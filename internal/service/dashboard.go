package service

import (
	"context"

	"machinery-backend/internal/model"
	"machinery-backend/internal/store"
)

// Summary is the fleet overview shown on the dashboard. It is computed on every request.
type Summary struct {
	TotalMachines         int64   `json:"total_machines"`
	OperationalMachines   int64   `json:"operational_machines"`
	MaintenanceMachines   int64   `json:"maintenance_machines"`
	ActiveAlerts          int64   `json:"active_alerts"`
	OperationalPercentage float64 `json:"operational_percentage"`
}

// Dashboard aggregates counts for the overview screens.
type Dashboard struct {
	Deps
	maintenance *Maintenance
}

func NewDashboard(deps Deps, maintenance *Maintenance) *Dashboard {
	deps.fill()
	return &Dashboard{Deps: deps, maintenance: maintenance}
}

func (d *Dashboard) Summary(ctx context.Context) (*Summary, error) {
	var out Summary
	var err error
	if out.TotalMachines, err = d.Store.CountMachines(ctx); err != nil {
		return nil, err
	}
	if out.OperationalMachines, err = d.Store.CountMachines(ctx, model.MachineOperational); err != nil {
		return nil, err
	}
	if out.MaintenanceMachines, err = d.Store.CountMachines(ctx, model.MachineMaintenance); err != nil {
		return nil, err
	}
	if out.ActiveAlerts, err = d.Store.CountAlerts(ctx, store.AlertFilter{Statuses: []model.AlertStatus{model.AlertActive}}); err != nil {
		return nil, err
	}
	out.OperationalPercentage = percentage(out.OperationalMachines, out.TotalMachines)
	return &out, nil
}

func (d *Dashboard) MaintenanceSummary(ctx context.Context) (*MaintenanceSummary, error) {
	return d.maintenance.Summary(ctx)
}

// PerformanceMetrics lists the stored snapshots, newest first.
func (d *Dashboard) PerformanceMetrics(ctx context.Context, limit int) ([]model.PerformanceMetrics, error) {
	if limit <= 0 {
		limit = 30
	}
	return d.Store.ListPerformanceMetrics(ctx, limit)
}

// Snapshot computes today's daily metrics and stores them, replacing an
// earlier snapshot of the same day.
func (d *Dashboard) Snapshot(ctx context.Context) (*model.PerformanceMetrics, error) {
	today := d.today()
	start, end := today.UTC(), today.AddDate(0, 0, 1).UTC()
	pm := &model.PerformanceMetrics{
		Date:   model.DateOf(today),
		Period: model.PeriodDaily,
	}

	counts := []struct {
		dst *int64
		fn  func() (int64, error)
	}{
		{&pm.TotalMachines, func() (int64, error) { return d.Store.CountMachines(ctx) }},
		{&pm.OperationalMachines, func() (int64, error) { return d.Store.CountMachines(ctx, model.MachineOperational) }},
		{&pm.MaintenanceMachines, func() (int64, error) {
			return d.Store.CountMachines(ctx, model.MachineMaintenance, model.MachineRepair)
		}},
		{&pm.OutOfOrderMachines, func() (int64, error) { return d.Store.CountMachines(ctx, model.MachineOutOfOrder) }},
		{&pm.MaintenanceScheduled, func() (int64, error) {
			return d.Store.CountMaintenance(ctx, store.MaintenanceFilter{From: start, To: end})
		}},
		{&pm.MaintenanceCompleted, func() (int64, error) {
			return d.Store.CountMaintenance(ctx, store.MaintenanceFilter{
				Statuses: []model.MaintenanceStatus{model.MaintenanceCompleted}, From: start, To: end,
			})
		}},
		{&pm.MaintenancePending, func() (int64, error) {
			return d.Store.CountMaintenance(ctx, store.MaintenanceFilter{Statuses: openMaintenance})
		}},
		{&pm.AlertsGenerated, func() (int64, error) { return d.Store.CountAlerts(ctx, store.AlertFilter{Since: start}) }},
		{&pm.AlertsResolved, func() (int64, error) {
			return d.Store.CountAlerts(ctx, store.AlertFilter{
				Statuses: []model.AlertStatus{model.AlertResolved}, Since: start,
			})
		}},
		{&pm.AlertsCritical, func() (int64, error) {
			return d.Store.CountAlerts(ctx, store.AlertFilter{Priority: model.PriorityCritical, Since: start})
		}},
	}
	for _, c := range counts {
		n, err := c.fn()
		if err != nil {
			return nil, err
		}
		*c.dst = n
	}

	avg, err := d.Store.AverageEfficiency(ctx)
	if err != nil {
		return nil, err
	}
	pm.AverageEfficiency = round1(avg)
	if pm.ComplianceRate, err = d.maintenance.Compliance(ctx); err != nil {
		return nil, err
	}

	if err := d.Store.UpsertPerformanceMetrics(ctx, pm); err != nil {
		return nil, err
	}
	return pm, nil
}

func percentage(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return round1(float64(part) / float64(total) * 100)
}
