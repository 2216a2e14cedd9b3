// Package sweeper runs the scheduled maintenance sweep: it raises alerts for
// machines whose maintenance is due and stores the daily performance snapshot.
package sweeper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"machinery-backend/internal/metrics"
	"machinery-backend/internal/model"
	"machinery-backend/internal/service"
)

// AlertLookup reports whether a machine already has an open alert of a type.
type AlertLookup interface {
	HasOpenAlert(ctx context.Context, machineID int64, t model.AlertType) (bool, error)
}

// Result summarizes one sweep.
type Result struct {
	Due     int
	Raised  []int64
	Skipped int
}

// Service owns the cron scheduler.
type Service struct {
	registry  *service.Registry
	alerts    *service.Alerts
	dashboard *service.Dashboard
	lookup    AlertLookup
	schedule  string
	location  *time.Location
	log       *zap.Logger
	metrics   *metrics.Metrics
}

// New creates a sweeper. schedule is a standard five-field cron expression
// evaluated in loc.
func New(svcs *service.Services, lookup AlertLookup, schedule string, loc *time.Location, log *zap.Logger, m *metrics.Metrics) *Service {
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		registry:  svcs.Registry,
		alerts:    svcs.Alerts,
		dashboard: svcs.Dashboard,
		lookup:    lookup,
		schedule:  schedule,
		location:  loc,
		log:       log.Named("sweeper"),
		metrics:   m,
	}
}

// Run schedules the sweep and blocks until ctx is cancelled, then waits for a
// running sweep to finish.
func (s *Service) Run(ctx context.Context) error {
	c := cron.New(cron.WithLocation(s.location))
	_, err := c.AddFunc(s.schedule, func() {
		if _, err := s.RunOnce(ctx); err != nil {
			s.log.Error("sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("invalid sweeper schedule %q: %w", s.schedule, err)
	}

	c.Start()
	s.log.Info("sweeper started", zap.String("schedule", s.schedule), zap.String("timezone", s.location.String()))

	<-ctx.Done()
	s.log.Info("sweeper shutting down")
	<-c.Stop().Done()
	return nil
}

// RunOnce raises a maintenance alert for every due machine without an open one,
// then refreshes today's performance snapshot. A failure on one machine does
// not stop the others.
func (s *Service) RunOnce(ctx context.Context) (*Result, error) {
	start := time.Now()
	res, err := s.sweep(ctx)

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	s.metrics.SweepFinished(outcome)
	if res != nil {
		s.log.Info("sweep finished", zap.Int("due", res.Due), zap.Int("raised", len(res.Raised)),
			zap.Int("skipped", res.Skipped), zap.Duration("took", time.Since(start)), zap.Error(err))
	}
	return res, err
}

func (s *Service) sweep(ctx context.Context) (*Result, error) {
	due, err := s.registry.DueForMaintenance(ctx)
	if err != nil {
		return nil, err
	}

	res := &Result{Due: len(due)}
	var errs []error
	for i := range due {
		m := &due[i]
		open, err := s.lookup.HasOpenAlert(ctx, m.ID, model.AlertMaintenance)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if open {
			res.Skipped++
			continue
		}
		a, err := s.alerts.Create(ctx, service.SystemActor, dueAlert(m))
		if err != nil {
			errs = append(errs, fmt.Errorf("machine %s: %w", m.InventoryCode, err))
			continue
		}
		res.Raised = append(res.Raised, a.ID)
	}

	if _, err := s.dashboard.Snapshot(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to store performance snapshot: %w", err))
	}
	return res, errors.Join(errs...)
}

func dueAlert(m *model.Machine) service.AlertInput {
	return service.AlertInput{
		MachineID:  m.ID,
		Type:       string(model.AlertMaintenance),
		Priority:   string(model.PriorityMedium),
		Title:      fmt.Sprintf("Mantenimiento pendiente: %s", m.InventoryCode),
		DetectedBy: service.SystemActor.Name,
		Description: fmt.Sprintf("%s tenía mantenimiento programado para el %s.",
			m.Name, m.NextMaintenanceOn.Format(time.DateOnly)),
	}
}
