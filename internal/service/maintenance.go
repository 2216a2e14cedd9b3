package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"machinery-backend/internal/events"
	"machinery-backend/internal/model"
	"machinery-backend/internal/parse"
	"machinery-backend/internal/store"
)

// MaintenanceInput is the payload for scheduling maintenance.
type MaintenanceInput struct {
	MachineID         int64            `json:"machine_id"`
	Type              string           `json:"type"`
	Title             string           `json:"title"`
	Description       string           `json:"description"`
	Priority          string           `json:"priority"`
	ScheduledAt       *time.Time       `json:"scheduled_at"`
	EstimatedDuration string           `json:"estimated_duration"`
	TechnicianID      *int64           `json:"technician_id"`
	Components        []string         `json:"components"`
	Tools             []string         `json:"tools"`
	Parts             []string         `json:"parts"`
	Procedures        string           `json:"procedures"`
	EstimatedCost     *decimal.Decimal `json:"estimated_cost"`
}

// CompleteInput closes a maintenance record.
type CompleteInput struct {
	ActualCost *decimal.Decimal `json:"actual_cost"`
	Notes      string           `json:"notes"`
}

// MaintenanceOptions tunes duration parsing and the weekly window.
type MaintenanceOptions struct {
	StrictDuration  bool
	DefaultDuration time.Duration
	WeekDays        int
}

// MaintenanceSummary is the scheduler's view for the dashboard.
type MaintenanceSummary struct {
	DueToday       int64   `json:"due_today"`
	DueThisWeek    int64   `json:"due_this_week"`
	Overdue        int64   `json:"overdue"`
	ComplianceRate float64 `json:"compliance_rate"`
}

// Maintenance schedules and tracks maintenance windows.
type Maintenance struct {
	Deps
	audit *Recorder
	opts  MaintenanceOptions
}

func NewMaintenance(deps Deps, audit *Recorder, opts MaintenanceOptions) *Maintenance {
	deps.fill()
	if opts.DefaultDuration <= 0 {
		opts.DefaultDuration = 2 * time.Hour
	}
	if opts.WeekDays <= 0 {
		opts.WeekDays = 7
	}
	return &Maintenance{Deps: deps, audit: audit, opts: opts}
}

var openMaintenance = []model.MaintenanceStatus{model.MaintenanceScheduled, model.MaintenanceInProgress}

// Schedule creates a programado maintenance record.
func (s *Maintenance) Schedule(ctx context.Context, actor Actor, in MaintenanceInput) (*model.ScheduledMaintenance, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)

	verr := &model.ValidationError{}
	verr.Required("machine_id", in.MachineID <= 0)
	verr.Required("title", in.Title == "")
	verr.Required("description", in.Description == "")
	verr.Required("scheduled_at", in.ScheduledAt == nil || in.ScheduledAt.IsZero())

	mtype := model.MaintenanceType(in.Type)
	if in.Type == "" {
		mtype = model.MaintenancePreventive
	} else if !mtype.IsValid() {
		verr.Add("type", fmt.Sprintf("unknown maintenance type %q", in.Type))
	}
	priority := model.PriorityMedium
	if in.Priority != "" {
		p, ok := model.ParseAlertPriority(in.Priority)
		if !ok {
			verr.Add("priority", fmt.Sprintf("unknown priority %q", in.Priority))
		}
		priority = p
	}
	if in.EstimatedCost != nil && in.EstimatedCost.IsNegative() {
		verr.Add("estimated_cost", "must not be negative")
	}
	duration := s.duration(in.EstimatedDuration, verr)
	if err := verr.Err(); err != nil {
		return nil, err
	}

	rec := &model.ScheduledMaintenance{
		MachineID:         in.MachineID,
		TechnicianID:      in.TechnicianID,
		Type:              mtype,
		Title:             in.Title,
		Description:       in.Description,
		Priority:          priority,
		ScheduledAt:       in.ScheduledAt.UTC(),
		EstimatedDuration: model.Duration(duration),
		Status:            model.MaintenanceScheduled,
		Components:        nonNil(in.Components),
		Tools:             nonNil(in.Tools),
		Parts:             nonNil(in.Parts),
		Procedures:        in.Procedures,
		CreatedByID:       actor.UserID,
	}
	if in.EstimatedCost != nil {
		rec.EstimatedCost = decimal.NewNullDecimal(*in.EstimatedCost)
	}

	err := s.Store.Transaction(ctx, func(tx store.Store) error {
		if _, err := tx.GetMachine(ctx, in.MachineID); err != nil {
			return err
		}
		if in.TechnicianID != nil {
			if _, err := tx.GetUser(ctx, *in.TechnicianID); err != nil {
				return err
			}
		}
		if err := tx.CreateMaintenance(ctx, rec); err != nil {
			return err
		}
		_, err := s.audit.Record(ctx, tx, rec.MachineID, Event{
			Type: model.EventMaintenance,
			Description: fmt.Sprintf("Maintenance scheduled: %s on %s",
				rec.Title, rec.ScheduledAt.In(s.Location).Format("2006-01-02 15:04")),
			New: string(model.MaintenanceScheduled),
		}, actor)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.Metrics.MaintenanceEvent(string(model.MaintenanceScheduled))
	s.Log.Info("maintenance scheduled", zap.Int64("maintenance_id", rec.ID), zap.Int64("machine_id", rec.MachineID),
		zap.Time("scheduled_at", rec.ScheduledAt), zap.Stringer("estimated_duration", rec.EstimatedDuration))
	s.publish(ctx, events.Event{Type: events.MaintenanceScheduled, MachineID: rec.MachineID, EntityID: rec.ID,
		Data: map[string]any{"scheduled_at": rec.ScheduledAt, "type": rec.Type}}, actor)
	return s.Store.GetMaintenance(ctx, rec.ID)
}

// duration parses an HH:MM:SS estimate. Empty input takes the default; malformed
// input takes the default with a warning unless strict parsing is enabled.
func (s *Maintenance) duration(raw string, verr *model.ValidationError) time.Duration {
	if strings.TrimSpace(raw) == "" {
		return s.opts.DefaultDuration
	}
	d, err := parse.Duration(raw)
	if err == nil {
		return d
	}
	if s.opts.StrictDuration {
		verr.Add("estimated_duration", "must be HH:MM:SS")
		return 0
	}
	s.Log.Warn("invalid estimated duration, using default",
		zap.String("value", raw), zap.Duration("default", s.opts.DefaultDuration))
	return s.opts.DefaultDuration
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

// Start moves a programado record to en_proceso.
func (s *Maintenance) Start(ctx context.Context, actor Actor, id int64) (*model.ScheduledMaintenance, error) {
	now := s.Now().UTC()
	err := s.Store.Transaction(ctx, func(tx store.Store) error {
		rec, err := tx.GetMaintenance(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.TransitionMaintenance(ctx, id, []model.MaintenanceStatus{model.MaintenanceScheduled}, map[string]any{
			"status":     model.MaintenanceInProgress,
			"started_at": now,
		}); err != nil {
			return transitionError(err)
		}
		_, err = s.audit.Record(ctx, tx, rec.MachineID, Event{
			Type:        model.EventMaintenance,
			Description: fmt.Sprintf("Maintenance started: %s", rec.Title),
			Previous:    string(rec.Status),
			New:         string(model.MaintenanceInProgress),
		}, actor)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.finish(ctx, actor, id, model.MaintenanceInProgress, events.MaintenanceStarted)
}

// Complete closes an open record and advances the machine's maintenance dates.
func (s *Maintenance) Complete(ctx context.Context, actor Actor, id int64, in CompleteInput) (*model.ScheduledMaintenance, error) {
	if in.ActualCost != nil && in.ActualCost.IsNegative() {
		return nil, model.NewValidationError("actual_cost", "must not be negative")
	}
	now := s.Now().UTC()
	today := model.DateOf(s.today())

	err := s.Store.Transaction(ctx, func(tx store.Store) error {
		rec, err := tx.GetMaintenance(ctx, id)
		if err != nil {
			return err
		}
		updates := map[string]any{
			"status":       model.MaintenanceCompleted,
			"completed_at": now,
		}
		var cost decimal.NullDecimal
		if in.ActualCost != nil {
			cost = decimal.NewNullDecimal(*in.ActualCost)
			updates["actual_cost"] = cost
		}
		if in.Notes != "" {
			updates["notes"] = in.Notes
		}
		if err := tx.TransitionMaintenance(ctx, id, openMaintenance, updates); err != nil {
			return transitionError(err)
		}

		m, err := tx.GetMachine(ctx, rec.MachineID)
		if err != nil {
			return err
		}
		next := today.AddDate(0, 0, m.MaintenanceFrequencyDays)
		m.LastMaintenanceOn = &today
		m.NextMaintenanceOn = &next
		if err := tx.SaveMachine(ctx, m); err != nil {
			return err
		}

		_, err = s.audit.Record(ctx, tx, rec.MachineID, Event{
			Type:        model.EventMaintenance,
			Description: fmt.Sprintf("Maintenance completed: %s", rec.Title),
			Previous:    string(rec.Status),
			New:         string(model.MaintenanceCompleted),
			Cost:        cost,
			Details:     model.EventDetails{Notes: in.Notes},
		}, actor)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.finish(ctx, actor, id, model.MaintenanceCompleted, events.MaintenanceCompleted)
}

// Cancel abandons an open record.
func (s *Maintenance) Cancel(ctx context.Context, actor Actor, id int64, notes string) (*model.ScheduledMaintenance, error) {
	err := s.Store.Transaction(ctx, func(tx store.Store) error {
		rec, err := tx.GetMaintenance(ctx, id)
		if err != nil {
			return err
		}
		updates := map[string]any{"status": model.MaintenanceCancelled}
		if notes != "" {
			updates["notes"] = notes
		}
		if err := tx.TransitionMaintenance(ctx, id, openMaintenance, updates); err != nil {
			return transitionError(err)
		}
		_, err = s.audit.Record(ctx, tx, rec.MachineID, Event{
			Type:        model.EventMaintenance,
			Description: fmt.Sprintf("Maintenance cancelled: %s", rec.Title),
			Previous:    string(rec.Status),
			New:         string(model.MaintenanceCancelled),
			Details:     model.EventDetails{Notes: notes},
		}, actor)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.finish(ctx, actor, id, model.MaintenanceCancelled, events.MaintenanceCancelled)
}

func (s *Maintenance) finish(ctx context.Context, actor Actor, id int64, status model.MaintenanceStatus, eventType string) (*model.ScheduledMaintenance, error) {
	rec, err := s.Store.GetMaintenance(ctx, id)
	if err != nil {
		return nil, err
	}
	s.Metrics.MaintenanceEvent(string(status))
	s.Log.Info("maintenance transitioned", zap.Int64("maintenance_id", id), zap.String("status", string(status)))
	s.publish(ctx, events.Event{Type: eventType, MachineID: rec.MachineID, EntityID: id,
		Data: map[string]any{"status": status}}, actor)
	return rec, nil
}

// transitionError reports a state-guard miss as an invalid transition.
func transitionError(err error) error {
	if isConflict(err) {
		return fmt.Errorf("%w: %w", model.ErrInvalidTransition, err)
	}
	return err
}

func (s *Maintenance) Get(ctx context.Context, id int64) (*model.ScheduledMaintenance, error) {
	return s.Store.GetMaintenance(ctx, id)
}

// window returns the UTC bounds of local today, tomorrow and the end of the weekly window.
func (s *Maintenance) window() (start, tomorrow, weekEnd time.Time) {
	today := s.today()
	return today.UTC(), today.AddDate(0, 0, 1).UTC(), today.AddDate(0, 0, s.opts.WeekDays+1).UTC()
}

// DueToday lists programado records scheduled for the local current day.
func (s *Maintenance) DueToday(ctx context.Context) ([]model.ScheduledMaintenance, error) {
	start, tomorrow, _ := s.window()
	return s.Store.ListMaintenance(ctx, store.MaintenanceFilter{
		Statuses: []model.MaintenanceStatus{model.MaintenanceScheduled}, From: start, To: tomorrow,
	})
}

// DueThisWeek lists programado records scheduled from today through today plus the weekly window.
func (s *Maintenance) DueThisWeek(ctx context.Context) ([]model.ScheduledMaintenance, error) {
	start, _, weekEnd := s.window()
	return s.Store.ListMaintenance(ctx, store.MaintenanceFilter{
		Statuses: []model.MaintenanceStatus{model.MaintenanceScheduled}, From: start, To: weekEnd,
	})
}

// Overdue lists programado records scheduled before today.
func (s *Maintenance) Overdue(ctx context.Context) ([]model.ScheduledMaintenance, error) {
	start, _, _ := s.window()
	return s.Store.ListMaintenance(ctx, store.MaintenanceFilter{
		Statuses: []model.MaintenanceStatus{model.MaintenanceScheduled}, To: start,
	})
}

// List returns records of a named scope: today, week, overdue, or everything.
func (s *Maintenance) List(ctx context.Context, scope string, f store.MaintenanceFilter) ([]model.ScheduledMaintenance, error) {
	switch scope {
	case "today":
		return s.DueToday(ctx)
	case "week":
		return s.DueThisWeek(ctx)
	case "overdue":
		return s.Overdue(ctx)
	case "", "all":
		for _, st := range f.Statuses {
			if !st.IsValid() {
				return nil, model.NewValidationError("status", fmt.Sprintf("unknown maintenance status %q", st))
			}
		}
		return s.Store.ListMaintenance(ctx, f)
	default:
		return nil, model.NewValidationError("scope", fmt.Sprintf("unknown scope %q", scope))
	}
}

// Compliance is the share of open records that are not overdue, as a percentage.
// With no open records it is 100.
func (s *Maintenance) Compliance(ctx context.Context) (float64, error) {
	start, _, _ := s.window()
	open, err := s.Store.CountMaintenance(ctx, store.MaintenanceFilter{Statuses: openMaintenance})
	if err != nil {
		return 0, err
	}
	if open == 0 {
		return 100, nil
	}
	overdue, err := s.Store.CountMaintenance(ctx, store.MaintenanceFilter{
		Statuses: []model.MaintenanceStatus{model.MaintenanceScheduled}, To: start,
	})
	if err != nil {
		return 0, err
	}
	return round1(float64(open-overdue) / float64(open) * 100), nil
}

func (s *Maintenance) Summary(ctx context.Context) (*MaintenanceSummary, error) {
	start, tomorrow, weekEnd := s.window()
	scheduled := []model.MaintenanceStatus{model.MaintenanceScheduled}

	var out MaintenanceSummary
	var err error
	if out.DueToday, err = s.Store.CountMaintenance(ctx, store.MaintenanceFilter{Statuses: scheduled, From: start, To: tomorrow}); err != nil {
		return nil, err
	}
	if out.DueThisWeek, err = s.Store.CountMaintenance(ctx, store.MaintenanceFilter{Statuses: scheduled, From: start, To: weekEnd}); err != nil {
		return nil, err
	}
	if out.Overdue, err = s.Store.CountMaintenance(ctx, store.MaintenanceFilter{Statuses: scheduled, To: start}); err != nil {
		return nil, err
	}
	if out.ComplianceRate, err = s.Compliance(ctx); err != nil {
		return nil, err
	}
	return &out, nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
