package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"machinery-backend/internal/events"
	"machinery-backend/internal/model"
	"machinery-backend/internal/store"
)

const defaultActiveAlertLimit = 10

// AlertInput is the payload for raising an alert.
type AlertInput struct {
	MachineID          int64    `json:"machine_id"`
	Type               string   `json:"type"`
	Title              string   `json:"title"`
	Priority           string   `json:"priority"`
	Description        string   `json:"description"`
	Category           string   `json:"category"`
	DetectedBy         string   `json:"detected_by"`
	Symptoms           []string `json:"symptoms"`
	OperationalImpact  string   `json:"operational_impact"`
	SafetyRisk         string   `json:"safety_risk"`
	ImmediateActions   []string `json:"immediate_actions"`
	AssignedTechnician string   `json:"assigned_technician"`
	EstimatedDate      *Date    `json:"estimated_date"`
}

func (in *AlertInput) details() model.AlertDetails {
	return model.AlertDetails{
		Category:           strings.TrimSpace(in.Category),
		DetectedBy:         strings.TrimSpace(in.DetectedBy),
		Symptoms:           in.Symptoms,
		OperationalImpact:  in.OperationalImpact,
		SafetyRisk:         in.SafetyRisk,
		ImmediateActions:   in.ImmediateActions,
		AssignedTechnician: strings.TrimSpace(in.AssignedTechnician),
		EstimatedDate:      datePtr(in.EstimatedDate),
	}
}

// Alerts manages the alert lifecycle: activa -> en_proceso -> resuelta,
// activa -> resuelta and activa -> ignorada.
type Alerts struct {
	Deps
	audit *Recorder
}

func NewAlerts(deps Deps, audit *Recorder) *Alerts {
	deps.fill()
	return &Alerts{Deps: deps, audit: audit}
}

// Create raises an alert. A critical alert whose immediate actions include
// suspending operation also takes the machine out of service, recording a second
// automatic history entry in the same transaction.
func (s *Alerts) Create(ctx context.Context, actor Actor, in AlertInput) (*model.Alert, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)

	verr := &model.ValidationError{}
	verr.Required("machine_id", in.MachineID <= 0)
	verr.Required("title", in.Title == "")
	verr.Required("description", in.Description == "")

	alertType := model.AlertType(in.Type)
	if in.Type == "" {
		alertType = model.AlertRepair
	} else if !alertType.IsValid() {
		verr.Add("type", fmt.Sprintf("unknown alert type %q", in.Type))
	}
	priority := model.PriorityMedium
	if in.Priority != "" {
		p, ok := model.ParseAlertPriority(in.Priority)
		if !ok {
			verr.Add("priority", fmt.Sprintf("unknown priority %q", in.Priority))
		}
		priority = p
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}

	details := in.details()
	a := &model.Alert{
		MachineID:   in.MachineID,
		Type:        alertType,
		Priority:    priority,
		Status:      model.AlertActive,
		Title:       in.Title,
		Description: in.Description,
		Details:     datatypes.NewJSONType(details),
		CreatedByID: actor.UserID,
		CreatedBy:   actor.Name,
		CreatedAt:   s.Now().UTC(),
	}

	var suspended *model.MachineStatus
	err := s.Store.Transaction(ctx, func(tx store.Store) error {
		m, err := tx.GetMachine(ctx, in.MachineID)
		if err != nil {
			return err
		}
		if err := tx.CreateAlert(ctx, a); err != nil {
			return err
		}
		_, err = s.audit.Record(ctx, tx, m.ID, Event{
			Type:        model.EventAlertCreated,
			Description: fmt.Sprintf("Alert raised: %s", a.Title),
			New:         string(a.Priority),
			AlertID:     &a.ID,
			Details:     model.EventDetails{Alert: &details},
		}, actor)
		if err != nil {
			return err
		}

		if a.Priority != model.PriorityCritical || !details.Suspends() {
			return nil
		}
		previous := m.Status
		if err := tx.UpdateMachineStatus(ctx, m.ID, m.Version, model.MachineOutOfOrder); err != nil {
			return err
		}
		_, err = s.audit.Record(ctx, tx, m.ID, Event{
			Type:        model.EventStatusChange,
			Description: fmt.Sprintf("Status changed automatically by critical alert: %s", a.Title),
			Previous:    string(previous),
			New:         string(model.MachineOutOfOrder),
			AlertID:     &a.ID,
			Details:     model.EventDetails{Automatic: true},
		}, actor)
		suspended = &previous
		return err
	})
	if err != nil {
		return nil, err
	}

	s.Metrics.AlertCreated(string(a.Type), string(a.Priority))
	s.Log.Info("alert created", zap.Int64("alert_id", a.ID), zap.Int64("machine_id", a.MachineID),
		zap.String("priority", string(a.Priority)))
	s.publish(ctx, events.Event{Type: events.AlertCreated, MachineID: a.MachineID, EntityID: a.ID,
		Data: map[string]any{"type": a.Type, "priority": a.Priority, "title": a.Title}}, actor)

	if suspended != nil {
		s.Metrics.StatusChanged(string(model.MachineOutOfOrder), true)
		s.Log.Warn("machine suspended by critical alert", zap.Int64("machine_id", a.MachineID),
			zap.Int64("alert_id", a.ID), zap.String("from", string(*suspended)))
		s.publish(ctx, events.Event{Type: events.MachineStatusChanged, MachineID: a.MachineID, EntityID: a.MachineID,
			Data: map[string]any{"from": *suspended, "to": model.MachineOutOfOrder, "automatic": true, "alert_id": a.ID}}, actor)
	}

	if s.Notifier != nil && a.Priority.Rank() >= model.PriorityHigh.Rank() {
		s.Notifier.Dispatch(a.ID)
	}
	return a, nil
}

// Start moves an active alert to en_proceso.
func (s *Alerts) Start(ctx context.Context, actor Actor, id int64) (*model.Alert, error) {
	err := s.transition(ctx, id, []model.AlertStatus{model.AlertActive}, map[string]any{
		"status": model.AlertInProgress,
	})
	if err != nil {
		return nil, err
	}
	return s.finish(ctx, actor, id, model.AlertInProgress, events.AlertStarted)
}

// Resolve closes an active or in-progress alert. Resolving twice yields
// model.ErrAlreadyResolved without side effects.
func (s *Alerts) Resolve(ctx context.Context, actor Actor, id int64, notes string) (*model.Alert, error) {
	now := s.Now().UTC()
	open := []model.AlertStatus{model.AlertActive, model.AlertInProgress}

	err := s.Store.Transaction(ctx, func(tx store.Store) error {
		a, err := tx.GetAlert(ctx, id)
		if err != nil {
			return err
		}
		if err := checkOpen(a, open); err != nil {
			return err
		}
		err = tx.TransitionAlert(ctx, id, open, map[string]any{
			"status":           model.AlertResolved,
			"resolved_at":      now,
			"resolved_by_id":   actor.UserID,
			"resolved_by":      actor.Name,
			"resolution_notes": notes,
		})
		if err != nil {
			return err
		}
		_, err = s.audit.Record(ctx, tx, a.MachineID, Event{
			Type:        model.EventAlertResolved,
			Description: fmt.Sprintf("Alert resolved: %s", a.Title),
			Previous:    string(a.Status),
			New:         string(model.AlertResolved),
			AlertID:     &a.ID,
			Details:     model.EventDetails{Notes: notes},
		}, actor)
		return err
	})
	if err != nil {
		return nil, s.explainConflict(ctx, id, err)
	}
	return s.finish(ctx, actor, id, model.AlertResolved, events.AlertResolved)
}

// Ignore dismisses an active alert.
func (s *Alerts) Ignore(ctx context.Context, actor Actor, id int64, notes string) (*model.Alert, error) {
	err := s.transition(ctx, id, []model.AlertStatus{model.AlertActive}, map[string]any{
		"status":           model.AlertIgnored,
		"resolution_notes": notes,
	})
	if err != nil {
		return nil, err
	}
	return s.finish(ctx, actor, id, model.AlertIgnored, events.AlertIgnored)
}

func (s *Alerts) transition(ctx context.Context, id int64, from []model.AlertStatus, updates map[string]any) error {
	a, err := s.Store.GetAlert(ctx, id)
	if err != nil {
		return err
	}
	if err := checkOpen(a, from); err != nil {
		return err
	}
	if err := s.Store.TransitionAlert(ctx, id, from, updates); err != nil {
		return s.explainConflict(ctx, id, err)
	}
	return nil
}

func (s *Alerts) finish(ctx context.Context, actor Actor, id int64, status model.AlertStatus, eventType string) (*model.Alert, error) {
	a, err := s.Store.GetAlert(ctx, id)
	if err != nil {
		return nil, err
	}
	s.Metrics.AlertTransitioned(string(status))
	s.Log.Info("alert transitioned", zap.Int64("alert_id", id), zap.String("status", string(status)))
	s.publish(ctx, events.Event{Type: eventType, MachineID: a.MachineID, EntityID: a.ID,
		Data: map[string]any{"status": status}}, actor)
	return a, nil
}

// checkOpen rejects transitions out of a state not listed in from.
func checkOpen(a *model.Alert, from []model.AlertStatus) error {
	for _, st := range from {
		if a.Status == st {
			return nil
		}
	}
	if a.Status == model.AlertResolved {
		return fmt.Errorf("alert %d: %w", a.ID, model.ErrAlreadyResolved)
	}
	return fmt.Errorf("alert %d is %s: %w", a.ID, a.Status, model.ErrInvalidTransition)
}

// explainConflict turns a lost race into the error the winner's state implies.
func (s *Alerts) explainConflict(ctx context.Context, id int64, err error) error {
	if !isConflict(err) {
		return err
	}
	a, getErr := s.Store.GetAlert(ctx, id)
	if getErr != nil {
		return errors.Join(err, getErr)
	}
	if a.Status == model.AlertResolved {
		return fmt.Errorf("alert %d: %w", id, model.ErrAlreadyResolved)
	}
	return fmt.Errorf("alert %d is %s: %w", id, a.Status, model.ErrInvalidTransition)
}

func (s *Alerts) Get(ctx context.Context, id int64) (*model.Alert, error) {
	return s.Store.GetAlert(ctx, id)
}

// ListActive returns active alerts, most urgent and newest first.
func (s *Alerts) ListActive(ctx context.Context, limit int) ([]model.Alert, error) {
	if limit <= 0 {
		limit = defaultActiveAlertLimit
	}
	return s.Store.ListActiveAlerts(ctx, limit)
}

func (s *Alerts) List(ctx context.Context, f store.AlertFilter) ([]model.Alert, error) {
	for _, st := range f.Statuses {
		if !st.IsValid() {
			return nil, model.NewValidationError("status", fmt.Sprintf("unknown alert status %q", st))
		}
	}
	if f.Priority != "" {
		p, ok := model.ParseAlertPriority(string(f.Priority))
		if !ok {
			return nil, model.NewValidationError("priority", fmt.Sprintf("unknown priority %q", f.Priority))
		}
		f.Priority = p
	}
	return s.Store.ListAlerts(ctx, f)
}
