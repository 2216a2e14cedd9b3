package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"machinery-backend/internal/model"
)

// priorityRank orders alerts critica > alta > media > baja.
const priorityRank = "CASE priority WHEN 'critica' THEN 4 WHEN 'alta' THEN 3 WHEN 'media' THEN 2 WHEN 'baja' THEN 1 ELSE 0 END"

func (s *gormStore) CreateAlert(ctx context.Context, a *model.Alert) error {
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(a).Error; err != nil {
		return fmt.Errorf("failed to create alert for machine %d: %w", a.MachineID, err)
	}
	return nil
}

func (s *gormStore) GetAlert(ctx context.Context, id int64) (*model.Alert, error) {
	var a model.Alert
	if err := s.db.WithContext(ctx).Preload("Machine").First(&a, id).Error; err != nil {
		return nil, notFound(err, "alert", id)
	}
	return &a, nil
}

func (s *gormStore) alertQuery(ctx context.Context, f AlertFilter) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&model.Alert{})
	if f.MachineID > 0 {
		q = q.Where("machine_id = ?", f.MachineID)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}
	if f.Priority != "" {
		q = q.Where("priority = ?", f.Priority)
	}
	if !f.Since.IsZero() {
		q = q.Where("created_at >= ?", f.Since)
	}
	return q
}

func (s *gormStore) ListAlerts(ctx context.Context, f AlertFilter) ([]model.Alert, error) {
	var alerts []model.Alert
	err := s.alertQuery(ctx, f).
		Preload("Machine").
		Order("created_at DESC, id DESC").
		Limit(clampLimit(f.Limit)).
		Find(&alerts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	return alerts, nil
}

// ListActiveAlerts returns active alerts, most urgent first, newest first within a priority.
func (s *gormStore) ListActiveAlerts(ctx context.Context, limit int) ([]model.Alert, error) {
	var alerts []model.Alert
	err := s.db.WithContext(ctx).
		Preload("Machine").
		Where("status = ?", model.AlertActive).
		Order(priorityRank + " DESC").
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&alerts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active alerts: %w", err)
	}
	return alerts, nil
}

// TransitionAlert applies updates only while the alert is in one of the from states.
// It returns model.ErrConflict when the alert exists but has moved on.
func (s *gormStore) TransitionAlert(ctx context.Context, id int64, from []model.AlertStatus, updates map[string]any) error {
	res := s.db.WithContext(ctx).Model(&model.Alert{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to update alert %d: %w", id, res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var n int64
	if err := s.db.WithContext(ctx).Model(&model.Alert{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return fmt.Errorf("failed to check alert %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("alert %d: %w", id, model.ErrNotFound)
	}
	return fmt.Errorf("alert %d changed state concurrently: %w", id, model.ErrConflict)
}

func (s *gormStore) CountAlerts(ctx context.Context, f AlertFilter) (int64, error) {
	var n int64
	if err := s.alertQuery(ctx, f).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count alerts: %w", err)
	}
	return n, nil
}

// HasOpenAlert reports whether the machine has an active or in-progress alert of type t.
func (s *gormStore) HasOpenAlert(ctx context.Context, machineID int64, t model.AlertType) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.Alert{}).
		Where("machine_id = ? AND type = ? AND status IN ?", machineID, t,
			[]model.AlertStatus{model.AlertActive, model.AlertInProgress}).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("failed to count open %s alerts: %w", t, err)
	}
	return n > 0, nil
}
