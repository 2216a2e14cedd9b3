package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"machinery-backend/internal/model"
)

func (s *gormStore) CreateMaintenance(ctx context.Context, m *model.ScheduledMaintenance) error {
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(m).Error; err != nil {
		return fmt.Errorf("failed to schedule maintenance for machine %d: %w", m.MachineID, err)
	}
	return nil
}

func (s *gormStore) GetMaintenance(ctx context.Context, id int64) (*model.ScheduledMaintenance, error) {
	var m model.ScheduledMaintenance
	if err := s.db.WithContext(ctx).Preload("Machine").Preload("Technician").First(&m, id).Error; err != nil {
		return nil, notFound(err, "maintenance", id)
	}
	return &m, nil
}

func (s *gormStore) maintenanceQuery(ctx context.Context, f MaintenanceFilter) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&model.ScheduledMaintenance{})
	if f.MachineID > 0 {
		q = q.Where("machine_id = ?", f.MachineID)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}
	if !f.From.IsZero() {
		q = q.Where("scheduled_at >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("scheduled_at < ?", f.To)
	}
	return q
}

func (s *gormStore) ListMaintenance(ctx context.Context, f MaintenanceFilter) ([]model.ScheduledMaintenance, error) {
	var items []model.ScheduledMaintenance
	err := s.maintenanceQuery(ctx, f).
		Preload("Machine").
		Preload("Technician").
		Order("scheduled_at ASC, id ASC").
		Limit(clampLimit(f.Limit)).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list maintenance: %w", err)
	}
	return items, nil
}

func (s *gormStore) CountMaintenance(ctx context.Context, f MaintenanceFilter) (int64, error) {
	var n int64
	if err := s.maintenanceQuery(ctx, f).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count maintenance: %w", err)
	}
	return n, nil
}

// TransitionMaintenance applies updates only while the record is in one of the from states.
func (s *gormStore) TransitionMaintenance(ctx context.Context, id int64, from []model.MaintenanceStatus, updates map[string]any) error {
	res := s.db.WithContext(ctx).Model(&model.ScheduledMaintenance{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to update maintenance %d: %w", id, res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var n int64
	if err := s.db.WithContext(ctx).Model(&model.ScheduledMaintenance{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return fmt.Errorf("failed to check maintenance %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("maintenance %d: %w", id, model.ErrNotFound)
	}
	return fmt.Errorf("maintenance %d changed state concurrently: %w", id, model.ErrConflict)
}
