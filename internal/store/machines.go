package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"machinery-backend/internal/model"
)

func (s *gormStore) CreateMachine(ctx context.Context, m *model.Machine) error {
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(m).Error; err != nil {
		return fmt.Errorf("failed to create machine %q: %w", m.InventoryCode, err)
	}
	return nil
}

func (s *gormStore) GetMachine(ctx context.Context, id int64) (*model.Machine, error) {
	var m model.Machine
	if err := s.db.WithContext(ctx).Preload("Category").Preload("Supplier").First(&m, id).Error; err != nil {
		return nil, notFound(err, "machine", id)
	}
	return &m, nil
}

func (s *gormStore) ListMachines(ctx context.Context, f MachineFilter) ([]model.Machine, int64, error) {
	q := s.db.WithContext(ctx).Model(&model.Machine{})
	if f.CategoryID > 0 {
		q = q.Where("category_id = ?", f.CategoryID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Center != "" {
		q = q.Where("training_center = ?", f.Center)
	}
	if f.Query != "" {
		q = matchText(q, f.Query)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count machines: %w", err)
	}

	var machines []model.Machine
	err := q.Preload("Category").
		Order("inventory_code ASC").
		Limit(clampLimit(f.Limit)).
		Offset(f.Offset).
		Find(&machines).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list machines: %w", err)
	}
	return machines, total, nil
}

func (s *gormStore) SearchMachines(ctx context.Context, q string, limit int) ([]model.Machine, error) {
	var machines []model.Machine
	err := matchText(s.db.WithContext(ctx).Model(&model.Machine{}), q).
		Preload("Category").
		Order("name ASC").
		Limit(limit).
		Find(&machines).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search machines for %q: %w", q, err)
	}
	return machines, nil
}

func matchText(q *gorm.DB, text string) *gorm.DB {
	like := "%" + strings.ToLower(text) + "%"
	return q.Where(
		"LOWER(name) LIKE ? OR LOWER(inventory_code) LIKE ? OR LOWER(brand) LIKE ? OR LOWER(model) LIKE ?",
		like, like, like, like,
	)
}

// SaveMachine writes every column of m when its version still matches the stored row,
// then bumps m.Version. A stale version yields model.ErrConflict.
func (s *gormStore) SaveMachine(ctx context.Context, m *model.Machine) error {
	current := m.Version
	m.Version = current + 1
	res := s.db.WithContext(ctx).Model(m).
		Where("version = ?", current).
		Select("*").
		Omit("ID", "CreatedAt", clause.Associations).
		Updates(m)
	if res.Error != nil {
		m.Version = current
		return fmt.Errorf("failed to save machine %d: %w", m.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		m.Version = current
		return s.versionMismatch(ctx, m.ID)
	}
	return nil
}

// UpdateMachineStatus sets the status only if the row is still at expectedVersion.
func (s *gormStore) UpdateMachineStatus(ctx context.Context, id, expectedVersion int64, status model.MachineStatus) error {
	res := s.db.WithContext(ctx).Model(&model.Machine{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(map[string]any{
			"status":  status,
			"version": gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update status of machine %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return s.versionMismatch(ctx, id)
	}
	return nil
}

func (s *gormStore) versionMismatch(ctx context.Context, id int64) error {
	var n int64
	if err := s.db.WithContext(ctx).Model(&model.Machine{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return fmt.Errorf("failed to check machine %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("machine %d: %w", id, model.ErrNotFound)
	}
	return fmt.Errorf("machine %d was modified concurrently: %w", id, model.ErrConflict)
}

var uniqueMachineColumns = map[string]bool{
	"inventory_code": true,
	"serial_number":  true,
}

// MachineFieldTaken reports whether another machine already uses value in a unique column.
func (s *gormStore) MachineFieldTaken(ctx context.Context, column, value string, excludeID int64) (bool, error) {
	if !uniqueMachineColumns[column] {
		return false, fmt.Errorf("column %q is not a unique machine column", column)
	}
	var n int64
	q := s.db.WithContext(ctx).Model(&model.Machine{}).Where(column+" = ?", value)
	if excludeID > 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&n).Error; err != nil {
		return false, fmt.Errorf("failed to check %s uniqueness: %w", column, err)
	}
	return n > 0, nil
}

// DeleteMachineCascade removes a machine together with everything it owns.
func (s *gormStore) DeleteMachineCascade(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		owned := []any{
			&model.Alert{},
			&model.HistoryEntry{},
			&model.ScheduledMaintenance{},
			&model.MachineDocument{},
		}
		for _, m := range owned {
			if err := tx.Where("machine_id = ?", id).Delete(m).Error; err != nil {
				return fmt.Errorf("failed to delete %T rows of machine %d: %w", m, id, err)
			}
		}
		if err := tx.Exec("DELETE FROM subscription_machine_mapping WHERE machine_id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete subscriptions of machine %d: %w", id, err)
		}

		res := tx.Delete(&model.Machine{}, id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete machine %d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("machine %d: %w", id, model.ErrNotFound)
		}
		return nil
	})
}

func (s *gormStore) CountMachines(ctx context.Context, statuses ...model.MachineStatus) (int64, error) {
	var n int64
	q := s.db.WithContext(ctx).Model(&model.Machine{})
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	if err := q.Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count machines: %w", err)
	}
	return n, nil
}

func (s *gormStore) AverageEfficiency(ctx context.Context) (float64, error) {
	var avg float64
	err := s.db.WithContext(ctx).Model(&model.Machine{}).
		Where("status <> ?", model.MachineRetired).
		Select("COALESCE(AVG(efficiency), 0)").
		Scan(&avg).Error
	if err != nil {
		return 0, fmt.Errorf("failed to average efficiency: %w", err)
	}
	return avg, nil
}

// MachinesDueForMaintenance returns non-retired machines whose next maintenance date is on or before day.
func (s *gormStore) MachinesDueForMaintenance(ctx context.Context, day time.Time) ([]model.Machine, error) {
	var machines []model.Machine
	err := s.db.WithContext(ctx).
		Where("next_maintenance_on IS NOT NULL AND next_maintenance_on <= ?", model.DateOf(day)).
		Where("status <> ?", model.MachineRetired).
		Order("next_maintenance_on ASC").
		Find(&machines).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list machines due for maintenance: %w", err)
	}
	return machines, nil
}
