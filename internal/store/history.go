package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm/clause"

	"machinery-backend/internal/model"
)

func (s *gormStore) AppendHistory(ctx context.Context, e *model.HistoryEntry) error {
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(e).Error; err != nil {
		return fmt.Errorf("failed to append %s history for machine %d: %w", e.EventType, e.MachineID, err)
	}
	return nil
}

// LastHistoryTime returns the timestamp of the newest entry for a machine.
func (s *gormStore) LastHistoryTime(ctx context.Context, machineID int64) (time.Time, bool, error) {
	var entries []model.HistoryEntry
	err := s.db.WithContext(ctx).
		Select("id", "occurred_at").
		Where("machine_id = ?", machineID).
		Order("occurred_at DESC, id DESC").
		Limit(1).
		Find(&entries).Error
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to read last history time of machine %d: %w", machineID, err)
	}
	if len(entries) == 0 {
		return time.Time{}, false, nil
	}
	return entries[0].OccurredAt, true, nil
}

// ListHistory returns a machine's entries newest first.
func (s *gormStore) ListHistory(ctx context.Context, machineID int64, limit int) ([]model.HistoryEntry, error) {
	var entries []model.HistoryEntry
	err := s.db.WithContext(ctx).
		Where("machine_id = ?", machineID).
		Order("occurred_at DESC, id DESC").
		Limit(clampLimit(limit)).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list history of machine %d: %w", machineID, err)
	}
	return entries, nil
}

func (s *gormStore) CountHistory(ctx context.Context, machineID int64) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&model.HistoryEntry{}).Where("machine_id = ?", machineID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count history of machine %d: %w", machineID, err)
	}
	return n, nil
}
