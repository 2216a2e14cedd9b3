package store

import (
	"context"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm/clause"

	"machinery-backend/internal/model"
)

func (s *gormStore) AppendAudit(ctx context.Context, r *model.AuditRecord) error {
	if len(r.Details) == 0 {
		r.Details = datatypes.JSON("{}")
	}
	if err := s.db.WithContext(ctx).Create(r).Error; err != nil {
		return fmt.Errorf("failed to append audit record for %s %d: %w", r.EntityType, r.EntityID, err)
	}
	return nil
}

func (s *gormStore) ListAudit(ctx context.Context, entityType string, entityID int64) ([]model.AuditRecord, error) {
	var records []model.AuditRecord
	err := s.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at DESC, id DESC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list audit records for %s %d: %w", entityType, entityID, err)
	}
	return records, nil
}

// UpsertPerformanceMetrics writes one snapshot per date, period and training center.
func (s *gormStore) UpsertPerformanceMetrics(ctx context.Context, m *model.PerformanceMetrics) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "date"}, {Name: "period"}, {Name: "training_center"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"total_machines", "operational_machines", "maintenance_machines", "out_of_order_machines",
			"average_efficiency", "maintenance_scheduled", "maintenance_completed", "maintenance_pending",
			"compliance_rate", "alerts_generated", "alerts_resolved", "alerts_critical", "updated_at",
		}),
	}).Create(m).Error
	if err != nil {
		return fmt.Errorf("failed to upsert performance metrics for %s: %w", m.Date.Format("2006-01-02"), err)
	}
	return nil
}

func (s *gormStore) ListPerformanceMetrics(ctx context.Context, limit int) ([]model.PerformanceMetrics, error) {
	var metrics []model.PerformanceMetrics
	if err := s.db.WithContext(ctx).Order("date DESC, id DESC").Limit(clampLimit(limit)).Find(&metrics).Error; err != nil {
		return nil, fmt.Errorf("failed to list performance metrics: %w", err)
	}
	return metrics, nil
}
