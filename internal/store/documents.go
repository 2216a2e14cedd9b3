package store

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"machinery-backend/internal/model"
)

func (s *gormStore) CreateDocument(ctx context.Context, d *model.MachineDocument) error {
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(d).Error; err != nil {
		return fmt.Errorf("failed to record document %q for machine %d: %w", d.FileName, d.MachineID, err)
	}
	return nil
}

func (s *gormStore) GetDocument(ctx context.Context, id int64) (*model.MachineDocument, error) {
	var d model.MachineDocument
	if err := s.db.WithContext(ctx).First(&d, id).Error; err != nil {
		return nil, notFound(err, "document", id)
	}
	return &d, nil
}

func (s *gormStore) ListDocuments(ctx context.Context, machineID int64) ([]model.MachineDocument, error) {
	var docs []model.MachineDocument
	if err := s.db.WithContext(ctx).Where("machine_id = ?", machineID).Order("created_at DESC").Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("failed to list documents of machine %d: %w", machineID, err)
	}
	return docs, nil
}
