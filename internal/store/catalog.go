package store

import (
	"context"
	"fmt"

	"machinery-backend/internal/model"
)

func (s *gormStore) CreateCategory(ctx context.Context, c *model.Category) error {
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("failed to create category %q: %w", c.Name, err)
	}
	return nil
}

func (s *gormStore) GetCategory(ctx context.Context, id int64) (*model.Category, error) {
	var c model.Category
	if err := s.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, notFound(err, "category", id)
	}
	return &c, nil
}

func (s *gormStore) ListCategories(ctx context.Context, active *bool) ([]model.Category, error) {
	var categories []model.Category
	q := s.db.WithContext(ctx).Order("name ASC")
	if active != nil {
		q = q.Where("active = ?", *active)
	}
	if err := q.Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

func (s *gormStore) SetCategoryActive(ctx context.Context, id int64, active bool) error {
	res := s.db.WithContext(ctx).Model(&model.Category{}).Where("id = ?", id).Update("active", active)
	if res.Error != nil {
		return fmt.Errorf("failed to update category %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("category %d: %w", id, model.ErrNotFound)
	}
	return nil
}

func (s *gormStore) DeleteCategory(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Delete(&model.Category{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete category %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("category %d: %w", id, model.ErrNotFound)
	}
	return nil
}

func (s *gormStore) CreateSupplier(ctx context.Context, sup *model.Supplier) error {
	if err := s.db.WithContext(ctx).Create(sup).Error; err != nil {
		return fmt.Errorf("failed to create supplier %q: %w", sup.TaxID, err)
	}
	return nil
}

func (s *gormStore) GetSupplier(ctx context.Context, id int64) (*model.Supplier, error) {
	var sup model.Supplier
	if err := s.db.WithContext(ctx).First(&sup, id).Error; err != nil {
		return nil, notFound(err, "supplier", id)
	}
	return &sup, nil
}

func (s *gormStore) ListSuppliers(ctx context.Context, active *bool) ([]model.Supplier, error) {
	var suppliers []model.Supplier
	q := s.db.WithContext(ctx).Order("name ASC")
	if active != nil {
		q = q.Where("active = ?", *active)
	}
	if err := q.Find(&suppliers).Error; err != nil {
		return nil, fmt.Errorf("failed to list suppliers: %w", err)
	}
	return suppliers, nil
}

func (s *gormStore) SetSupplierActive(ctx context.Context, id int64, active bool) error {
	res := s.db.WithContext(ctx).Model(&model.Supplier{}).Where("id = ?", id).Update("active", active)
	if res.Error != nil {
		return fmt.Errorf("failed to update supplier %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("supplier %d: %w", id, model.ErrNotFound)
	}
	return nil
}

func (s *gormStore) DeleteSupplier(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Delete(&model.Supplier{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete supplier %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("supplier %d: %w", id, model.ErrNotFound)
	}
	return nil
}

// CountMachinesReferencing counts machines pointing at a category or supplier.
func (s *gormStore) CountMachinesReferencing(ctx context.Context, column string, id int64) (int64, error) {
	if column != "category_id" && column != "supplier_id" {
		return 0, fmt.Errorf("column %q is not a machine reference", column)
	}
	var n int64
	if err := s.db.WithContext(ctx).Model(&model.Machine{}).Where(column+" = ?", id).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count machines by %s: %w", column, err)
	}
	return n, nil
}
