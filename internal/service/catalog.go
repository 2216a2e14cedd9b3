package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"machinery-backend/internal/model"
	"machinery-backend/internal/store"
)

// CategoryInput creates a category.
type CategoryInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// SupplierInput creates a supplier.
type SupplierInput struct {
	Name        string `json:"name"`
	TaxID       string `json:"tax_id"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	Address     string `json:"address"`
	ContactName string `json:"contact_name"`
	Rating      *int   `json:"rating"`
}

// Catalog manages categories and suppliers. Mutations are admin-only and
// deleting an entry still referenced by a machine fails with model.ErrConflict.
type Catalog struct {
	Deps
	audit *Recorder
}

func NewCatalog(deps Deps, audit *Recorder) *Catalog {
	deps.fill()
	return &Catalog{Deps: deps, audit: audit}
}

func (c *Catalog) Categories(ctx context.Context, active *bool) ([]model.Category, error) {
	return c.Store.ListCategories(ctx, active)
}

func (c *Catalog) CreateCategory(ctx context.Context, actor Actor, in CategoryInput) (*model.Category, error) {
	if err := requireAdmin(actor, "creating a category"); err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, model.NewValidationError("name", "is required")
	}

	cat := &model.Category{Name: in.Name, Description: strings.TrimSpace(in.Description), Active: true}
	err := c.Store.Transaction(ctx, func(tx store.Store) error {
		existing, err := tx.ListCategories(ctx, nil)
		if err != nil {
			return err
		}
		for _, e := range existing {
			if strings.EqualFold(e.Name, cat.Name) {
				return model.NewValidationError("name", fmt.Sprintf("category %q already exists", cat.Name))
			}
		}
		return tx.CreateCategory(ctx, cat)
	})
	if err != nil {
		return nil, err
	}
	c.Log.Info("category created", zap.Int64("category_id", cat.ID), zap.String("name", cat.Name))
	return cat, nil
}

func (c *Catalog) SetCategoryActive(ctx context.Context, actor Actor, id int64, active bool) (*model.Category, error) {
	if err := requireAdmin(actor, "changing a category"); err != nil {
		return nil, err
	}
	if err := c.Store.SetCategoryActive(ctx, id, active); err != nil {
		return nil, err
	}
	return c.Store.GetCategory(ctx, id)
}

func (c *Catalog) DeleteCategory(ctx context.Context, actor Actor, id int64) error {
	if err := requireAdmin(actor, "deleting a category"); err != nil {
		return err
	}
	return c.Store.Transaction(ctx, func(tx store.Store) error {
		cat, err := tx.GetCategory(ctx, id)
		if err != nil {
			return err
		}
		if err := checkUnreferenced(ctx, tx, "category_id", id, "category "+cat.Name); err != nil {
			return err
		}
		if err := c.audit.Ledger(ctx, tx, "category", id, model.EventDeleted, cat.Name, actor, cat); err != nil {
			return err
		}
		return tx.DeleteCategory(ctx, id)
	})
}

func (c *Catalog) Suppliers(ctx context.Context, active *bool) ([]model.Supplier, error) {
	return c.Store.ListSuppliers(ctx, active)
}

func (c *Catalog) CreateSupplier(ctx context.Context, actor Actor, in SupplierInput) (*model.Supplier, error) {
	if err := requireAdmin(actor, "creating a supplier"); err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	in.TaxID = strings.TrimSpace(in.TaxID)

	verr := &model.ValidationError{}
	verr.Required("name", in.Name == "")
	verr.Required("tax_id", in.TaxID == "")
	if in.Rating != nil && (*in.Rating < 1 || *in.Rating > 5) {
		verr.Add("rating", "must be between 1 and 5")
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}

	sup := &model.Supplier{
		Name:        in.Name,
		TaxID:       in.TaxID,
		Phone:       strings.TrimSpace(in.Phone),
		Email:       strings.ToLower(strings.TrimSpace(in.Email)),
		Address:     in.Address,
		ContactName: strings.TrimSpace(in.ContactName),
		Rating:      in.Rating,
		Active:      true,
	}
	err := c.Store.Transaction(ctx, func(tx store.Store) error {
		existing, err := tx.ListSuppliers(ctx, nil)
		if err != nil {
			return err
		}
		for _, e := range existing {
			if e.TaxID == sup.TaxID {
				return model.NewValidationError("tax_id", fmt.Sprintf("supplier with tax id %q already exists", sup.TaxID))
			}
		}
		return tx.CreateSupplier(ctx, sup)
	})
	if err != nil {
		return nil, err
	}
	c.Log.Info("supplier created", zap.Int64("supplier_id", sup.ID), zap.String("tax_id", sup.TaxID))
	return sup, nil
}

func (c *Catalog) SetSupplierActive(ctx context.Context, actor Actor, id int64, active bool) (*model.Supplier, error) {
	if err := requireAdmin(actor, "changing a supplier"); err != nil {
		return nil, err
	}
	if err := c.Store.SetSupplierActive(ctx, id, active); err != nil {
		return nil, err
	}
	return c.Store.GetSupplier(ctx, id)
}

func (c *Catalog) DeleteSupplier(ctx context.Context, actor Actor, id int64) error {
	if err := requireAdmin(actor, "deleting a supplier"); err != nil {
		return err
	}
	return c.Store.Transaction(ctx, func(tx store.Store) error {
		sup, err := tx.GetSupplier(ctx, id)
		if err != nil {
			return err
		}
		if err := checkUnreferenced(ctx, tx, "supplier_id", id, "supplier "+sup.Name); err != nil {
			return err
		}
		if err := c.audit.Ledger(ctx, tx, "supplier", id, model.EventDeleted, sup.Name, actor, sup); err != nil {
			return err
		}
		return tx.DeleteSupplier(ctx, id)
	})
}

func checkUnreferenced(ctx context.Context, tx store.Store, column string, id int64, what string) error {
	n, err := tx.CountMachinesReferencing(ctx, column, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%s is used by %d machines: %w", what, n, model.ErrConflict)
	}
	return nil
}
