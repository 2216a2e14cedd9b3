package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"machinery-backend/internal/model"
)

func TestCatalog_RequiresAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cat := NewCatalog(f.deps, f.audit)

	_, err := cat.CreateCategory(ctx, f.tech, CategoryInput{Name: "Fresadoras"})
	assert.ErrorIs(t, err, model.ErrPermission)
	_, err = cat.CreateSupplier(ctx, f.tech, SupplierInput{Name: "Acme", TaxID: "900123456"})
	assert.ErrorIs(t, err, model.ErrPermission)
	err = cat.DeleteCategory(ctx, f.tech, f.category.ID)
	assert.ErrorIs(t, err, model.ErrPermission)
	_, err = cat.SetCategoryActive(ctx, SystemActor, f.category.ID, false)
	assert.ErrorIs(t, err, model.ErrPermission)
}

func TestCatalog_Categories(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cat := NewCatalog(f.deps, f.audit)

	created, err := cat.CreateCategory(ctx, f.admin, CategoryInput{Name: "  Fresadoras ", Description: "CNC"})
	require.NoError(t, err)
	assert.Equal(t, "Fresadoras", created.Name)
	assert.True(t, created.Active)

	_, err = cat.CreateCategory(ctx, f.admin, CategoryInput{Name: "tornos"})
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"name"}, verr.Fields())

	_, err = cat.CreateCategory(ctx, f.admin, CategoryInput{Name: " "})
	assert.ErrorIs(t, err, model.ErrValidation)

	inactive, err := cat.SetCategoryActive(ctx, f.admin, created.ID, false)
	require.NoError(t, err)
	assert.False(t, inactive.Active)

	active, err := cat.Categories(ctx, ptr(true))
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Tornos", active[0].Name)

	all, err := cat.Categories(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestCatalog_DeleteProtectsReferencedEntries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cat := NewCatalog(f.deps, f.audit)

	sup, err := cat.CreateSupplier(ctx, f.admin, SupplierInput{Name: "Acme", TaxID: "900123456", Email: " Ventas@Acme.CO ", Rating: ptr(4)})
	require.NoError(t, err)
	assert.Equal(t, "ventas@acme.co", sup.Email)

	in := f.machineInput("MAQ-001")
	in.SupplierID = &sup.ID
	_, err = f.registry().Create(ctx, f.admin, in)
	require.NoError(t, err)

	err = cat.DeleteCategory(ctx, f.admin, f.category.ID)
	assert.ErrorIs(t, err, model.ErrConflict)
	assert.ErrorContains(t, err, "used by 1 machines")
	err = cat.DeleteSupplier(ctx, f.admin, sup.ID)
	assert.ErrorIs(t, err, model.ErrConflict)

	unused, err := cat.CreateCategory(ctx, f.admin, CategoryInput{Name: "Soldadura"})
	require.NoError(t, err)
	require.NoError(t, cat.DeleteCategory(ctx, f.admin, unused.ID))

	trail, err := f.audit.AuditTrail(ctx, "category", unused.ID)
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, model.EventDeleted, trail[0].Action)
	assert.Equal(t, "Soldadura", trail[0].Summary)
	assert.Equal(t, f.admin.Name, trail[0].ActorName)

	err = cat.DeleteCategory(ctx, f.admin, unused.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestCatalog_SupplierValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cat := NewCatalog(f.deps, f.audit)

	_, err := cat.CreateSupplier(ctx, f.admin, SupplierInput{Rating: ptr(6)})
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.ElementsMatch(t, []string{"name", "tax_id", "rating"}, verr.Fields())

	_, err = cat.CreateSupplier(ctx, f.admin, SupplierInput{Name: "Acme", TaxID: "900"})
	require.NoError(t, err)
	_, err = cat.CreateSupplier(ctx, f.admin, SupplierInput{Name: "Otra", TaxID: "900"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"tax_id"}, verr.Fields())
}
