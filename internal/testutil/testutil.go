// Package testutil provides fixtures shared by package tests.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"machinery-backend/internal/db"
	"machinery-backend/internal/model"
)

// NewDB opens a private in-memory SQLite database with every table migrated.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	// A single connection keeps the in-memory database alive and shared.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(gdb))
	return gdb
}

// SeedUser inserts an active user with the given role.
func SeedUser(t testing.TB, gdb *gorm.DB, email string, role model.Role) *model.User {
	t.Helper()
	u := &model.User{
		FirstName:    "Test",
		LastName:     string(role),
		Email:        email,
		PasswordHash: "x",
		Role:         role,
		Active:       true,
	}
	require.NoError(t, gdb.Create(u).Error)
	return u
}

// SeedCategory inserts an active category.
func SeedCategory(t testing.TB, gdb *gorm.DB, name string) *model.Category {
	t.Helper()
	c := &model.Category{Name: name, Active: true}
	require.NoError(t, gdb.Create(c).Error)
	return c
}

// SeedMachine inserts a machine in the given category with the given status.
func SeedMachine(t testing.TB, gdb *gorm.DB, categoryID int64, code string, status model.MachineStatus) *model.Machine {
	t.Helper()
	m := &model.Machine{
		InventoryCode:            code,
		Name:                     fmt.Sprintf("Torno %s", code),
		CategoryID:               categoryID,
		Brand:                    "Haas",
		Model:                    "TL-1",
		SerialNumber:             "SN-" + code,
		Status:                   status,
		Condition:                model.ConditionGood,
		AcquiredOn:               time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		AcquisitionValue:         decimal.NewFromInt(15000000),
		WarrantyMonths:           12,
		Efficiency:               100,
		MaintenanceFrequencyDays: 90,
		Version:                  1,
	}
	require.NoError(t, gdb.Create(m).Error)
	return m
}
