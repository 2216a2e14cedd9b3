package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"machinery-backend/internal/model"
)

// Store defines the interface for all database operations.
// History entries and ledger records can only be appended and read.
type Store interface {
	// Transaction runs fn against a Store bound to a single database transaction.
	Transaction(ctx context.Context, fn func(tx Store) error) error
	Ping(ctx context.Context) error

	CreateMachine(ctx context.Context, m *model.Machine) error
	GetMachine(ctx context.Context, id int64) (*model.Machine, error)
	ListMachines(ctx context.Context, f MachineFilter) ([]model.Machine, int64, error)
	SearchMachines(ctx context.Context, q string, limit int) ([]model.Machine, error)
	SaveMachine(ctx context.Context, m *model.Machine) error
	UpdateMachineStatus(ctx context.Context, id, expectedVersion int64, status model.MachineStatus) error
	MachineFieldTaken(ctx context.Context, column, value string, excludeID int64) (bool, error)
	DeleteMachineCascade(ctx context.Context, id int64) error
	CountMachines(ctx context.Context, statuses ...model.MachineStatus) (int64, error)
	AverageEfficiency(ctx context.Context) (float64, error)
	MachinesDueForMaintenance(ctx context.Context, day time.Time) ([]model.Machine, error)

	CreateCategory(ctx context.Context, c *model.Category) error
	GetCategory(ctx context.Context, id int64) (*model.Category, error)
	ListCategories(ctx context.Context, active *bool) ([]model.Category, error)
	SetCategoryActive(ctx context.Context, id int64, active bool) error
	DeleteCategory(ctx context.Context, id int64) error
	CreateSupplier(ctx context.Context, s *model.Supplier) error
	GetSupplier(ctx context.Context, id int64) (*model.Supplier, error)
	ListSuppliers(ctx context.Context, active *bool) ([]model.Supplier, error)
	SetSupplierActive(ctx context.Context, id int64, active bool) error
	DeleteSupplier(ctx context.Context, id int64) error
	CountMachinesReferencing(ctx context.Context, column string, id int64) (int64, error)

	CreateAlert(ctx context.Context, a *model.Alert) error
	GetAlert(ctx context.Context, id int64) (*model.Alert, error)
	ListAlerts(ctx context.Context, f AlertFilter) ([]model.Alert, error)
	ListActiveAlerts(ctx context.Context, limit int) ([]model.Alert, error)
	TransitionAlert(ctx context.Context, id int64, from []model.AlertStatus, updates map[string]any) error
	CountAlerts(ctx context.Context, f AlertFilter) (int64, error)
	HasOpenAlert(ctx context.Context, machineID int64, t model.AlertType) (bool, error)

	AppendHistory(ctx context.Context, e *model.HistoryEntry) error
	LastHistoryTime(ctx context.Context, machineID int64) (time.Time, bool, error)
	ListHistory(ctx context.Context, machineID int64, limit int) ([]model.HistoryEntry, error)
	CountHistory(ctx context.Context, machineID int64) (int64, error)

	CreateMaintenance(ctx context.Context, m *model.ScheduledMaintenance) error
	GetMaintenance(ctx context.Context, id int64) (*model.ScheduledMaintenance, error)
	ListMaintenance(ctx context.Context, f MaintenanceFilter) ([]model.ScheduledMaintenance, error)
	CountMaintenance(ctx context.Context, f MaintenanceFilter) (int64, error)
	TransitionMaintenance(ctx context.Context, id int64, from []model.MaintenanceStatus, updates map[string]any) error

	CreateUser(ctx context.Context, u *model.User) error
	GetUser(ctx context.Context, id int64) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	ListUsers(ctx context.Context, role model.Role) ([]model.User, error)
	CountUsers(ctx context.Context) (int64, error)

	CreateDocument(ctx context.Context, d *model.MachineDocument) error
	GetDocument(ctx context.Context, id int64) (*model.MachineDocument, error)
	ListDocuments(ctx context.Context, machineID int64) ([]model.MachineDocument, error)

	AppendAudit(ctx context.Context, r *model.AuditRecord) error
	ListAudit(ctx context.Context, entityType string, entityID int64) ([]model.AuditRecord, error)

	UpsertPerformanceMetrics(ctx context.Context, m *model.PerformanceMetrics) error
	ListPerformanceMetrics(ctx context.Context, limit int) ([]model.PerformanceMetrics, error)

	SaveSubscription(ctx context.Context, sub *model.PushSubscription, machineIDs []int64) error
	GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
	SubscriptionsForMachine(ctx context.Context, machineID int64) ([]model.PushSubscription, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// Transaction runs fn inside a database transaction. Nested calls run as savepoints.
func (s *gormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

func (s *gormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// notFound converts gorm's missing-row error into the shared sentinel.
func notFound(err error, what string, id any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %v: %w", what, id, model.ErrNotFound)
	}
	return fmt.Errorf("failed to fetch %s %v: %w", what, id, err)
}
