package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	"machinery-backend/internal/events"
	"machinery-backend/internal/model"
	"machinery-backend/internal/store"
	"machinery-backend/internal/testutil"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type recordingNotifier struct {
	mu  sync.Mutex
	ids []int64
}

func (n *recordingNotifier) Dispatch(id int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ids = append(n.ids, id)
}

type fixture struct {
	db       *gorm.DB
	st       store.Store
	deps     Deps
	audit    *Recorder
	events   *recordingPublisher
	notifier *recordingNotifier
	now      time.Time

	admin    Actor
	tech     Actor
	techUser *model.User
	category *model.Category
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb := testutil.NewDB(t)
	f := &fixture{
		db:       gdb,
		st:       store.NewGormStore(gdb),
		events:   &recordingPublisher{},
		notifier: &recordingNotifier{},
		now:      time.Date(2026, 5, 10, 14, 30, 0, 0, time.UTC),
	}
	f.deps = Deps{
		Store:    f.st,
		Log:      zaptest.NewLogger(t),
		Events:   f.events,
		Notifier: f.notifier,
		Now:      func() time.Time { return f.now },
		Location: time.UTC,
	}
	f.audit = NewRecorder(f.st, f.deps.Now)

	f.admin = UserActor(testutil.SeedUser(t, gdb, "admin@example.com", model.RoleAdmin))
	f.techUser = testutil.SeedUser(t, gdb, "tecnico@example.com", model.RoleTechnician)
	f.tech = UserActor(f.techUser)
	f.category = testutil.SeedCategory(t, gdb, "Tornos")
	return f
}

func (f *fixture) registry() *Registry { return NewRegistry(f.deps, f.audit, nil) }

func (f *fixture) alerts() *Alerts { return NewAlerts(f.deps, f.audit) }

func (f *fixture) maintenance(opts MaintenanceOptions) *Maintenance {
	return NewMaintenance(f.deps, f.audit, opts)
}

func (f *fixture) machine(t *testing.T, code string, status model.MachineStatus) *model.Machine {
	t.Helper()
	return testutil.SeedMachine(t, f.db, f.category.ID, code, status)
}

func (f *fixture) historyCount(t *testing.T, machineID int64) int64 {
	t.Helper()
	n, err := f.st.CountHistory(context.Background(), machineID)
	require.NoError(t, err)
	return n
}

func (f *fixture) machineInput(code string) MachineInput {
	value := decimal.NewFromInt(12500000)
	return MachineInput{
		InventoryCode:    code,
		Name:             "Torno paralelo",
		CategoryID:       f.category.ID,
		Brand:            "Haas",
		Model:            "TL-2",
		SerialNumber:     "SN-" + code,
		AcquiredOn:       NewDate(2025, time.March, 3),
		AcquisitionValue: &value,
		Location:         "Taller 1",
	}
}

func ptr[T any](v T) *T { return &v }
