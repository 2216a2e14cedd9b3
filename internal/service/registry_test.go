package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"machinery-backend/internal/events"
	"machinery-backend/internal/model"
	"machinery-backend/internal/store"
)

func TestRegistry_Create(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	m, err := f.registry().Create(ctx, f.admin, f.machineInput("maq-100"))
	require.NoError(t, err)

	assert.Equal(t, "MAQ-100", m.InventoryCode)
	assert.Equal(t, model.MachineAvailable, m.Status)
	assert.Equal(t, model.ConditionExcellent, m.Condition)
	assert.Equal(t, int64(1), m.Version)
	assert.Equal(t, 12, m.WarrantyMonths)
	assert.Equal(t, 90, m.MaintenanceFrequencyDays)
	assert.Equal(t, "Tornos", m.Category.Name)
	assert.Equal(t, f.admin.UserID, m.CreatedByID)

	history, err := f.st.ListHistory(ctx, m.ID, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, model.EventCreated, history[0].EventType)
	assert.Equal(t, f.admin.Name, history[0].ActorName)
	assert.Equal(t, []string{events.MachineCreated}, f.events.types())
}

func TestRegistry_Create_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reg := f.registry()

	t.Run("missing fields", func(t *testing.T) {
		_, err := reg.Create(ctx, f.admin, MachineInput{})
		var verr *model.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.ErrorIs(t, err, model.ErrValidation)
		assert.ElementsMatch(t, []string{
			"name", "inventory_code", "category_id", "brand", "model",
			"serial_number", "acquired_on", "acquisition_value",
		}, verr.Fields())
	})

	t.Run("out of range values", func(t *testing.T) {
		in := f.machineInput("MAQ-200")
		in.Efficiency = ptr(120.0)
		in.Condition = "brillante"
		_, err := reg.Create(ctx, f.admin, in)
		var verr *model.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.ElementsMatch(t, []string{"efficiency", "condition"}, verr.Fields())
	})

	t.Run("duplicate inventory code and serial", func(t *testing.T) {
		f.machine(t, "MAQ-300", model.MachineOperational)
		in := f.machineInput("MAQ-300")
		_, err := reg.Create(ctx, f.admin, in)
		var verr *model.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.ElementsMatch(t, []string{"inventory_code", "serial_number"}, verr.Fields())
	})

	t.Run("unknown category", func(t *testing.T) {
		in := f.machineInput("MAQ-400")
		in.CategoryID = 999
		_, err := reg.Create(ctx, f.admin, in)
		assert.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("inactive category", func(t *testing.T) {
		require.NoError(t, f.st.SetCategoryActive(ctx, f.category.ID, false))
		t.Cleanup(func() { _ = f.st.SetCategoryActive(ctx, f.category.ID, true) })
		_, err := reg.Create(ctx, f.admin, f.machineInput("MAQ-500"))
		var verr *model.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, []string{"category_id"}, verr.Fields())
	})
}

func TestRegistry_Update(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reg := f.registry()

	m, err := reg.Create(ctx, f.admin, f.machineInput("MAQ-001"))
	require.NoError(t, err)

	in := f.machineInput("MAQ-001")
	in.Name = "Torno CNC"
	in.Location = "Taller 4"
	in.ResponsibleID = f.tech.UserID
	updated, err := reg.Update(ctx, f.tech, m.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "Torno CNC", updated.Name)
	assert.Equal(t, int64(2), updated.Version)

	history, err := f.st.ListHistory(ctx, m.ID, 10)
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, model.EventResponsibleChange, history[0].EventType)
	assert.Equal(t, model.EventLocationChange, history[1].EventType)
	assert.Equal(t, "Taller 1", history[1].PreviousValue)
	assert.Equal(t, "Taller 4", history[1].NewValue)
	assert.Equal(t, model.EventUpdated, history[2].EventType)
	assert.Equal(t, []string{"name", "location", "responsible_id"}, history[2].Details.Data().ChangedFields)
	assert.Equal(t, "Updated fields: name, location, responsible_id", history[2].Description)

	t.Run("no changes writes nothing", func(t *testing.T) {
		_, err := reg.Update(ctx, f.tech, m.ID, in)
		require.NoError(t, err)
		assert.Equal(t, int64(4), f.historyCount(t, m.ID))
	})

	t.Run("usage hours cannot decrease", func(t *testing.T) {
		up := in
		up.UsageHours = ptr(50.0)
		_, err := reg.Update(ctx, f.tech, m.ID, up)
		require.NoError(t, err)

		up.UsageHours = ptr(10.0)
		_, err = reg.Update(ctx, f.tech, m.ID, up)
		var verr *model.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, []string{"usage_hours"}, verr.Fields())
	})

	t.Run("stale version", func(t *testing.T) {
		up := in
		up.Notes = "revisado"
		up.Version = 1
		_, err := reg.Update(ctx, f.tech, m.ID, up)
		assert.ErrorIs(t, err, model.ErrConflict)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := reg.Update(ctx, f.tech, 999, in)
		assert.ErrorIs(t, err, model.ErrNotFound)
	})
}

func TestRegistry_ChangeStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reg := f.registry()
	m := f.machine(t, "MAQ-001", model.MachineOperational)

	updated, err := reg.ChangeStatus(ctx, f.tech, m.ID, StatusChange{Status: "reparacion", Notes: "ruido en husillo"})
	require.NoError(t, err)
	assert.Equal(t, model.MachineRepair, updated.Status)
	assert.Equal(t, int64(2), updated.Version)

	history, err := f.st.ListHistory(ctx, m.ID, 1)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, model.EventStatusChange, history[0].EventType)
	assert.Equal(t, "operativa", history[0].PreviousValue)
	assert.Equal(t, "reparacion", history[0].NewValue)
	assert.Equal(t, "ruido en husillo", history[0].Details.Data().Notes)

	t.Run("invalid status leaves machine untouched", func(t *testing.T) {
		before := f.historyCount(t, m.ID)
		_, err := reg.ChangeStatus(ctx, f.tech, m.ID, StatusChange{Status: "volando"})
		assert.ErrorIs(t, err, model.ErrInvalidStatus)

		stored, err := f.st.GetMachine(ctx, m.ID)
		require.NoError(t, err)
		assert.Equal(t, model.MachineRepair, stored.Status)
		assert.Equal(t, before, f.historyCount(t, m.ID))
	})

	t.Run("stale version conflicts", func(t *testing.T) {
		_, err := reg.ChangeStatus(ctx, f.tech, m.ID, StatusChange{Status: "operativa", Version: ptr(int64(1))})
		assert.ErrorIs(t, err, model.ErrConflict)
	})

	t.Run("unknown machine", func(t *testing.T) {
		_, err := reg.ChangeStatus(ctx, f.tech, 999, StatusChange{Status: "operativa"})
		assert.ErrorIs(t, err, model.ErrNotFound)
	})
}

func TestRegistry_Delete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reg := f.registry()
	m := f.machine(t, "MAQ-001", model.MachineOperational)
	_, err := f.alerts().Create(ctx, f.tech, AlertInput{MachineID: m.ID, Title: "Fuga", Description: "aceite"})
	require.NoError(t, err)

	err = reg.Delete(ctx, f.tech, m.ID)
	assert.ErrorIs(t, err, model.ErrPermission)

	require.NoError(t, reg.Delete(ctx, f.admin, m.ID))
	_, err = reg.Get(ctx, m.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.Zero(t, f.historyCount(t, m.ID))

	n, err := f.st.CountAlerts(ctx, store.AlertFilter{MachineID: m.ID})
	require.NoError(t, err)
	assert.Zero(t, n)

	trail, err := f.audit.AuditTrail(ctx, "machine", m.ID)
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, model.EventDeleted, trail[0].Action)
	assert.Equal(t, "MAQ-001 - Torno MAQ-001", trail[0].Summary)
	assert.Equal(t, f.admin.Name, trail[0].ActorName)

	assert.ErrorIs(t, reg.Delete(ctx, f.admin, m.ID), model.ErrNotFound)
}

func TestRegistry_SearchAndList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reg := f.registry()
	for i := 0; i < 12; i++ {
		f.machine(t, "MAQ-"+string(rune('A'+i)), model.MachineOperational)
	}

	short, err := reg.Search(ctx, " m ")
	require.NoError(t, err)
	assert.Empty(t, short)
	assert.NotNil(t, short)

	found, err := reg.Search(ctx, "maq")
	require.NoError(t, err)
	assert.Len(t, found, 10)

	list, total, err := reg.List(ctx, store.MachineFilter{Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, int64(12), total)
	assert.Len(t, list, 5)
}

func TestRegistry_HistoryDefaultsAndOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reg := f.registry()
	m := f.machine(t, "MAQ-001", model.MachineOperational)

	statuses := []string{"reparacion", "operativa"}
	for i := 0; i < 22; i++ {
		_, err := reg.ChangeStatus(ctx, f.tech, m.ID, StatusChange{Status: statuses[i%2]})
		require.NoError(t, err)
	}

	history, err := reg.History(ctx, m.ID, 0)
	require.NoError(t, err)
	require.Len(t, history, 20)
	for i := 1; i < len(history); i++ {
		assert.True(t, history[i-1].OccurredAt.After(history[i].OccurredAt), "entries must be newest first")
	}

	_, err = reg.History(ctx, 999, 0)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestRegistry_DueForMaintenance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reg := f.registry()

	yesterday := f.now.AddDate(0, 0, -1)
	tomorrow := f.now.AddDate(0, 0, 1)
	due := f.machine(t, "MAQ-001", model.MachineOperational)
	later := f.machine(t, "MAQ-002", model.MachineOperational)
	retired := f.machine(t, "MAQ-003", model.MachineRetired)
	require.NoError(t, f.db.Model(due).Update("next_maintenance_on", model.DateOf(yesterday)).Error)
	require.NoError(t, f.db.Model(later).Update("next_maintenance_on", model.DateOf(tomorrow)).Error)
	require.NoError(t, f.db.Model(retired).Update("next_maintenance_on", model.DateOf(yesterday)).Error)

	machines, err := reg.DueForMaintenance(ctx)
	require.NoError(t, err)
	require.Len(t, machines, 1)
	assert.Equal(t, due.ID, machines[0].ID)
	assert.True(t, machines[0].NeedsMaintenance(reg.Today()))
}

func TestRecorder_StrictlyIncreasingTimestamps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.machine(t, "MAQ-001", model.MachineOperational)

	var stamps []time.Time
	for i := 0; i < 3; i++ {
		e, err := f.audit.Record(ctx, f.st, m.ID, Event{Type: model.EventInspection, Description: "ronda"}, SystemActor)
		require.NoError(t, err)
		stamps = append(stamps, e.OccurredAt)
		assert.Nil(t, e.UserID)
		assert.Equal(t, "sistema", e.ActorName)
	}
	assert.True(t, stamps[0].Equal(f.now))
	assert.True(t, stamps[1].Equal(f.now.Add(time.Microsecond)))
	assert.True(t, stamps[2].Equal(f.now.Add(2*time.Microsecond)))

	_, err := f.audit.Record(ctx, f.st, m.ID, Event{Type: "inventado"}, SystemActor)
	assert.Error(t, err)
}

func TestRecorder_RollsBackWithTransaction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.machine(t, "MAQ-001", model.MachineOperational)

	boom := errors.New("boom")
	err := f.st.Transaction(ctx, func(tx store.Store) error {
		if _, err := f.audit.Record(ctx, tx, m.ID, Event{Type: model.EventInspection, Description: "x"}, f.tech); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, f.historyCount(t, m.ID))
}
