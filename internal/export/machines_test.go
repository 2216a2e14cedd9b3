package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"machinery-backend/internal/model"
)

func TestMachinesWorkbook(t *testing.T) {
	today := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)
	due := today.AddDate(0, 0, -1)
	machines := []model.Machine{
		{
			InventoryCode:     "MAQ-001",
			Name:              "Torno CNC",
			Category:          &model.Category{Name: "Tornos"},
			Brand:             "Haas",
			Model:             "TL-1",
			SerialNumber:      "SN-1",
			Status:            model.MachineOperational,
			Condition:         model.ConditionGood,
			AcquiredOn:        time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			AcquisitionValue:  decimal.NewFromInt(15000000),
			NextMaintenanceOn: &due,
		},
		{
			InventoryCode: "FRE-001",
			Name:          "Fresadora",
			Status:        model.MachineRepair,
			AcquiredOn:    time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	data, err := MachinesWorkbook(machines, today)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{machinesSheet}, f.GetSheetList())

	rows, err := f.GetRows(machinesSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Código", rows[0][0])
	assert.Equal(t, "MAQ-001", rows[1][0])
	assert.Equal(t, "Tornos", rows[1][2])
	assert.Equal(t, "operativa", rows[1][6])
	assert.Equal(t, "2024-01-15", rows[1][10])
	assert.Equal(t, "Sí", rows[1][len(machineColumns)-1])
	assert.Equal(t, "", rows[2][2])
	assert.Equal(t, "No", rows[2][len(machineColumns)-1])
}

func TestMachinesWorkbook_Empty(t *testing.T) {
	data, err := MachinesWorkbook(nil, time.Now())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(machinesSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
