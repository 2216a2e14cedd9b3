// Package export renders inventory reports as spreadsheets.
package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"machinery-backend/internal/model"
)

const machinesSheet = "Maquinaria"

type column struct {
	header string
	width  float64
	value  func(m *model.Machine, today time.Time) any
}

var machineColumns = []column{
	{"Código", 15, func(m *model.Machine, _ time.Time) any { return m.InventoryCode }},
	{"Nombre", 30, func(m *model.Machine, _ time.Time) any { return m.Name }},
	{"Categoría", 20, func(m *model.Machine, _ time.Time) any {
		if m.Category == nil {
			return ""
		}
		return m.Category.Name
	}},
	{"Marca", 15, func(m *model.Machine, _ time.Time) any { return m.Brand }},
	{"Modelo", 15, func(m *model.Machine, _ time.Time) any { return m.Model }},
	{"Serie", 20, func(m *model.Machine, _ time.Time) any { return m.SerialNumber }},
	{"Estado", 15, func(m *model.Machine, _ time.Time) any { return string(m.Status) }},
	{"Condición", 12, func(m *model.Machine, _ time.Time) any { return string(m.Condition) }},
	{"Ubicación", 25, func(m *model.Machine, _ time.Time) any { return m.Location }},
	{"Centro", 25, func(m *model.Machine, _ time.Time) any { return m.TrainingCenter }},
	{"Fecha Adquisición", 18, func(m *model.Machine, _ time.Time) any { return m.AcquiredOn.Format(time.DateOnly) }},
	{"Valor Adquisición", 18, func(m *model.Machine, _ time.Time) any { return m.AcquisitionValue.InexactFloat64() }},
	{"Horas de Uso", 12, func(m *model.Machine, _ time.Time) any { return m.UsageHours }},
	{"Eficiencia", 12, func(m *model.Machine, _ time.Time) any { return m.Efficiency }},
	{"Próximo Mantenimiento", 22, func(m *model.Machine, _ time.Time) any {
		if m.NextMaintenanceOn == nil {
			return ""
		}
		return m.NextMaintenanceOn.Format(time.DateOnly)
	}},
	{"Requiere Mantenimiento", 22, func(m *model.Machine, today time.Time) any {
		if m.NeedsMaintenance(today) {
			return "Sí"
		}
		return "No"
	}},
}

// MachinesWorkbook renders machines as a single-sheet xlsx workbook.
func MachinesWorkbook(machines []model.Machine, today time.Time) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(machinesSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to drop default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for i, col := range machineColumns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(machinesSheet, cell, col.header); err != nil {
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(machinesSheet, cell, cell, headerStyle); err != nil {
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(machinesSheet, name, name, col.width); err != nil {
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for r := range machines {
		row := make([]any, len(machineColumns))
		for i, col := range machineColumns {
			row[i] = col.value(&machines[r], today)
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetSheetRow(machinesSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", r+2, err)
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
