package attendance

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// ExportRow is one attendance line joined with participant details.
type ExportRow struct {
	Date        string `json:"date"`
	Participant string `json:"participant"`
	Email       string `json:"email"`
	Time        string `json:"time"`
	Status      string `json:"status"`
}

var exportHeader = []string{"date", "participant", "email", "time", "status"}

// WriteCSV streams rows as CSV with a header line.
func WriteCSV(w io.Writer, rows []ExportRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}
	for _, row := range rows {
		if err := cw.Write([]string{row.Date, row.Participant, row.Email, row.Time, row.Status}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// BuildXLSX renders rows into a styled workbook (bold header, auto-filter).
func BuildXLSX(rows []ExportRow) (*excelize.File, error) {
	f := excelize.NewFile()
	const sheet = "Asistencia"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	for col, h := range exportHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellStr(sheet, cell, h); err != nil {
			return nil, fmt.Errorf("set header %s: %w", cell, err)
		}
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		end, _ := excelize.CoordinatesToCellName(len(exportHeader), 1)
		_ = f.SetCellStyle(sheet, "A1", end, bold)
		_ = f.AutoFilter(sheet, "A1:"+end, nil)
	}

	for i, row := range rows {
		values := []string{row.Date, row.Participant, row.Email, row.Time, row.Status}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			if err := f.SetCellStr(sheet, cell, v); err != nil {
				return nil, fmt.Errorf("set cell %s: %w", cell, err)
			}
		}
	}

	// Width heuristic from header and content length.
	for col := range exportHeader {
		max := len(exportHeader[col])
		for _, row := range rows {
			values := []string{row.Date, row.Participant, row.Email, row.Time, row.Status}
			if l := len(values[col]); l > max {
				max = l
			}
		}
		w := float64(max) * 0.9
		if w < 12 {
			w = 12
		}
		if w > 40 {
			w = 40
		}
		name, _ := excelize.ColumnNumberToName(col + 1)
		_ = f.SetColWidth(sheet, name, name, w)
	}
	return f, nil
}
