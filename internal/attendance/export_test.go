package attendance

import (
	"bytes"
	"encoding/csv"
	"testing"
)

var exportRows = []ExportRow{
	{Date: "2024-05-01", Participant: "Juan Pérez", Email: "juan@ejemplo.com", Time: "10:30:00", Status: "valid"},
	{Date: "2024-05-01", Participant: "Ana Gómez", Email: "ana@ejemplo.com", Time: "10:31:12", Status: "valid"},
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, exportRows); err != nil {
		t.Fatal(err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(records))
	}
	if records[0][0] != "date" || records[0][4] != "status" {
		t.Errorf("header = %v", records[0])
	}
	if records[1][1] != "Juan Pérez" || records[1][2] != "juan@ejemplo.com" {
		t.Errorf("row = %v", records[1])
	}
}

func TestBuildXLSX(t *testing.T) {
	f, err := BuildXLSX(exportRows)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	got, err := f.GetCellValue("Asistencia", "B2")
	if err != nil {
		t.Fatal(err)
	}
	if got != "Juan Pérez" {
		t.Errorf("B2 = %q", got)
	}
	header, err := f.GetCellValue("Asistencia", "A1")
	if err != nil {
		t.Fatal(err)
	}
	if header != "date" {
		t.Errorf("A1 = %q", header)
	}
}
