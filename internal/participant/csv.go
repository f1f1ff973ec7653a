package participant

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"eventdesk/internal/metrics"
)

// MaxImportRows caps a single CSV import.
const MaxImportRows = 1000

// ErrTooManyRows is returned before any row is persisted.
var ErrTooManyRows = fmt.Errorf("import exceeds %d rows", MaxImportRows)

// RowError reports a single rejected import row.
type RowError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// ImportSummary tallies a bulk import.
type ImportSummary struct {
	Imported int        `json:"imported"`
	Failed   int        `json:"failed"`
	Errors   []RowError `json:"errors,omitempty"`
}

type importRow struct {
	line         int
	name         string
	email        string
	organization string
}

// ImportCSV reads participants from r (columns: name, email, role) and
// registers them sequentially. The whole file is parsed and size-checked
// before the first insert; individual bad rows are rejected with per-row
// errors while the rest proceed.
func (s *Service) ImportCSV(ctx context.Context, r io.Reader) (ImportSummary, error) {
	rows, err := parseImport(r)
	if err != nil {
		return ImportSummary{}, err
	}

	var sum ImportSummary
	for _, row := range rows {
		_, err := s.Register(ctx, row.name, row.email, row.organization)
		if err != nil {
			sum.Failed++
			sum.Errors = append(sum.Errors, RowError{Line: row.line, Message: importMessage(err)})
			continue
		}
		sum.Imported++
		metrics.ParticipantsImported.Inc()
	}
	return sum, nil
}

func parseImport(r io.Reader) ([]importRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var rows []importRow
	line := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv parse: %w", err)
		}
		line++
		// Optional header row.
		if line == 1 && len(rec) > 0 && strings.EqualFold(strings.TrimSpace(rec[0]), "name") {
			continue
		}
		if isBlank(rec) {
			continue
		}
		row := importRow{line: line}
		if len(rec) > 0 {
			row.name = strings.TrimSpace(rec[0])
		}
		if len(rec) > 1 {
			row.email = strings.TrimSpace(rec[1])
		}
		if len(rec) > 2 {
			row.organization = strings.TrimSpace(rec[2])
		}
		rows = append(rows, row)
		if len(rows) > MaxImportRows {
			return nil, ErrTooManyRows
		}
	}
	return rows, nil
}

func isBlank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func importMessage(err error) string {
	switch {
	case errors.Is(err, ErrDuplicateEmail):
		return "duplicate email"
	case errors.Is(err, ErrInvalidEmail):
		return "invalid email"
	default:
		return err.Error()
	}
}
