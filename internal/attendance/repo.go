package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// Repository persists attendance records in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// FindValid returns the valid record for a participant and day, if any.
func (r *Repository) FindValid(ctx context.Context, participantID, day string) (*Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, participant_id, session_date, attendance_time, status
		FROM attendance_records
		WHERE participant_id = $1 AND session_date = $2 AND status = $3
	`, participantID, day, StatusValid)
	var rec Record
	var sessionDate time.Time
	if err := row.Scan(&rec.ID, &rec.ParticipantID, &sessionDate, &rec.AttendanceTime, &rec.Status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find valid attendance: %w", err)
	}
	rec.SessionDate = sessionDate.Format(DayFormat)
	return &rec, nil
}

// Insert writes a new record. A unique partial index on
// (participant_id, session_date) for valid rows turns concurrent duplicate
// submissions into ErrDuplicate.
func (r *Repository) Insert(ctx context.Context, rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Status == "" {
		rec.Status = StatusValid
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance_records (id, participant_id, session_date, attendance_time, status)
		VALUES ($1,$2,$3,$4,$5)
	`, rec.ID, rec.ParticipantID, rec.SessionDate, rec.AttendanceTime, rec.Status)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Record{}, ErrDuplicate
		}
		return Record{}, fmt.Errorf("insert attendance: %w", err)
	}
	return rec, nil
}

// RefreshSummary calls the stored summary-refresh procedure.
func (r *Repository) RefreshSummary(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `SELECT refresh_attendance_summary()`)
	return err
}

// ListByDate returns export rows for one day.
func (r *Repository) ListByDate(ctx context.Context, day string) ([]ExportRow, error) {
	return r.listRange(ctx, day, day)
}

// ListRange returns export rows for an inclusive day range.
func (r *Repository) ListRange(ctx context.Context, from, to string) ([]ExportRow, error) {
	return r.listRange(ctx, from, to)
}

func (r *Repository) listRange(ctx context.Context, from, to string) ([]ExportRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.session_date, p.name, p.email, a.attendance_time, a.status
		FROM attendance_records a
		JOIN participants p ON p.id = a.participant_id
		WHERE a.session_date >= $1 AND a.session_date <= $2
		ORDER BY a.session_date, a.attendance_time
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	defer rows.Close()

	var res []ExportRow
	for rows.Next() {
		var row ExportRow
		var sessionDate, at time.Time
		if err := rows.Scan(&sessionDate, &row.Participant, &row.Email, &at, &row.Status); err != nil {
			return nil, err
		}
		row.Date = sessionDate.Format(DayFormat)
		row.Time = at.UTC().Format("15:04:05")
		res = append(res, row)
	}
	return res, rows.Err()
}
