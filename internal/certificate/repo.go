package certificate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// Repository persists certificates, templates and designs in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const certCols = `id, participant_id, program_id, certificate_type, certificate_number,
	template_id, design_id, delivery_status, retry_count, COALESCE(last_error, ''), sent_at, created_at`

func scanCert(row interface{ Scan(...any) error }) (Certificate, error) {
	var c Certificate
	err := row.Scan(&c.ID, &c.ParticipantID, &c.ProgramID, &c.Type, &c.Number,
		&c.TemplateID, &c.DesignID, &c.DeliveryStatus, &c.RetryCount, &c.LastError, &c.SentAt, &c.CreatedAt)
	return c, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// GetTemplate returns a template by id.
func (r *Repository) GetTemplate(ctx context.Context, id string) (*Template, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, active, locked, created_at FROM certificate_templates WHERE id = $1
	`, id)
	var t Template
	if err := row.Scan(&t.ID, &t.Name, &t.Active, &t.Locked, &t.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTemplateInvalid
		}
		return nil, fmt.Errorf("get template: %w", err)
	}
	return &t, nil
}

// GetDesign returns a design by id.
func (r *Repository) GetDesign(ctx context.Context, id string) (*Design, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, logo_url, signature_url, html FROM certificate_designs WHERE id = $1
	`, id)
	var d Design
	if err := row.Scan(&d.ID, &d.Name, &d.LogoURL, &d.SignatureURL, &d.HTML); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTemplateInvalid
		}
		return nil, fmt.Errorf("get design: %w", err)
	}
	return &d, nil
}

// FindLatest returns the most recent certificate row for a
// (participant, program, type) triple, if any.
func (r *Repository) FindLatest(ctx context.Context, participantID, programID, certType string) (*Certificate, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+certCols+`
		FROM certificates
		WHERE participant_id = $1 AND program_id = $2 AND certificate_type = $3
		ORDER BY created_at DESC
		LIMIT 1
	`, participantID, programID, certType)
	c, err := scanCert(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find certificate: %w", err)
	}
	return &c, nil
}

// Insert writes a new PENDING certificate row.
func (r *Repository) Insert(ctx context.Context, c Certificate) (Certificate, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.DeliveryStatus == "" {
		c.DeliveryStatus = StatusPending
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO certificates (id, participant_id, program_id, certificate_type, certificate_number,
			template_id, design_id, delivery_status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at
	`, c.ID, c.ParticipantID, c.ProgramID, c.Type, c.Number, c.TemplateID, c.DesignID, c.DeliveryStatus)
	if err := row.Scan(&c.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return Certificate{}, ErrAlreadyIssued
		}
		return Certificate{}, fmt.Errorf("insert certificate: %w", err)
	}
	return c, nil
}

// Reopen resets a previously failed row to PENDING for a new delivery attempt.
func (r *Repository) Reopen(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE certificates SET delivery_status = $2, last_error = NULL WHERE id = $1
	`, id, StatusPending)
	return err
}

// MarkSent records a successful delivery. The partial unique index over
// SUCCESS rows turns a concurrent duplicate into ErrAlreadyIssued.
func (r *Repository) MarkSent(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE certificates SET delivery_status = $2, sent_at = $3, last_error = NULL WHERE id = $1
	`, id, StatusSuccess, at)
	if isUniqueViolation(err) {
		return ErrAlreadyIssued
	}
	return err
}

// MarkFailed records a delivery failure and bumps the retry counter.
func (r *Repository) MarkFailed(ctx context.Context, id, message string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE certificates
		SET delivery_status = $2, last_error = $3, retry_count = retry_count + 1
		WHERE id = $1
	`, id, StatusError, message)
	return err
}

// Verification is a certificate joined with the names needed for display.
type Verification struct {
	Certificate     Certificate `json:"certificate"`
	ParticipantName string      `json:"participant_name"`
	ProgramName     string      `json:"program_name"`
}

// FindByNumber looks a certificate up for public verification.
func (r *Repository) FindByNumber(ctx context.Context, number string) (*Verification, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT c.id, c.participant_id, c.program_id, c.certificate_type, c.certificate_number,
			c.template_id, c.design_id, c.delivery_status, c.retry_count, COALESCE(c.last_error, ''),
			c.sent_at, c.created_at, p.name, pr.name
		FROM certificates c
		JOIN participants p ON p.id = c.participant_id
		JOIN programs pr ON pr.id = c.program_id
		WHERE c.certificate_number = $1
	`, number)
	var v Verification
	c := &v.Certificate
	err := row.Scan(&c.ID, &c.ParticipantID, &c.ProgramID, &c.Type, &c.Number,
		&c.TemplateID, &c.DesignID, &c.DeliveryStatus, &c.RetryCount, &c.LastError,
		&c.SentAt, &c.CreatedAt, &v.ParticipantName, &v.ProgramName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find certificate by number: %w", err)
	}
	return &v, nil
}

// List returns certificates with optional participant/program/status filters.
func (r *Repository) List(ctx context.Context, participantID, programID, status string, limit, offset int) ([]Certificate, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + certCols + ` FROM certificates`
	args := []any{}
	clauses := []string{}
	if participantID != "" {
		args = append(args, participantID)
		clauses = append(clauses, fmt.Sprintf("participant_id = $%d", len(args)))
	}
	if programID != "" {
		args = append(args, programID)
		clauses = append(clauses, fmt.Sprintf("program_id = $%d", len(args)))
	}
	if status != "" {
		args = append(args, status)
		clauses = append(clauses, fmt.Sprintf("delivery_status = $%d", len(args)))
	}
	for i, clause := range clauses {
		if i == 0 {
			query += " WHERE " + clause
		} else {
			query += " AND " + clause
		}
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	defer rows.Close()
	var res []Certificate
	for rows.Next() {
		c, err := scanCert(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}
