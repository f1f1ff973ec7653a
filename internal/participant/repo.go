package participant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// Repository persists participants in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const participantCols = `id, name, email, organization, code, status, qr_status, created_at, updated_at`

func scanParticipant(row interface{ Scan(...any) error }) (Participant, error) {
	var p Participant
	err := row.Scan(&p.ID, &p.Name, &p.Email, &p.Organization, &p.Code, &p.Status, &p.QRStatus, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// isUniqueViolation reports whether err is a Postgres unique-constraint error.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Insert writes a new participant. Duplicate emails map to ErrDuplicateEmail.
func (r *Repository) Insert(ctx context.Context, p Participant) (Participant, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = StatusActive
	}
	if p.QRStatus == "" {
		p.QRStatus = QRPending
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO participants (id, name, email, organization, code, status, qr_status)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at, updated_at
	`, p.ID, p.Name, p.Email, p.Organization, p.Code, p.Status, p.QRStatus)
	if err := row.Scan(&p.CreatedAt, &p.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return Participant{}, ErrDuplicateEmail
		}
		return Participant{}, fmt.Errorf("insert participant: %w", err)
	}
	return p, nil
}

// Update changes name and organization for an existing participant.
func (r *Repository) Update(ctx context.Context, id, name, organization string) (Participant, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE participants
		SET name = $2, organization = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING `+participantCols+`
	`, id, name, organization)
	p, err := scanParticipant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Participant{}, ErrNotFound
	}
	if err != nil {
		return Participant{}, fmt.Errorf("update participant: %w", err)
	}
	return p, nil
}

// SetStatus activates or deactivates a participant.
func (r *Repository) SetStatus(ctx context.Context, id, status string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE participants SET status = $2, updated_at = NOW() WHERE id = $1
	`, id, status)
	if err != nil {
		return fmt.Errorf("set participant status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetQRStatus records the outcome of the QR email delivery.
func (r *Repository) SetQRStatus(ctx context.Context, id, qrStatus string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE participants SET qr_status = $2, updated_at = NOW() WHERE id = $1
	`, id, qrStatus)
	return err
}

// GetByID returns one participant by id.
func (r *Repository) GetByID(ctx context.Context, id string) (*Participant, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+participantCols+` FROM participants WHERE id = $1
	`, id)
	p, err := scanParticipant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get participant: %w", err)
	}
	return &p, nil
}

// GetByEmail returns one participant by email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*Participant, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+participantCols+` FROM participants WHERE email = $1
	`, NormalizeEmail(email))
	p, err := scanParticipant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get participant by email: %w", err)
	}
	return &p, nil
}

// FindActiveByEmailOrCode resolves a scanned key to an active participant.
func (r *Repository) FindActiveByEmailOrCode(ctx context.Context, key string) (*Participant, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+participantCols+`
		FROM participants
		WHERE status = $2 AND (email = $1 OR code = $3)
	`, NormalizeEmail(key), StatusActive, key)
	p, err := scanParticipant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolve scan key: %w", err)
	}
	return &p, nil
}

// List returns participants with an optional status filter.
func (r *Repository) List(ctx context.Context, status string, limit, offset int) ([]Participant, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + participantCols + ` FROM participants`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()
	var res []Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}
