package program

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Repository persists programs in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Insert writes a new program.
func (r *Repository) Insert(ctx context.Context, p Program) (Program, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO programs (id, name, type, active)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at
	`, p.ID, p.Name, p.Type, p.Active)
	if err := row.Scan(&p.CreatedAt); err != nil {
		return Program{}, fmt.Errorf("insert program: %w", err)
	}
	return p, nil
}

// Update changes name, type and active flag.
func (r *Repository) Update(ctx context.Context, p Program) (Program, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE programs SET name = $2, type = $3, active = $4 WHERE id = $1
		RETURNING created_at
	`, p.ID, p.Name, p.Type, p.Active)
	if err := row.Scan(&p.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Program{}, ErrNotFound
		}
		return Program{}, fmt.Errorf("update program: %w", err)
	}
	return p, nil
}

// Get returns one program.
func (r *Repository) Get(ctx context.Context, id string) (*Program, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, type, active, created_at FROM programs WHERE id = $1
	`, id)
	var p Program
	if err := row.Scan(&p.ID, &p.Name, &p.Type, &p.Active, &p.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get program: %w", err)
	}
	return &p, nil
}

// List returns all programs, optionally only active ones.
func (r *Repository) List(ctx context.Context, onlyActive bool) ([]Program, error) {
	query := `SELECT id, name, type, active, created_at FROM programs`
	if onlyActive {
		query += ` WHERE active`
	}
	query += ` ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list programs: %w", err)
	}
	defer rows.Close()
	var res []Program
	for rows.Next() {
		var p Program
		if err := rows.Scan(&p.ID, &p.Name, &p.Type, &p.Active, &p.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}
