package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials covers unknown users and wrong passwords alike.
var ErrInvalidCredentials = errors.New("invalid credentials")

// AdminUser is an operator account.
type AdminUser struct {
	ID           string
	Username     string
	PasswordHash string
	Active       bool
	CreatedAt    time.Time
}

// Admins reads operator accounts from Postgres.
type Admins struct {
	db *sql.DB
}

// NewAdmins creates the admin account store.
func NewAdmins(db *sql.DB) *Admins {
	return &Admins{db: db}
}

// GetByUsername returns an active admin account.
func (a *Admins) GetByUsername(ctx context.Context, username string) (*AdminUser, error) {
	row := a.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, active, created_at
		FROM admin_users WHERE username = $1 AND active
	`, username)
	var u AdminUser
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Active, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get admin: %w", err)
	}
	return &u, nil
}

// IsAdmin reports whether the id belongs to an active admin account.
func (a *Admins) IsAdmin(ctx context.Context, id string) (bool, error) {
	var active bool
	err := a.db.QueryRowContext(ctx, `
		SELECT active FROM admin_users WHERE id = $1
	`, id).Scan(&active)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("admin check: %w", err)
	}
	return active, nil
}

// HashPassword returns a bcrypt hash for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares a stored hash against a candidate password.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
