package participant

import (
	"crypto/rand"
	"encoding/base32"
	"errors"
	"net/mail"
	"strings"
	"time"
)

// Participant statuses.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// QR email delivery statuses.
const (
	QRPending = "PENDING"
	QRSent    = "SENT"
	QRError   = "ERROR"
)

// Domain errors.
var (
	ErrNotFound       = errors.New("participant not found")
	ErrDuplicateEmail = errors.New("duplicate email")
	ErrInvalidEmail   = errors.New("invalid email")
)

// Participant is a registered attendee identified by email and an opaque scan code.
type Participant struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Organization string    `json:"organization,omitempty"`
	Code         string    `json:"code"`
	Status       string    `json:"status"`
	QRStatus     string    `json:"qr_status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks the address parses as a bare email.
func ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrInvalidEmail
	}
	return nil
}

var codeEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// NewCode returns a random opaque scan code.
func NewCode() string {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand does not fail on supported platforms
		panic(err)
	}
	return strings.ToUpper(codeEncoding.EncodeToString(buf))
}
