package certificate

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Certificate types.
const (
	TypeParticipacion = "PARTICIPACION"
	TypeAprobacion    = "APROBACION"
	TypeAsistencia    = "ASISTENCIA"
)

// Delivery statuses.
const (
	StatusPending = "PENDING"
	StatusSuccess = "SUCCESS"
	StatusError   = "ERROR"
)

// Domain errors.
var (
	ErrNotFound        = errors.New("certificate not found")
	ErrAlreadyIssued   = errors.New("certificate already issued")
	ErrTemplateInvalid = errors.New("template not available")
	ErrInvalidType     = errors.New("invalid certificate type")
	ErrDeliveryFailed  = errors.New("certificate delivery failed")
)

// Certificate is an issued credential tied to a participant, program and type.
type Certificate struct {
	ID             string     `json:"id"`
	ParticipantID  string     `json:"participant_id"`
	ProgramID      string     `json:"program_id"`
	Type           string     `json:"certificate_type"`
	Number         string     `json:"certificate_number"`
	TemplateID     string     `json:"template_id"`
	DesignID       string     `json:"design_id"`
	DeliveryStatus string     `json:"delivery_status"`
	RetryCount     int        `json:"retry_count"`
	LastError      string     `json:"last_error,omitempty"`
	SentAt         *time.Time `json:"sent_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Template gates issuance; locked or inactive templates cannot be used.
type Template struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	Locked    bool      `json:"locked"`
	CreatedAt time.Time `json:"created_at"`
}

// Design holds the visual assets and markup used to render a certificate.
type Design struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	LogoURL      string `json:"logo_url"`
	SignatureURL string `json:"signature_url"`
	HTML         string `json:"html"`
}

// ValidType reports whether t is a known certificate type.
func ValidType(t string) bool {
	switch t {
	case TypeParticipacion, TypeAprobacion, TypeAsistencia:
		return true
	}
	return false
}

// NewNumber mints a display certificate number from the issue instant and a
// participant id prefix. A unique index on the column catches the rare
// collision.
func NewNumber(participantID string, at time.Time) string {
	prefix := strings.ReplaceAll(participantID, "-", "")
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	return fmt.Sprintf("CERT-%d-%s", at.UnixMilli(), strings.ToUpper(prefix))
}
