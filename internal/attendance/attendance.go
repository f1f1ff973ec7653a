package attendance

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Record statuses. Only "valid" rows count toward the per-day uniqueness rule.
const (
	StatusValid  = "valid"
	StatusVoided = "voided"
	DayFormat    = "2006-01-02"
)

// Domain errors.
var (
	ErrParticipantNotFound = errors.New("participant not found or inactive")
	ErrDuplicate           = errors.New("attendance already recorded")
	ErrEmptyScan           = errors.New("empty scan payload")
)

// Record is evidence that a participant was present on a calendar day.
type Record struct {
	ID             string    `json:"id"`
	ParticipantID  string    `json:"participant_id"`
	SessionDate    string    `json:"session_date"`
	AttendanceTime time.Time `json:"attendance_time"`
	Status         string    `json:"status"`
}

// DayKey returns the calendar-day key for a timestamp.
func DayKey(at time.Time) string {
	return at.UTC().Format(DayFormat)
}

// ResolveScan extracts the lookup key from a raw scanned string. Scanners may
// deliver a bare code, an email, or a JSON blob carrying a "code" field.
func ResolveScan(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrEmptyScan
	}
	if strings.HasPrefix(raw, "{") {
		var payload struct {
			Code  string `json:"code"`
			Email string `json:"email"`
		}
		if err := json.Unmarshal([]byte(raw), &payload); err == nil {
			if payload.Code != "" {
				return payload.Code, nil
			}
			if payload.Email != "" {
				return payload.Email, nil
			}
		}
		return "", ErrEmptyScan
	}
	return raw, nil
}
