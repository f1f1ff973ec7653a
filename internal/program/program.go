package program

import (
	"errors"
	"time"
)

// ErrNotFound is returned for unknown program ids.
var ErrNotFound = errors.New("program not found")

// Program is a course or event track certificates are issued against.
type Program struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}
