package participant

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"eventdesk/internal/queue"
)

// MsgQREmail is the queue message type for pending QR email deliveries.
const MsgQREmail = "qr_email"

// QRJob is the queue payload referencing a participant whose code email is pending.
type QRJob struct {
	ParticipantID string `json:"participant_id"`
}

// Store is the persistence surface the service needs.
type Store interface {
	Insert(ctx context.Context, p Participant) (Participant, error)
	Update(ctx context.Context, id, name, organization string) (Participant, error)
	SetStatus(ctx context.Context, id, status string) error
	SetQRStatus(ctx context.Context, id, qrStatus string) error
	GetByID(ctx context.Context, id string) (*Participant, error)
	GetByEmail(ctx context.Context, email string) (*Participant, error)
	List(ctx context.Context, status string, limit, offset int) ([]Participant, error)
}

// Service manages the participant registry.
type Service struct {
	store Store
	q     queue.Queue
	log   *zap.Logger
}

// NewService creates a service backed by a store and a delivery queue.
func NewService(store Store, q queue.Queue, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, q: q, log: log}
}

// Register creates a participant with a fresh scan code and queues the QR email.
func (s *Service) Register(ctx context.Context, name, email, organization string) (Participant, error) {
	email = NormalizeEmail(email)
	if err := ValidateEmail(email); err != nil {
		return Participant{}, err
	}
	if name == "" {
		return Participant{}, errors.New("name required")
	}

	// Friendly pre-check; the unique index is the real guard.
	if existing, err := s.store.GetByEmail(ctx, email); err == nil && existing != nil {
		return Participant{}, ErrDuplicateEmail
	}

	p, err := s.store.Insert(ctx, Participant{
		Name:         name,
		Email:        email,
		Organization: organization,
		Code:         NewCode(),
	})
	if err != nil {
		return Participant{}, err
	}

	s.enqueueQR(ctx, p.ID)
	return p, nil
}

// Update edits mutable participant fields.
func (s *Service) Update(ctx context.Context, id, name, organization string) (Participant, error) {
	if name == "" {
		return Participant{}, errors.New("name required")
	}
	return s.store.Update(ctx, id, name, organization)
}

// Deactivate marks a participant inactive; their code stops resolving on scans.
func (s *Service) Deactivate(ctx context.Context, id string) error {
	return s.store.SetStatus(ctx, id, StatusInactive)
}

// Get returns one participant.
func (s *Service) Get(ctx context.Context, id string) (*Participant, error) {
	return s.store.GetByID(ctx, id)
}

// GetByEmail returns one participant by email.
func (s *Service) GetByEmail(ctx context.Context, email string) (*Participant, error) {
	return s.store.GetByEmail(ctx, NormalizeEmail(email))
}

// List returns participants with an optional status filter.
func (s *Service) List(ctx context.Context, status string, limit, offset int) ([]Participant, error) {
	return s.store.List(ctx, status, limit, offset)
}

// ResendQR re-queues the QR email for a participant.
func (s *Service) ResendQR(ctx context.Context, id string) error {
	p, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.SetQRStatus(ctx, p.ID, QRPending); err != nil {
		return err
	}
	s.enqueueQR(ctx, p.ID)
	return nil
}

// enqueueQR publishes the delivery job; failure is logged, the registration stands.
func (s *Service) enqueueQR(ctx context.Context, id string) {
	if s.q == nil {
		return
	}
	body, _ := json.Marshal(QRJob{ParticipantID: id})
	if err := s.q.Publish(ctx, queue.Message{Type: MsgQREmail, Body: body}); err != nil {
		s.log.Warn("qr email enqueue failed", zap.String("participant_id", id), zap.Error(err))
	}
}
