package attendance

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"eventdesk/internal/metrics"
	"eventdesk/internal/participant"
)

// Store is the persistence surface the service needs.
type Store interface {
	FindValid(ctx context.Context, participantID, day string) (*Record, error)
	Insert(ctx context.Context, rec Record) (Record, error)
	RefreshSummary(ctx context.Context) error
}

// ParticipantFinder resolves scan keys to active participants.
type ParticipantFinder interface {
	FindActiveByEmailOrCode(ctx context.Context, key string) (*participant.Participant, error)
}

// Result is the outcome of a scan.
type Result struct {
	Participant     participant.Participant `json:"participant"`
	Record          Record                  `json:"record"`
	AlreadyRecorded bool                    `json:"already_recorded"`
}

// Service records attendance with one valid row per participant per day.
type Service struct {
	store  Store
	finder ParticipantFinder
	log    *zap.Logger
	now    func() time.Time
}

// NewService creates a service backed by a store and participant lookup.
func NewService(store Store, finder ParticipantFinder, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, finder: finder, log: log, now: time.Now}
}

// Record resolves a raw scanned string and records attendance for the day of
// `at`. A second scan on the same day returns the original record with
// AlreadyRecorded set and performs no write.
func (s *Service) Record(ctx context.Context, raw string, at time.Time) (Result, error) {
	key, err := ResolveScan(raw)
	if err != nil {
		return Result{}, ErrParticipantNotFound
	}

	p, err := s.finder.FindActiveByEmailOrCode(ctx, key)
	if err != nil {
		if errors.Is(err, participant.ErrNotFound) {
			return Result{}, ErrParticipantNotFound
		}
		return Result{}, err
	}

	day := DayKey(at)
	if existing, err := s.store.FindValid(ctx, p.ID, day); err != nil {
		return Result{}, err
	} else if existing != nil {
		metrics.ScansDuplicate.Inc()
		return Result{Participant: *p, Record: *existing, AlreadyRecorded: true}, nil
	}

	rec, err := s.store.Insert(ctx, Record{
		ParticipantID:  p.ID,
		SessionDate:    day,
		AttendanceTime: s.now().UTC(),
		Status:         StatusValid,
	})
	if errors.Is(err, ErrDuplicate) {
		// Lost the race to another scanning station; surface the winner.
		existing, ferr := s.store.FindValid(ctx, p.ID, day)
		if ferr != nil || existing == nil {
			return Result{}, err
		}
		metrics.ScansDuplicate.Inc()
		return Result{Participant: *p, Record: *existing, AlreadyRecorded: true}, nil
	}
	if err != nil {
		return Result{}, err
	}
	metrics.ScansRecorded.Inc()

	// Best effort; the attendance record stands regardless.
	if err := s.store.RefreshSummary(ctx); err != nil {
		s.log.Warn("summary refresh failed", zap.Error(err))
	}

	return Result{Participant: *p, Record: rec}, nil
}
