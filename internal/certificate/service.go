package certificate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"eventdesk/internal/mailer"
	"eventdesk/internal/metrics"
	"eventdesk/internal/participant"
	"eventdesk/internal/program"
)

// Store is the persistence surface the service needs.
type Store interface {
	GetTemplate(ctx context.Context, id string) (*Template, error)
	GetDesign(ctx context.Context, id string) (*Design, error)
	FindLatest(ctx context.Context, participantID, programID, certType string) (*Certificate, error)
	Insert(ctx context.Context, c Certificate) (Certificate, error)
	Reopen(ctx context.Context, id string) error
	MarkSent(ctx context.Context, id string, at time.Time) error
	MarkFailed(ctx context.Context, id, message string) error
	FindByNumber(ctx context.Context, number string) (*Verification, error)
	List(ctx context.Context, participantID, programID, status string, limit, offset int) ([]Certificate, error)
}

// ParticipantStore looks up recipients.
type ParticipantStore interface {
	GetByID(ctx context.Context, id string) (*participant.Participant, error)
}

// ProgramStore looks up programs.
type ProgramStore interface {
	Get(ctx context.Context, id string) (*program.Program, error)
}

// Deliverer sends the rendered certificate out.
type Deliverer interface {
	SendCertificate(ctx context.Context, req mailer.CertificateEmail) error
}

// ErrProgramInactive blocks issuance against retired programs.
var ErrProgramInactive = errors.New("program not active")

// Service issues certificates and tracks their delivery lifecycle.
type Service struct {
	store        Store
	participants ParticipantStore
	programs     ProgramStore
	deliver      Deliverer
	log          *zap.Logger
	now          func() time.Time
}

// NewService creates a service.
func NewService(store Store, participants ParticipantStore, programs ProgramStore, deliver Deliverer, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:        store,
		participants: participants,
		programs:     programs,
		deliver:      deliver,
		log:          log,
		now:          time.Now,
	}
}

// Issue creates (or reopens) a certificate row for the triple, renders the
// design and requests delivery. At most one SUCCESS row may ever exist per
// (participant, program, type); a prior SUCCESS fails with ErrAlreadyIssued.
// On delivery failure the row lands in ERROR with last_error set and the
// retry counter bumped, and ErrDeliveryFailed is returned.
func (s *Service) Issue(ctx context.Context, participantID, programID, certType, templateID, designID string) (Certificate, error) {
	if !ValidType(certType) {
		return Certificate{}, ErrInvalidType
	}

	p, err := s.participants.GetByID(ctx, participantID)
	if err != nil {
		return Certificate{}, err
	}
	prog, err := s.programs.Get(ctx, programID)
	if err != nil {
		return Certificate{}, err
	}
	if !prog.Active {
		return Certificate{}, ErrProgramInactive
	}

	tpl, err := s.store.GetTemplate(ctx, templateID)
	if err != nil {
		return Certificate{}, err
	}
	if !tpl.Active || tpl.Locked {
		return Certificate{}, ErrTemplateInvalid
	}
	design, err := s.store.GetDesign(ctx, designID)
	if err != nil {
		return Certificate{}, err
	}

	cert, err := s.openRow(ctx, p.ID, prog.ID, certType, templateID, designID)
	if err != nil {
		return Certificate{}, err
	}

	issuedAt := s.now().UTC()
	html, err := Render(design, RenderData{
		ParticipantName:   p.Name,
		ProgramName:       prog.Name,
		CertificateNumber: cert.Number,
		IssueDate:         issuedAt.Format("2006-01-02"),
	})
	if err != nil {
		return s.fail(ctx, cert, err)
	}

	err = s.deliver.SendCertificate(ctx, mailer.CertificateEmail{
		Recipient:         p.Email,
		ParticipantName:   p.Name,
		ProgramName:       prog.Name,
		CertificateNumber: cert.Number,
		CertificateType:   certType,
		HTML:              html,
	})
	if err != nil {
		return s.fail(ctx, cert, err)
	}

	if err := s.store.MarkSent(ctx, cert.ID, issuedAt); err != nil {
		if errors.Is(err, ErrAlreadyIssued) {
			return Certificate{}, ErrAlreadyIssued
		}
		return Certificate{}, err
	}
	cert.DeliveryStatus = StatusSuccess
	cert.SentAt = &issuedAt
	cert.LastError = ""
	metrics.CertificatesIssued.WithLabelValues(StatusSuccess).Inc()
	return cert, nil
}

// openRow finds or creates the working certificate row for the triple.
func (s *Service) openRow(ctx context.Context, participantID, programID, certType, templateID, designID string) (Certificate, error) {
	existing, err := s.store.FindLatest(ctx, participantID, programID, certType)
	if err != nil {
		return Certificate{}, err
	}
	if existing != nil {
		if existing.DeliveryStatus == StatusSuccess {
			return Certificate{}, ErrAlreadyIssued
		}
		if err := s.store.Reopen(ctx, existing.ID); err != nil {
			return Certificate{}, err
		}
		existing.DeliveryStatus = StatusPending
		return *existing, nil
	}
	return s.store.Insert(ctx, Certificate{
		ParticipantID:  participantID,
		ProgramID:      programID,
		Type:           certType,
		Number:         NewNumber(participantID, s.now()),
		TemplateID:     templateID,
		DesignID:       designID,
		DeliveryStatus: StatusPending,
	})
}

func (s *Service) fail(ctx context.Context, cert Certificate, cause error) (Certificate, error) {
	if err := s.store.MarkFailed(ctx, cert.ID, cause.Error()); err != nil {
		s.log.Error("mark certificate failed", zap.String("certificate_id", cert.ID), zap.Error(err))
	}
	cert.DeliveryStatus = StatusError
	cert.LastError = cause.Error()
	cert.RetryCount++
	metrics.CertificatesIssued.WithLabelValues(StatusError).Inc()
	return cert, fmt.Errorf("%w: %v", ErrDeliveryFailed, cause)
}

// BulkError reports one failed item of a bulk issue.
type BulkError struct {
	ParticipantID string `json:"participant_id"`
	Message       string `json:"message"`
}

// BulkSummary tallies a bulk issue run. Partial failure is a normal terminal
// state; nothing is rolled back.
type BulkSummary struct {
	Sent   int         `json:"sent"`
	Failed int         `json:"failed"`
	Errors []BulkError `json:"errors,omitempty"`
}

// IssueBulk issues one certificate per participant, strictly sequentially.
func (s *Service) IssueBulk(ctx context.Context, participantIDs []string, programID, certType, templateID, designID string) BulkSummary {
	var sum BulkSummary
	for _, pid := range participantIDs {
		if _, err := s.Issue(ctx, pid, programID, certType, templateID, designID); err != nil {
			sum.Failed++
			sum.Errors = append(sum.Errors, BulkError{ParticipantID: pid, Message: err.Error()})
			continue
		}
		sum.Sent++
	}
	return sum
}

// Verify looks a certificate up by its public number.
func (s *Service) Verify(ctx context.Context, number string) (*Verification, error) {
	return s.store.FindByNumber(ctx, number)
}

// List returns certificates with optional filters.
func (s *Service) List(ctx context.Context, participantID, programID, status string, limit, offset int) ([]Certificate, error) {
	return s.store.List(ctx, participantID, programID, status, limit, offset)
}
