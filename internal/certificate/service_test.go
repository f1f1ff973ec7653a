package certificate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"eventdesk/internal/mailer"
	"eventdesk/internal/participant"
	"eventdesk/internal/program"
)

type fakeStore struct {
	templates map[string]Template
	designs   map[string]Design
	certs     map[string]Certificate
	nextID    int
}

func newFakeCertStore() *fakeStore {
	return &fakeStore{
		templates: map[string]Template{
			"tpl-1":        {ID: "tpl-1", Name: "Clásica", Active: true},
			"tpl-inactive": {ID: "tpl-inactive", Name: "Vieja", Active: false},
			"tpl-locked":   {ID: "tpl-locked", Name: "Bloqueada", Active: true, Locked: true},
		},
		designs: map[string]Design{
			"d-1": {ID: "d-1", Name: "Azul",
				LogoURL:      "https://cdn.example/logo.png",
				SignatureURL: "https://cdn.example/firma.png",
				HTML:         "<h1>{{.ParticipantName}}</h1><p>{{.ProgramName}} — {{.CertificateNumber}} ({{.IssueDate}})</p>"},
		},
		certs: map[string]Certificate{},
	}
}

func (f *fakeStore) GetTemplate(_ context.Context, id string) (*Template, error) {
	t, ok := f.templates[id]
	if !ok {
		return nil, ErrTemplateInvalid
	}
	return &t, nil
}

func (f *fakeStore) GetDesign(_ context.Context, id string) (*Design, error) {
	d, ok := f.designs[id]
	if !ok {
		return nil, ErrTemplateInvalid
	}
	return &d, nil
}

func (f *fakeStore) FindLatest(_ context.Context, pid, progID, certType string) (*Certificate, error) {
	var latest *Certificate
	for id := range f.certs {
		c := f.certs[id]
		if c.ParticipantID == pid && c.ProgramID == progID && c.Type == certType {
			if latest == nil || c.CreatedAt.After(latest.CreatedAt) {
				cp := c
				latest = &cp
			}
		}
	}
	return latest, nil
}

func (f *fakeStore) Insert(_ context.Context, c Certificate) (Certificate, error) {
	f.nextID++
	if c.ID == "" {
		c.ID = fmt.Sprintf("c-%d", f.nextID)
	}
	c.CreatedAt = time.Now().Add(time.Duration(f.nextID) * time.Millisecond)
	f.certs[c.ID] = c
	return c, nil
}

func (f *fakeStore) Reopen(_ context.Context, id string) error {
	c := f.certs[id]
	c.DeliveryStatus = StatusPending
	c.LastError = ""
	f.certs[id] = c
	return nil
}

func (f *fakeStore) MarkSent(_ context.Context, id string, at time.Time) error {
	c := f.certs[id]
	for otherID, other := range f.certs {
		if otherID != id && other.ParticipantID == c.ParticipantID && other.ProgramID == c.ProgramID &&
			other.Type == c.Type && other.DeliveryStatus == StatusSuccess {
			return ErrAlreadyIssued
		}
	}
	c.DeliveryStatus = StatusSuccess
	c.SentAt = &at
	c.LastError = ""
	f.certs[id] = c
	return nil
}

func (f *fakeStore) MarkFailed(_ context.Context, id, message string) error {
	c := f.certs[id]
	c.DeliveryStatus = StatusError
	c.LastError = message
	c.RetryCount++
	f.certs[id] = c
	return nil
}

func (f *fakeStore) FindByNumber(_ context.Context, number string) (*Verification, error) {
	for _, c := range f.certs {
		if c.Number == number {
			return &Verification{Certificate: c, ParticipantName: "Juan Pérez", ProgramName: "Taller X"}, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeStore) List(_ context.Context, pid, progID, status string, limit, offset int) ([]Certificate, error) {
	var out []Certificate
	for _, c := range f.certs {
		if (pid == "" || c.ParticipantID == pid) &&
			(progID == "" || c.ProgramID == progID) &&
			(status == "" || c.DeliveryStatus == status) {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeParticipants map[string]participant.Participant

func (f fakeParticipants) GetByID(_ context.Context, id string) (*participant.Participant, error) {
	p, ok := f[id]
	if !ok {
		return nil, participant.ErrNotFound
	}
	return &p, nil
}

type fakePrograms map[string]program.Program

func (f fakePrograms) Get(_ context.Context, id string) (*program.Program, error) {
	p, ok := f[id]
	if !ok {
		return nil, program.ErrNotFound
	}
	return &p, nil
}

type fakeDeliverer struct {
	sent []mailer.CertificateEmail
	err  error
}

func (f *fakeDeliverer) SendCertificate(_ context.Context, req mailer.CertificateEmail) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, req)
	return nil
}

func testCertService(store *fakeStore, deliver *fakeDeliverer) *Service {
	return NewService(store,
		fakeParticipants{"p1": {ID: "p1", Name: "Juan Pérez", Email: "juan@ejemplo.com", Status: participant.StatusActive}},
		fakePrograms{
			"prog-1":    {ID: "prog-1", Name: "Taller X", Active: true},
			"prog-dead": {ID: "prog-dead", Name: "Cerrado", Active: false},
		},
		deliver, nil)
}

func TestIssueSuccess(t *testing.T) {
	store := newFakeCertStore()
	deliver := &fakeDeliverer{}
	svc := testCertService(store, deliver)

	cert, err := svc.Issue(context.Background(), "p1", "prog-1", TypeAsistencia, "tpl-1", "d-1")
	if err != nil {
		t.Fatal(err)
	}
	if cert.DeliveryStatus != StatusSuccess || cert.SentAt == nil {
		t.Fatalf("cert = %+v", cert)
	}
	if !strings.HasPrefix(cert.Number, "CERT-") {
		t.Errorf("number = %q", cert.Number)
	}
	if len(deliver.sent) != 1 {
		t.Fatalf("sent = %d", len(deliver.sent))
	}
	mail := deliver.sent[0]
	if mail.Recipient != "juan@ejemplo.com" {
		t.Errorf("recipient = %q", mail.Recipient)
	}
	if !strings.Contains(mail.HTML, "Juan Pérez") || !strings.Contains(mail.HTML, "Taller X") ||
		!strings.Contains(mail.HTML, cert.Number) {
		t.Errorf("rendered html = %q", mail.HTML)
	}
}

func TestIssueAlreadyIssued(t *testing.T) {
	store := newFakeCertStore()
	deliver := &fakeDeliverer{}
	svc := testCertService(store, deliver)
	ctx := context.Background()

	if _, err := svc.Issue(ctx, "p1", "prog-1", TypeAsistencia, "tpl-1", "d-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Issue(ctx, "p1", "prog-1", TypeAsistencia, "tpl-1", "d-1"); !errors.Is(err, ErrAlreadyIssued) {
		t.Fatalf("err = %v, want ErrAlreadyIssued", err)
	}
	if len(deliver.sent) != 1 {
		t.Errorf("no second email must go out, sent = %d", len(deliver.sent))
	}

	// A different type for the same participant/program is a separate credential.
	if _, err := svc.Issue(ctx, "p1", "prog-1", TypeParticipacion, "tpl-1", "d-1"); err != nil {
		t.Errorf("different type should issue: %v", err)
	}
}

func TestIssueDeliveryFailure(t *testing.T) {
	store := newFakeCertStore()
	deliver := &fakeDeliverer{err: errors.New("mailer error 502 Bad Gateway: smtp refused")}
	svc := testCertService(store, deliver)

	cert, err := svc.Issue(context.Background(), "p1", "prog-1", TypeAsistencia, "tpl-1", "d-1")
	if !errors.Is(err, ErrDeliveryFailed) {
		t.Fatalf("err = %v, want ErrDeliveryFailed", err)
	}
	if cert.DeliveryStatus != StatusError || cert.RetryCount != 1 {
		t.Fatalf("cert = %+v", cert)
	}
	if !strings.Contains(cert.LastError, "smtp refused") {
		t.Errorf("last_error = %q", cert.LastError)
	}

	// Recovery: the same row is reopened and the counter keeps its history.
	deliver.err = nil
	cert2, err := svc.Issue(context.Background(), "p1", "prog-1", TypeAsistencia, "tpl-1", "d-1")
	if err != nil {
		t.Fatal(err)
	}
	if cert2.ID != cert.ID {
		t.Errorf("expected reopened row %s, got %s", cert.ID, cert2.ID)
	}
	if cert2.DeliveryStatus != StatusSuccess {
		t.Errorf("status = %s", cert2.DeliveryStatus)
	}
}

func TestIssueGuards(t *testing.T) {
	svc := testCertService(newFakeCertStore(), &fakeDeliverer{})
	ctx := context.Background()

	cases := []struct {
		name                                  string
		pid, prog, certType, template, design string
		want                                  error
	}{
		{"bad type", "p1", "prog-1", "DIPLOMA", "tpl-1", "d-1", ErrInvalidType},
		{"unknown participant", "p9", "prog-1", TypeAsistencia, "tpl-1", "d-1", participant.ErrNotFound},
		{"unknown program", "p1", "prog-9", TypeAsistencia, "tpl-1", "d-1", program.ErrNotFound},
		{"inactive program", "p1", "prog-dead", TypeAsistencia, "tpl-1", "d-1", ErrProgramInactive},
		{"inactive template", "p1", "prog-1", TypeAsistencia, "tpl-inactive", "d-1", ErrTemplateInvalid},
		{"locked template", "p1", "prog-1", TypeAsistencia, "tpl-locked", "d-1", ErrTemplateInvalid},
		{"unknown design", "p1", "prog-1", TypeAsistencia, "tpl-1", "d-9", ErrTemplateInvalid},
	}
	for _, tc := range cases {
		if _, err := svc.Issue(ctx, tc.pid, tc.prog, tc.certType, tc.template, tc.design); !errors.Is(err, tc.want) {
			t.Errorf("%s: err = %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestIssueBulk(t *testing.T) {
	store := newFakeCertStore()
	svc := testCertService(store, &fakeDeliverer{})

	sum := svc.IssueBulk(context.Background(), []string{"p1", "p9"}, "prog-1", TypeParticipacion, "tpl-1", "d-1")
	if sum.Sent != 1 || sum.Failed != 1 {
		t.Fatalf("summary = %+v", sum)
	}
	if len(sum.Errors) != 1 || sum.Errors[0].ParticipantID != "p9" {
		t.Fatalf("errors = %+v", sum.Errors)
	}
}

func TestVerify(t *testing.T) {
	store := newFakeCertStore()
	svc := testCertService(store, &fakeDeliverer{})

	cert, err := svc.Issue(context.Background(), "p1", "prog-1", TypeAsistencia, "tpl-1", "d-1")
	if err != nil {
		t.Fatal(err)
	}
	v, err := svc.Verify(context.Background(), cert.Number)
	if err != nil {
		t.Fatal(err)
	}
	if v.Certificate.Number != cert.Number || v.ParticipantName == "" {
		t.Fatalf("verification = %+v", v)
	}
	if _, err := svc.Verify(context.Background(), "CERT-0-NADIE"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestNewNumber(t *testing.T) {
	at := time.UnixMilli(1714557000000)
	got := NewNumber("ab12cd34-ef56-7890", at)
	if got != "CERT-1714557000000-AB12CD34" {
		t.Errorf("number = %q", got)
	}
	// Short ids are used as-is.
	if got := NewNumber("p1", at); got != "CERT-1714557000000-P1" {
		t.Errorf("number = %q", got)
	}
}
