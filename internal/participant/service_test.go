package participant

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"eventdesk/internal/queue"
)

// fakeStore is an in-memory Store.
type fakeStore struct {
	byID   map[string]Participant
	nextID int
}

func newFakeStore() *fakeStore {
	return &fakeStore{byID: map[string]Participant{}}
}

func (f *fakeStore) Insert(_ context.Context, p Participant) (Participant, error) {
	for _, existing := range f.byID {
		if existing.Email == p.Email {
			return Participant{}, ErrDuplicateEmail
		}
	}
	f.nextID++
	if p.ID == "" {
		p.ID = fmt.Sprintf("p-%d", f.nextID)
	}
	if p.Status == "" {
		p.Status = StatusActive
	}
	if p.QRStatus == "" {
		p.QRStatus = QRPending
	}
	f.byID[p.ID] = p
	return p, nil
}

func (f *fakeStore) Update(_ context.Context, id, name, organization string) (Participant, error) {
	p, ok := f.byID[id]
	if !ok {
		return Participant{}, ErrNotFound
	}
	p.Name, p.Organization = name, organization
	f.byID[id] = p
	return p, nil
}

func (f *fakeStore) SetStatus(_ context.Context, id, status string) error {
	p, ok := f.byID[id]
	if !ok {
		return ErrNotFound
	}
	p.Status = status
	f.byID[id] = p
	return nil
}

func (f *fakeStore) SetQRStatus(_ context.Context, id, qrStatus string) error {
	p, ok := f.byID[id]
	if !ok {
		return ErrNotFound
	}
	p.QRStatus = qrStatus
	f.byID[id] = p
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, id string) (*Participant, error) {
	p, ok := f.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (f *fakeStore) GetByEmail(_ context.Context, email string) (*Participant, error) {
	for _, p := range f.byID {
		if p.Email == email {
			cp := p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeStore) List(_ context.Context, status string, limit, offset int) ([]Participant, error) {
	var out []Participant
	for _, p := range f.byID {
		if status == "" || p.Status == status {
			out = append(out, p)
		}
	}
	return out, nil
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	q := queue.NewInMemory(8)
	svc := NewService(store, q, nil)

	p, err := svc.Register(ctx, "Juan Pérez", "Juan@Ejemplo.com", "ACME")
	if err != nil {
		t.Fatal(err)
	}
	if p.Email != "juan@ejemplo.com" {
		t.Errorf("email not normalized: %q", p.Email)
	}
	if len(p.Code) == 0 {
		t.Error("expected opaque code")
	}
	if p.Status != StatusActive || p.QRStatus != QRPending {
		t.Errorf("unexpected initial state: %s/%s", p.Status, p.QRStatus)
	}

	// QR delivery queued.
	msgs, _ := q.Consume(ctx)
	msg := <-msgs
	if msg.Type != MsgQREmail {
		t.Errorf("queued message type = %q", msg.Type)
	}

	// Same email again conflicts.
	if _, err := svc.Register(ctx, "Otra Persona", "juan@ejemplo.com", ""); err != ErrDuplicateEmail {
		t.Errorf("duplicate register err = %v, want ErrDuplicateEmail", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := NewService(newFakeStore(), nil, nil)

	if _, err := svc.Register(context.Background(), "X", "not-an-email", ""); err != ErrInvalidEmail {
		t.Errorf("err = %v, want ErrInvalidEmail", err)
	}
	if _, err := svc.Register(context.Background(), "", "a@b.co", ""); err == nil {
		t.Error("expected error for empty name")
	}
}

func TestNewCodeUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		code := NewCode()
		if code == "" || seen[code] {
			t.Fatalf("code %q repeated or empty", code)
		}
		seen[code] = true
	}
}

func TestImportCSV(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := NewService(store, queue.NewInMemory(2048), nil)

	input := "name,email,role\n" +
		"Ana,ana@ejemplo.com,staff\n" +
		"Luis,luis@ejemplo.com,guest\n" +
		"Repetida,ana@ejemplo.com,guest\n" +
		"SinCorreo,,guest\n"
	sum, err := svc.ImportCSV(ctx, strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	if sum.Imported != 2 || sum.Failed != 2 {
		t.Fatalf("summary = %+v", sum)
	}
	if len(sum.Errors) != 2 {
		t.Fatalf("errors = %+v", sum.Errors)
	}
	if sum.Errors[0].Line != 4 || sum.Errors[0].Message != "duplicate email" {
		t.Errorf("unexpected first row error: %+v", sum.Errors[0])
	}
}

func TestImportCSVCap(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil, nil)

	var sb strings.Builder
	sb.WriteString("name,email,role\n")
	for i := 0; i < MaxImportRows+1; i++ {
		fmt.Fprintf(&sb, "P%d,p%d@ejemplo.com,guest\n", i, i)
	}
	_, err := svc.ImportCSV(context.Background(), strings.NewReader(sb.String()))
	if err != ErrTooManyRows {
		t.Fatalf("err = %v, want ErrTooManyRows", err)
	}
	if len(store.byID) != 0 {
		t.Fatalf("no rows should be persisted, got %d", len(store.byID))
	}
}

func TestImportCSVUnderCap(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil, nil)

	var sb strings.Builder
	for i := 0; i < 999; i++ {
		fmt.Fprintf(&sb, "P%d,p%d@ejemplo.com,guest\n", i, i)
	}
	sum, err := svc.ImportCSV(context.Background(), strings.NewReader(sb.String()))
	if err != nil {
		t.Fatal(err)
	}
	if sum.Imported != 999 || sum.Failed != 0 {
		t.Fatalf("summary = %+v", sum)
	}
}

func TestQRPNG(t *testing.T) {
	png, err := QRPNG("ABCD1234")
	if err != nil {
		t.Fatal(err)
	}
	if len(png) == 0 {
		t.Fatal("empty png")
	}
	// PNG magic bytes.
	if string(png[1:4]) != "PNG" {
		t.Fatalf("not a png: % x", png[:8])
	}
	if _, err := QRPNG(""); err == nil {
		t.Fatal("expected error for empty code")
	}
}
