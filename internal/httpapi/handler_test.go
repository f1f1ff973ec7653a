package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"eventdesk/internal/attendance"
	"eventdesk/internal/device"
	"eventdesk/internal/i18n"
	"eventdesk/internal/participant"
)

type fakeAttStore struct {
	records []attendance.Record
}

func (f *fakeAttStore) FindValid(_ context.Context, participantID, day string) (*attendance.Record, error) {
	for i := range f.records {
		r := f.records[i]
		if r.ParticipantID == participantID && r.SessionDate == day && r.Status == attendance.StatusValid {
			return &r, nil
		}
	}
	return nil, nil
}

func (f *fakeAttStore) Insert(_ context.Context, rec attendance.Record) (attendance.Record, error) {
	rec.ID = "rec-1"
	f.records = append(f.records, rec)
	return rec, nil
}

func (f *fakeAttStore) RefreshSummary(context.Context) error { return nil }

type fakeFinder struct {
	byCode map[string]participant.Participant
}

func (f *fakeFinder) FindActiveByEmailOrCode(_ context.Context, key string) (*participant.Participant, error) {
	if p, ok := f.byCode[key]; ok {
		return &p, nil
	}
	return nil, participant.ErrNotFound
}

type fakeDeviceStore struct {
	devices map[string]device.Device
}

func (f *fakeDeviceStore) Upsert(_ context.Context, d device.Device) (device.Device, error) {
	if f.devices == nil {
		f.devices = map[string]device.Device{}
	}
	d.ID = "row-" + d.DeviceID
	d.Active = true
	d.LastSeen = time.Now()
	f.devices[d.DeviceID] = d
	return d, nil
}

func (f *fakeDeviceStore) ListActive(context.Context) ([]device.Device, error) {
	var res []device.Device
	for _, d := range f.devices {
		res = append(res, d)
	}
	return res, nil
}

func (f *fakeDeviceStore) PruneStale(context.Context, time.Duration) (int64, error) { return 0, nil }

func newTestRouter(t *testing.T) (*gin.Engine, *fakeAttStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := &fakeAttStore{}
	finder := &fakeFinder{byCode: map[string]participant.Participant{
		"CODE123": {ID: "p-1", Name: "Ana", Email: "ana@example.com", Code: "CODE123", Status: participant.StatusActive},
	}}

	h := New(Deps{
		Attendance: attendance.NewService(store, finder, nil),
		Devices:    device.NewService(&fakeDeviceStore{}, nil, nil),
		Translator: i18n.NewTranslator("es"),
		JWTIssuer:  "eventdesk",
		JWTKey:     "test-key",
	})

	r := gin.New()
	h.Routes(r)
	return r, store
}

func TestScanEndpoint(t *testing.T) {
	r, store := newTestRouter(t)

	body := `{"scan":"CODE123"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/attendance/scan", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var resp struct {
		Message         string `json:"message"`
		AlreadyRecorded bool   `json:"already_recorded"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.AlreadyRecorded {
		t.Error("first scan reported as already recorded")
	}
	if !strings.Contains(resp.Message, "Ana") {
		t.Errorf("message = %q, want participant name", resp.Message)
	}
	if len(store.records) != 1 {
		t.Fatalf("records = %d, want 1", len(store.records))
	}

	// Same code again: 200, no second row.
	req = httptest.NewRequest(http.MethodPost, "/v1/attendance/scan", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("repeat status = %d", w.Code)
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.AlreadyRecorded {
		t.Error("repeat scan not flagged")
	}
	if len(store.records) != 1 {
		t.Errorf("records = %d after repeat, want 1", len(store.records))
	}
}

func TestScanEndpointUnknownCode(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/attendance/scan", strings.NewReader(`{"scan":"NOPE"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept-Language", "en")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Participant not found") {
		t.Errorf("body = %s, want localized english message", w.Body.String())
	}
}

func TestHeartbeatEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/devices/heartbeat",
		strings.NewReader(`{"type":"usb","label":"front desk"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var d device.Device
	if err := json.Unmarshal(w.Body.Bytes(), &d); err != nil {
		t.Fatal(err)
	}
	if d.DeviceID != device.USBSentinelID {
		t.Errorf("device_id = %q, want usb sentinel", d.DeviceID)
	}
}

func TestAdminRoutesRequireToken(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/participants", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestLocale(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.Header.Set("Accept-Language", "en-US;q=0.9, es")
	if got := locale(c); got != "en-US" {
		t.Errorf("locale = %q, want en-US", got)
	}
}
