package appointments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func newTestHandler(t *testing.T) (*Handler, *BookingService) {
	t.Helper()
	svc := newTestService(nil)
	return NewHandler(svc, nil, nil), svc
}

func postJSON(t *testing.T, h http.HandlerFunc, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestBookHandlerCreatesAppointment(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := postJSON(t, h.Book, "/appointments", map[string]string{
		"patient_name":     "Juana Pérez",
		"patient_email":    "juana@example.com",
		"patient_phone":    "987654321",
		"service":          "BRACKETS",
		"appointment_date": "2025-06-10",
		"appointment_time": "09:00",
	})

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var appt Appointment
	if err := json.Unmarshal(rec.Body.Bytes(), &appt); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if appt.Status != StatusPendiente {
		t.Errorf("expected PENDIENTE, got %s", appt.Status)
	}
	if appt.Notes != DefaultNotes {
		t.Errorf("expected default notes, got %q", appt.Notes)
	}
	if appt.NumeroCita == 0 {
		t.Error("expected numero_cita to be assigned")
	}
}

func TestBookHandlerValidationErrorNamesField(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := postJSON(t, h.Book, "/appointments", map[string]string{
		"patient_name":     "Juana Pérez",
		"patient_email":    "juana@example.com",
		"patient_phone":    "123-456-78",
		"service":          "BRACKETS",
		"appointment_date": "2025-06-10",
		"appointment_time": "09:00",
	})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var body struct {
		Error string `json:"error"`
		Field string `json:"field"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Field != "patient_phone" {
		t.Errorf("expected field patient_phone, got %q", body.Field)
	}
	if body.Error != ErrInvalidPhone.Error() {
		t.Errorf("unexpected message: %q", body.Error)
	}
}

func TestBookHandlerConflictIncludesOccupiedSet(t *testing.T) {
	h, svc := newTestHandler(t)
	ctx := context.Background()

	first := validRequest()
	if _, err := svc.Book(ctx, &first); err != nil {
		t.Fatalf("seed booking failed: %v", err)
	}

	rec := postJSON(t, h.Book, "/appointments", map[string]string{
		"patient_name":     "Carlos Quispe",
		"patient_email":    "carlos@example.com",
		"patient_phone":    "912345678",
		"service":          "IMPLANTES",
		"appointment_date": "2025-06-10",
		"appointment_time": "09:00",
	})

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Error         string   `json:"error"`
		OccupiedTimes []string `json:"occupied_times"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Error != ErrSlotTaken.Error() {
		t.Errorf("unexpected message: %q", body.Error)
	}
	if len(body.OccupiedTimes) != 1 || body.OccupiedTimes[0] != "09:00" {
		t.Errorf("expected refreshed occupied set, got %v", body.OccupiedTimes)
	}
}

func TestAvailabilityHandler(t *testing.T) {
	h, svc := newTestHandler(t)
	ctx := context.Background()

	seed := validRequest()
	if _, err := svc.Book(ctx, &seed); err != nil {
		t.Fatalf("seed booking failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/appointments/availability?date=2025-06-10", nil)
	rec := httptest.NewRecorder()
	h.Availability(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Date           string   `json:"date"`
		OccupiedTimes  []string `json:"occupied_times"`
		AvailableTimes []string `json:"available_times"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.OccupiedTimes) != 1 || body.OccupiedTimes[0] != "09:00" {
		t.Errorf("unexpected occupied set: %v", body.OccupiedTimes)
	}
	if len(body.AvailableTimes) != len(TimeSlots)-1 {
		t.Errorf("expected %d free slots, got %d", len(TimeSlots)-1, len(body.AvailableTimes))
	}
	for _, slot := range body.AvailableTimes {
		if slot == "09:00" {
			t.Error("booked slot listed as available")
		}
	}
}

func TestAvailabilityHandlerRejectsBadDate(t *testing.T) {
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/appointments/availability?date=junk", nil)
	rec := httptest.NewRecorder()
	h.Availability(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

type failingRepo struct{ Repository }

func (failingRepo) OccupiedTimes(ctx context.Context, date string) ([]string, error) {
	return nil, errors.New("db down")
}

func TestAvailabilityHandlerSurfacesStoreFailure(t *testing.T) {
	// A store failure must never read as a fully free day.
	svc := NewBookingService(failingRepo{NewInMemoryRepository()}, nil, nil, nil, nil).WithClock(fixedClock)
	h := NewHandler(svc, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/appointments/availability?date=2025-06-10", nil)
	rec := httptest.NewRecorder()
	h.Availability(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestStatusHandlerLifecycle(t *testing.T) {
	h, svc := newTestHandler(t)
	ctx := context.Background()

	seed := validRequest()
	appt, err := svc.Book(ctx, &seed)
	if err != nil {
		t.Fatalf("seed booking failed: %v", err)
	}

	body := bytes.NewReader([]byte(`{"status":"CONFIRMADA"}`))
	req := httptest.NewRequest(http.MethodPatch, "/admin/appointments/"+appt.ID+"/status", body)
	req = withURLParam(req, "id", appt.ID)
	rec := httptest.NewRecorder()
	h.UpdateStatus(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var updated Appointment
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if updated.Status != StatusConfirmada {
		t.Errorf("expected CONFIRMADA, got %s", updated.Status)
	}
}

func TestStatusHandlerRejectsUnknownStatus(t *testing.T) {
	h, _ := newTestHandler(t)

	body := bytes.NewReader([]byte(`{"status":"ARCHIVADA"}`))
	req := httptest.NewRequest(http.MethodPatch, "/admin/appointments/x/status", body)
	req = withURLParam(req, "id", "x")
	rec := httptest.NewRecorder()
	h.UpdateStatus(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestDeleteHandlerNotFound(t *testing.T) {
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodDelete, "/admin/appointments/missing", nil)
	req = withURLParam(req, "id", "missing")
	rec := httptest.NewRecorder()
	h.Delete(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestListHandlerFiltersByStatus(t *testing.T) {
	h, svc := newTestHandler(t)
	ctx := context.Background()

	first := validRequest()
	appt, err := svc.Book(ctx, &first)
	if err != nil {
		t.Fatalf("seed booking failed: %v", err)
	}
	second := validRequest()
	second.Time = "10:00"
	if _, err := svc.Book(ctx, &second); err != nil {
		t.Fatalf("seed booking failed: %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, appt.ID, StatusCompletada); err != nil {
		t.Fatalf("status change failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/admin/appointments?status=COMPLETADA", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Appointments []Appointment `json:"appointments"`
		Count        int           `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Count != 1 || body.Appointments[0].ID != appt.ID {
		t.Fatalf("unexpected listing: %+v", body)
	}
}
