package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dentalespejo/clinic-platform/internal/appointments"
	"github.com/dentalespejo/clinic-platform/internal/auth"
	"github.com/dentalespejo/clinic-platform/internal/clinic"
	"github.com/dentalespejo/clinic-platform/internal/users"
)

const testSecret = "router-test-secret"

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	apptSvc := appointments.NewBookingService(appointments.NewInMemoryRepository(), nil, nil, nil, nil)
	usersRepo := users.NewInMemoryRepository()
	authHandler := auth.NewHandler(usersRepo, nil, nil, testSecret, 15*time.Minute, 7*24*time.Hour, nil)
	settingsStore := clinic.NewStore(nil, clinic.Settings{Name: "DentalEspejo"})

	return New(&Config{
		AppointmentsHandler: appointments.NewHandler(apptSvc, nil, nil),
		AuthHandler:         authHandler,
		UsersHandler:        users.NewHandler(usersRepo, nil, nil),
		ClinicHandler:       clinic.NewHandler(settingsStore, apptSvc, nil, nil),
		AdminJWTSecret:      testSecret,
	})
}

func bearerToken(t *testing.T, role string) string {
	t.Helper()
	tok, err := auth.MakeAccessToken("u1", "staff@dentalespejo.pe", role, testSecret, time.Minute)
	if err != nil {
		t.Fatalf("failed to mint token: %v", err)
	}
	return "Bearer " + tok
}

func TestHealthIsPublic(t *testing.T) {
	r := newTestRouter(t)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestBookingIsPublic(t *testing.T) {
	r := newTestRouter(t)

	body := `{"patient_name":"Juana Pérez","patient_email":"juana@example.com","patient_phone":"987654321","service":"BRACKETS","appointment_date":"2099-06-10","appointment_time":"09:00"}`
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/appointments", strings.NewReader(body)))

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestAvailabilityIsPublic(t *testing.T) {
	r := newTestRouter(t)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/appointments/availability?date=2099-06-10", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var out struct {
		AvailableTimes []string `json:"available_times"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(out.AvailableTimes) != len(appointments.TimeSlots) {
		t.Errorf("expected the full slot grid, got %v", out.AvailableTimes)
	}
}

func TestAdminRoutesRequireToken(t *testing.T) {
	r := newTestRouter(t)

	paths := []struct {
		method, path string
	}{
		{http.MethodGet, "/admin/appointments"},
		{http.MethodGet, "/admin/users"},
		{http.MethodGet, "/admin/dashboard"},
		{http.MethodGet, "/admin/clinic/config"},
		{http.MethodPost, "/auth/logout"},
	}
	for _, p := range paths {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(p.method, p.path, nil))
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: expected 401, got %d", p.method, p.path, rr.Code)
		}
	}
}

func TestAdminTokenOpensPanel(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/appointments", nil)
	req.Header.Set("Authorization", bearerToken(t, string(users.RoleAdmin)))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestUsersRouteIsAdminRoleOnly(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
	req.Header.Set("Authorization", bearerToken(t, string(users.RoleDoctor)))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for a doctor, got %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/admin/users", nil)
	req.Header.Set("Authorization", bearerToken(t, string(users.RoleAdmin)))
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for an admin, got %d", rr.Code)
	}
}

func TestClinicConfigWriteIsAdminRoleOnly(t *testing.T) {
	r := newTestRouter(t)

	// Any staff role can read the profile.
	req := httptest.NewRequest(http.MethodGet, "/admin/clinic/config", nil)
	req.Header.Set("Authorization", bearerToken(t, string(users.RoleReceptionist)))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for a receptionist read, got %d", rr.Code)
	}

	// Writes stay admin only.
	req = httptest.NewRequest(http.MethodPut, "/admin/clinic/config", strings.NewReader(`{"name":"X"}`))
	req.Header.Set("Authorization", bearerToken(t, string(users.RoleReceptionist)))
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for a receptionist write, got %d", rr.Code)
	}
}

func TestBookingRateLimitApplies(t *testing.T) {
	apptSvc := appointments.NewBookingService(appointments.NewInMemoryRepository(), nil, nil, nil, nil)
	r := New(&Config{
		AppointmentsHandler: appointments.NewHandler(apptSvc, nil, nil),
		AuthHandler:         auth.NewHandler(users.NewInMemoryRepository(), nil, nil, testSecret, time.Minute, time.Hour, nil),
		UsersHandler:        users.NewHandler(users.NewInMemoryRepository(), nil, nil),
		AdminJWTSecret:      testSecret,
		BookingRateLimit:    1,
		BookingRateBurst:    1,
	})

	body := func() *strings.Reader {
		return strings.NewReader(`{"patient_name":"Juana Pérez","patient_email":"juana@example.com","patient_phone":"987654321","service":"BRACKETS","appointment_date":"2099-06-10","appointment_time":"10:00"}`)
	}

	first := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/appointments", body())
	req.RemoteAddr = "10.0.0.9:1234"
	r.ServeHTTP(first, req)
	if first.Code != http.StatusCreated {
		t.Fatalf("first booking should pass, got %d: %s", first.Code, first.Body.String())
	}

	second := httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/appointments", body())
	req.RemoteAddr = "10.0.0.9:1234"
	r.ServeHTTP(second, req)
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second rapid booking should be throttled, got %d", second.Code)
	}

	// Availability reads are never throttled.
	avail := httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/appointments/availability?date=2099-06-10", nil)
	req.RemoteAddr = "10.0.0.9:1234"
	r.ServeHTTP(avail, req)
	if avail.Code != http.StatusOK {
		t.Fatalf("availability should not be rate limited, got %d", avail.Code)
	}
}
