package clinic

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/dentalespejo/clinic-platform/internal/appointments"
	"github.com/dentalespejo/clinic-platform/internal/audit"
	"github.com/dentalespejo/clinic-platform/internal/auth"
	"github.com/dentalespejo/clinic-platform/pkg/logging"
)

// AppointmentSource is the slice of the appointments service the dashboard
// needs.
type AppointmentSource interface {
	Calendar(ctx context.Context, month string) ([]appointments.DayCounts, error)
}

// Handler serves the clinic profile and dashboard endpoints.
type Handler struct {
	store  *Store
	appts  AppointmentSource
	audit  *audit.Service
	logger *logging.Logger
	now    func() time.Time
}

// NewHandler creates a clinic handler.
func NewHandler(store *Store, appts AppointmentSource, auditSvc *audit.Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, appts: appts, audit: auditSvc, logger: logger, now: time.Now}
}

// GetSettings handles GET /admin/clinic/config.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.store.Current(r.Context())
	if err != nil {
		// Defaults still come back; log the store failure and serve them.
		h.logger.Warn("settings load failed, serving defaults", "error", err)
	}
	writeJSON(w, http.StatusOK, settings)
}

// PutSettings handles PUT /admin/clinic/config.
func (h *Handler) PutSettings(w http.ResponseWriter, r *http.Request) {
	var settings Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := settings.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.store.Save(r.Context(), settings); err != nil {
		h.logger.Error("failed to save settings", "error", err)
		http.Error(w, "failed to save settings", http.StatusInternalServerError)
		return
	}

	var actorID, actorEmail string
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		actorID, actorEmail = claims.UserID, claims.Email
	}
	if err := h.audit.Record(r.Context(), audit.Event{
		EventType:  audit.EventClinicConfig,
		ActorID:    actorID,
		ActorEmail: actorEmail,
	}); err != nil {
		h.logger.Error("audit record failed", "event", audit.EventClinicConfig, "error", err)
	}
	writeJSON(w, http.StatusOK, settings)
}

// DashboardStats is the month summary behind the admin home screen.
type DashboardStats struct {
	Month      string                   `json:"month"`
	Total      int                      `json:"total"`
	Pendiente  int                      `json:"pendiente"`
	Confirmada int                      `json:"confirmada"`
	Completada int                      `json:"completada"`
	Cancelada  int                      `json:"cancelada"`
	Today      *appointments.DayCounts  `json:"today,omitempty"`
	Days       []appointments.DayCounts `json:"days"`
}

// Dashboard handles GET /admin/dashboard. It aggregates the current month
// unless ?month=YYYY-MM overrides it.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	month := r.URL.Query().Get("month")
	if month == "" {
		month = h.now().Format("2006-01")
	} else if _, err := time.Parse("2006-01", month); err != nil {
		http.Error(w, "month must be YYYY-MM", http.StatusBadRequest)
		return
	}

	days, err := h.appts.Calendar(r.Context(), month)
	if err != nil {
		h.logger.Error("failed to build dashboard", "error", err, "month", month)
		http.Error(w, "failed to build dashboard", http.StatusInternalServerError)
		return
	}

	stats := DashboardStats{Month: month, Days: days}
	today := h.now().Format(appointments.DateLayout)
	for i := range days {
		d := days[i]
		stats.Pendiente += d.Pendiente
		stats.Confirmada += d.Confirmada
		stats.Completada += d.Completada
		stats.Cancelada += d.Cancelada
		if d.Date == today {
			stats.Today = &days[i]
		}
	}
	stats.Total = stats.Pendiente + stats.Confirmada + stats.Completada + stats.Cancelada

	writeJSON(w, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
