package appointments

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dentalespejo/clinic-platform/internal/audit"
	"github.com/dentalespejo/clinic-platform/internal/auth"
	"github.com/dentalespejo/clinic-platform/pkg/logging"
)

// Handler serves the public booking endpoints and the admin appointment
// endpoints.
type Handler struct {
	service *BookingService
	audit   *audit.Service
	logger  *logging.Logger
}

// NewHandler creates an appointments handler.
func NewHandler(service *BookingService, auditSvc *audit.Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, audit: auditSvc, logger: logger}
}

// Book handles POST /appointments, the public booking form.
func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	var req CreateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}

	appt, err := h.service.Book(r.Context(), &req)
	if err != nil {
		switch {
		case IsValidationError(err):
			writeError(w, http.StatusBadRequest, err.Error(), FieldFor(err))
		case errors.Is(err, ErrSlotTaken):
			// Return the current occupied set so the form can re-render
			// without another round trip.
			occupied, refreshErr := h.service.RefreshOccupied(r.Context(), req.Date)
			if refreshErr != nil {
				occupied = nil
			}
			writeJSON(w, http.StatusConflict, map[string]any{
				"error":          err.Error(),
				"field":          FieldFor(err),
				"occupied_times": occupied,
			})
		default:
			h.logger.Error("booking failed", "error", err)
			writeError(w, http.StatusInternalServerError, "no se pudo registrar la cita, intenta nuevamente", "")
		}
		return
	}

	writeJSON(w, http.StatusCreated, appt)
}

// Availability handles GET /appointments/availability?date=YYYY-MM-DD. A
// fetch failure is a 503, never an empty list that looks fully free.
func (h *Handler) Availability(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	occupied, err := h.service.Occupied(r.Context(), date)
	if err != nil {
		if errors.Is(err, ErrInvalidDate) {
			writeError(w, http.StatusBadRequest, err.Error(), "appointment_date")
			return
		}
		h.logger.Error("availability lookup failed", "error", err, "date", date)
		writeError(w, http.StatusServiceUnavailable, "no se pudo consultar la disponibilidad", "")
		return
	}

	free := make([]string, 0, len(TimeSlots))
	taken := make(map[string]bool, len(occupied))
	for _, t := range occupied {
		taken[t] = true
	}
	for _, slot := range TimeSlots {
		if !taken[slot] {
			free = append(free, slot)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"date":            date,
		"occupied_times":  occupied,
		"available_times": free,
	})
}

// List handles GET /admin/appointments.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{
		Status: Status(q.Get("status")),
		Search: q.Get("search"),
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			filter.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			filter.Offset = n
		}
	}
	if filter.Status != "" && !ValidStatus(filter.Status) {
		writeError(w, http.StatusBadRequest, "unknown status filter", "status")
		return
	}

	list, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list appointments", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list appointments", "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": list, "count": len(list)})
}

// Get handles GET /admin/appointments/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	appt, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "appointment not found", "")
			return
		}
		h.logger.Error("failed to load appointment", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load appointment", "")
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

// Update handles PATCH /admin/appointments/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req UpdateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}

	appt, err := h.service.Update(r.Context(), id, &req)
	if err != nil {
		switch {
		case IsValidationError(err):
			writeError(w, http.StatusBadRequest, err.Error(), FieldFor(err))
		case errors.Is(err, ErrSlotTaken):
			writeError(w, http.StatusConflict, err.Error(), FieldFor(err))
		case errors.Is(err, ErrNotFound):
			writeError(w, http.StatusNotFound, "appointment not found", "")
		default:
			h.logger.Error("failed to update appointment", "error", err, "id", id)
			writeError(w, http.StatusInternalServerError, "failed to update appointment", "")
		}
		return
	}

	h.record(r, audit.EventAppointmentUpdated, appt.ID)
	writeJSON(w, http.StatusOK, appt)
}

type statusRequest struct {
	Status Status `json:"status"`
}

// UpdateStatus handles PATCH /admin/appointments/{id}/status.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}
	if !ValidStatus(req.Status) {
		writeError(w, http.StatusBadRequest, "unknown status", "status")
		return
	}

	appt, err := h.service.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, ErrSlotTaken):
			writeError(w, http.StatusConflict, err.Error(), FieldFor(err))
		case errors.Is(err, ErrNotFound):
			writeError(w, http.StatusNotFound, "appointment not found", "")
		default:
			h.logger.Error("failed to change status", "error", err, "id", id)
			writeError(w, http.StatusInternalServerError, "failed to change status", "")
		}
		return
	}

	h.record(r, audit.EventAppointmentStatus, appt.ID)
	writeJSON(w, http.StatusOK, appt)
}

// Delete handles DELETE /admin/appointments/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.Delete(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "appointment not found", "")
			return
		}
		h.logger.Error("failed to delete appointment", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, "failed to delete appointment", "")
		return
	}
	h.record(r, audit.EventAppointmentDeleted, id)
	w.WriteHeader(http.StatusNoContent)
}

// Calendar handles GET /admin/appointments/calendar?month=YYYY-MM.
func (h *Handler) Calendar(w http.ResponseWriter, r *http.Request) {
	month := r.URL.Query().Get("month")
	days, err := h.service.Calendar(r.Context(), month)
	if err != nil {
		if errors.Is(err, ErrInvalidDate) {
			writeError(w, http.StatusBadRequest, "month must be YYYY-MM", "month")
			return
		}
		h.logger.Error("failed to build calendar", "error", err, "month", month)
		writeError(w, http.StatusInternalServerError, "failed to build calendar", "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"month": month, "days": days})
}

func (h *Handler) record(r *http.Request, event audit.EventType, entityID string) {
	var actorID, actorEmail string
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		actorID, actorEmail = claims.UserID, claims.Email
	}
	if err := h.audit.Record(r.Context(), audit.Event{
		EventType:  event,
		ActorID:    actorID,
		ActorEmail: actorEmail,
		EntityID:   entityID,
	}); err != nil {
		h.logger.Error("audit record failed", "event", event, "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, field string) {
	body := map[string]any{"error": msg}
	if field != "" {
		body["field"] = field
	}
	writeJSON(w, status, body)
}
