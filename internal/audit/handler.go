package audit

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/dentalespejo/clinic-platform/pkg/logging"
)

// Handler exposes the audit trail to the admin panel.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates an audit handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// List handles GET /admin/audit?limit=N, newest first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			http.Error(w, "limit must be between 1 and 500", http.StatusBadRequest)
			return
		}
		limit = n
	}

	events, err := h.service.List(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list audit events", "error", err)
		http.Error(w, "failed to list audit events", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{"events": events, "count": len(events)})
}
