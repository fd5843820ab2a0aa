package users

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dentalespejo/clinic-platform/internal/audit"
	"github.com/dentalespejo/clinic-platform/pkg/logging"
)

// Actor identifies the signed-in staff member driving a request.
type Actor struct {
	ID    string
	Email string
}

// ActorFunc extracts the request actor from its context. The session layer
// provides one at wiring time; this package stays session-agnostic.
type ActorFunc func(ctx context.Context) (Actor, bool)

// Handler handles the admin staff-account endpoints.
type Handler struct {
	repo   Repository
	audit  *audit.Service
	logger *logging.Logger
	actor  ActorFunc
}

// NewHandler creates a users handler.
func NewHandler(repo Repository, auditSvc *audit.Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, audit: auditSvc, logger: logger}
}

// WithActor sets the actor extractor used for audit attribution.
func (h *Handler) WithActor(fn ActorFunc) *Handler {
	h.actor = fn
	return h
}

// List handles GET /admin/users.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list users", "error", err)
		http.Error(w, "failed to list users", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": list, "count": len(list)})
}

// Get handles GET /admin/users/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	u, err := h.repo.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load user", "error", err)
		http.Error(w, "failed to load user", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// Create handles POST /admin/users.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		h.logger.Error("failed to hash password", "error", err)
		http.Error(w, "failed to create user", http.StatusInternalServerError)
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	u, err := h.repo.Create(r.Context(), &User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         Role(req.Role),
		IsActive:     active,
	})
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		h.logger.Error("failed to create user", "error", err)
		http.Error(w, "failed to create user", http.StatusInternalServerError)
		return
	}

	h.logger.Info("user created", "id", u.ID, "email", u.Email, "role", u.Role)
	h.record(r, audit.EventUserCreated, u.ID)
	writeJSON(w, http.StatusCreated, u)
}

// Update handles PATCH /admin/users/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	demoting := req.Role != nil && Role(*req.Role) != RoleAdmin
	deactivating := req.IsActive != nil && !*req.IsActive
	if demoting || deactivating {
		if err := h.guardLastAdmin(r, id); err != nil {
			if errors.Is(err, ErrLastAdmin) {
				http.Error(w, err.Error(), http.StatusConflict)
				return
			}
			http.Error(w, "failed to update user", http.StatusInternalServerError)
			return
		}
	}

	var hash string
	if req.Password != nil {
		var err error
		if hash, err = HashPassword(*req.Password); err != nil {
			h.logger.Error("failed to hash password", "error", err)
			http.Error(w, "failed to update user", http.StatusInternalServerError)
			return
		}
	}

	u, err := h.repo.Update(r.Context(), id, &req, hash)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			http.Error(w, "user not found", http.StatusNotFound)
		case errors.Is(err, ErrEmailTaken):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			h.logger.Error("failed to update user", "error", err, "id", id)
			http.Error(w, "failed to update user", http.StatusInternalServerError)
		}
		return
	}

	h.record(r, audit.EventUserUpdated, u.ID)
	writeJSON(w, http.StatusOK, u)
}

// Delete handles DELETE /admin/users/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.guardLastAdmin(r, id); err != nil {
		if errors.Is(err, ErrLastAdmin) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		http.Error(w, "failed to delete user", http.StatusInternalServerError)
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to delete user", "error", err, "id", id)
		http.Error(w, "failed to delete user", http.StatusInternalServerError)
		return
	}

	h.record(r, audit.EventUserDeleted, id)
	w.WriteHeader(http.StatusNoContent)
}

// guardLastAdmin rejects changes that would leave the clinic with no active
// admin account.
func (h *Handler) guardLastAdmin(r *http.Request, targetID string) error {
	target, err := h.repo.GetByID(r.Context(), targetID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil // the mutation itself will 404
		}
		return err
	}
	if target.Role != RoleAdmin || !target.IsActive {
		return nil
	}
	n, err := h.repo.CountActiveAdmins(r.Context())
	if err != nil {
		return err
	}
	if n <= 1 {
		return ErrLastAdmin
	}
	return nil
}

func (h *Handler) record(r *http.Request, event audit.EventType, entityID string) {
	var actorID, actorEmail string
	if h.actor != nil {
		if actor, ok := h.actor(r.Context()); ok {
			actorID, actorEmail = actor.ID, actor.Email
		}
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
