package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dentalespejo/clinic-platform/internal/audit"
	"github.com/dentalespejo/clinic-platform/internal/users"
	"github.com/dentalespejo/clinic-platform/pkg/logging"
)

// Handler serves the login, refresh and logout endpoints.
type Handler struct {
	users      users.Repository
	tokens     *TokenStore
	audit      *audit.Service
	logger     *logging.Logger
	secret     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewHandler creates an auth handler.
func NewHandler(repo users.Repository, tokens *TokenStore, auditSvc *audit.Service, secret string, accessTTL, refreshTTL time.Duration, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		users:      repo,
		tokens:     tokens,
		audit:      auditSvc,
		logger:     logger,
		secret:     secret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresIn    int64       `json:"expires_in"`
	User         *users.User `json:"user"`
}

// Login handles POST /auth/login. Unknown email, wrong password and
// deactivated accounts all return the same 401 body.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	u, err := h.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if !errors.Is(err, users.ErrNotFound) {
			h.logger.Error("login lookup failed", "error", err)
			http.Error(w, "login failed", http.StatusInternalServerError)
			return
		}
		h.rejectLogin(w, req.Email)
		return
	}
	if !u.IsActive || !users.CheckPassword(u.PasswordHash, req.Password) {
		h.rejectLogin(w, req.Email)
		return
	}

	resp, err := h.issueTokens(r, u)
	if err != nil {
		h.logger.Error("token issue failed", "error", err, "user_id", u.ID)
		http.Error(w, "login failed", http.StatusInternalServerError)
		return
	}

	h.logger.Info("admin login", "user_id", u.ID, "email", u.Email, "role", u.Role)
	if err := h.audit.Record(r.Context(), audit.Event{
		EventType:  audit.EventLogin,
		ActorID:    u.ID,
		ActorEmail: u.Email,
		EntityID:   u.ID,
	}); err != nil {
		h.logger.Error("audit record failed", "event", audit.EventLogin, "error", err)
	}
	writeJSON(w, http.StatusOK, resp)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh handles POST /auth/refresh. The presented token is revoked and a
// fresh pair is issued, so a stolen refresh token stops working after its
// first replay.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	rt, err := h.tokens.Lookup(r.Context(), HashRefreshToken(req.RefreshToken))
	if err != nil {
		if errors.Is(err, ErrBadToken) {
			http.Error(w, ErrBadToken.Error(), http.StatusUnauthorized)
			return
		}
		h.logger.Error("refresh lookup failed", "error", err)
		http.Error(w, "refresh failed", http.StatusInternalServerError)
		return
	}

	u, err := h.users.GetByID(r.Context(), rt.UserID)
	if err != nil || !u.IsActive {
		if err != nil && !errors.Is(err, users.ErrNotFound) {
			h.logger.Error("refresh user lookup failed", "error", err)
			http.Error(w, "refresh failed", http.StatusInternalServerError)
			return
		}
		http.Error(w, ErrBadToken.Error(), http.StatusUnauthorized)
		return
	}

	if err := h.tokens.Revoke(r.Context(), rt.ID); err != nil {
		h.logger.Error("refresh rotation failed", "error", err)
		http.Error(w, "refresh failed", http.StatusInternalServerError)
		return
	}
	resp, err := h.issueTokens(r, u)
	if err != nil {
		h.logger.Error("token issue failed", "error", err, "user_id", u.ID)
		http.Error(w, "refresh failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Logout handles POST /auth/logout. It runs behind RequireAdmin and revokes
// every live refresh token for the caller.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if err := h.tokens.RevokeAllForUser(r.Context(), claims.UserID); err != nil {
		h.logger.Error("logout failed", "error", err, "user_id", claims.UserID)
		http.Error(w, "logout failed", http.StatusInternalServerError)
		return
	}
	h.logger.Info("admin logout", "user_id", claims.UserID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) issueTokens(r *http.Request, u *users.User) (*tokenResponse, error) {
	access, err := MakeAccessToken(u.ID, u.Email, string(u.Role), h.secret, h.accessTTL)
	if err != nil {
		return nil, err
	}
	raw, hash, err := GenerateRefreshToken()
	if err != nil {
		return nil, err
	}
	if err := h.tokens.Save(r.Context(), u.ID, hash, time.Now().Add(h.refreshTTL)); err != nil {
		return nil, err
	}
	return &tokenResponse{
		AccessToken:  access,
		RefreshToken: raw,
		ExpiresIn:    int64(h.accessTTL.Seconds()),
		User:         u,
	}, nil
}

func (h *Handler) rejectLogin(w http.ResponseWriter, email string) {
	h.logger.Info("login rejected", "email", email)
	http.Error(w, ErrBadCredentials.Error(), http.StatusUnauthorized)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
