package httptransport

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	authservice "authhub/internal/auth/service"
	"authhub/internal/device"
	identityservice "authhub/internal/identity/service"
	"authhub/internal/provider"
	sessionservice "authhub/internal/session/service"
)

// Handler is the thin HTTP layer. It delegates to the domain services and
// keeps transport concerns — cookies, status codes, JSON shapes — out of
// them.
type Handler struct {
	auth          *authservice.Service
	identity      *identityservice.Service
	sessions      *sessionservice.Manager
	sessionTTL    time.Duration
	secureCookies bool
	logger        *slog.Logger
}

// NewHandler constructs the HTTP handler set.
func NewHandler(auth *authservice.Service, identity *identityservice.Service, sessions *sessionservice.Manager, sessionTTL time.Duration, secureCookies bool, logger *slog.Logger) *Handler {
	return &Handler{
		auth:          auth,
		identity:      identity,
		sessions:      sessions,
		sessionTTL:    sessionTTL,
		secureCookies: secureCookies,
		logger:        logger,
	}
}

// handleOAuthStart redirects the browser to the provider's consent page.
func (h *Handler) handleOAuthStart(w http.ResponseWriter, r *http.Request) {
	providerName := chi.URLParam(r, "provider")

	consentURL, err := h.auth.StartAuthentication(r.Context(), providerName)
	if err != nil {
		if errors.Is(err, authservice.ErrUnknownProvider) {
			writeErrorStatus(w, http.StatusNotFound, "unknown provider")
			return
		}
		writeError(w, err)
		return
	}
	http.Redirect(w, r, consentURL, http.StatusFound)
}

// handleOAuthCallback completes the flow and logs the user in.
func (h *Handler) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	providerName := chi.URLParam(r, "provider")
	query := r.URL.Query()

	if denied := query.Get("error"); denied != "" {
		// The user backed out at the consent screen; nothing to clean up.
		writeErrorStatus(w, http.StatusUnauthorized, "authentication cancelled")
		return
	}
	code := query.Get("code")
	state := query.Get("state")
	if code == "" || state == "" {
		writeErrorStatus(w, http.StatusBadRequest, "code and state are required")
		return
	}

	result, err := h.auth.HandleCallback(r.Context(), providerName, code, state, device.ParseUserAgent(r.UserAgent()))
	if err != nil {
		switch {
		case errors.Is(err, authservice.ErrUnknownProvider):
			writeErrorStatus(w, http.StatusNotFound, "unknown provider")
		case errors.Is(err, authservice.ErrInvalidState):
			writeErrorStatus(w, http.StatusForbidden, "invalid state parameter")
		case errors.Is(err, provider.ErrExchange), errors.Is(err, provider.ErrProfile):
			writeErrorStatus(w, http.StatusBadGateway, "provider error")
		default:
			writeError(w, err)
		}
		return
	}

	h.setSessionCookie(w, result.SessionID, time.Now().Add(h.sessionTTL))
	http.Redirect(w, r, "/", http.StatusFound)
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}

// handleRegister creates a local account and logs it in.
func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	user, err := h.identity.RegisterLocal(r.Context(), req.Email, req.Password, req.Username)
	if err != nil {
		writeError(w, err)
		return
	}

	sessionID, err := h.sessions.Create(r.Context(), user.User, device.ParseUserAgent(r.UserAgent()))
	if err != nil {
		writeError(w, err)
		return
	}

	h.setSessionCookie(w, sessionID, time.Now().Add(h.sessionTTL))
	writeJSON(w, http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleLogin verifies a password credential and issues a session. Unknown
// email and wrong password produce the identical response.
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	user, err := h.identity.LoginLocal(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	if user == nil {
		writeErrorStatus(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	sessionID, err := h.sessions.Create(r.Context(), user.User, device.ParseUserAgent(r.UserAgent()))
	if err != nil {
		writeError(w, err)
		return
	}

	h.setSessionCookie(w, sessionID, time.Now().Add(h.sessionTTL))
	writeJSON(w, http.StatusOK, user)
}

// handleLogout destroys the current session.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	session := GetSession(r.Context())
	if _, err := h.sessions.Destroy(r.Context(), session.ID); err != nil {
		writeError(w, err)
		return
	}
	h.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// handleLogoutAll destroys every session of the current user, including this
// one.
func (h *Handler) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	session := GetSession(r.Context())
	count, err := h.sessions.DestroyAllForUser(r.Context(), session.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	h.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]int{"destroyed": count})
}
