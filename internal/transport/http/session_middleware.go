package httptransport

import (
	"context"
	"net/http"
	"time"

	sessionmodels "authhub/internal/session/models"
)

// SessionCookie is the cookie carrying the session identifier.
const SessionCookie = "authhub_session"

type contextKeySession struct{}

// GetSession retrieves the resolved session from the request context. Nil
// outside RequireSession-protected routes.
func GetSession(ctx context.Context) *sessionmodels.Session {
	session, ok := ctx.Value(contextKeySession{}).(*sessionmodels.Session)
	if !ok {
		return nil
	}
	return session
}

// RequireSession resolves the session cookie and rejects requests without a
// live session. Expired and unknown cookies get the same 401; the cookie is
// cleared either way so clients stop sending it.
func (h *Handler) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookie)
		if err != nil {
			writeErrorStatus(w, http.StatusUnauthorized, "authentication required")
			return
		}

		session, err := h.sessions.Get(r.Context(), cookie.Value)
		if err != nil {
			writeError(w, err)
			return
		}
		if session == nil {
			h.clearSessionCookie(w)
			writeErrorStatus(w, http.StatusUnauthorized, "authentication required")
			return
		}

		ctx := context.WithValue(r.Context(), contextKeySession{}, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, sessionID string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sessionID,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
