package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"authhub/internal/platform/middleware"
)

// NewRouter wires all public endpoints. Routes under /profile and the logout
// endpoints require a valid session cookie.
func NewRouter(h *Handler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))

	r.Get("/healthz", handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.handleRegister)
		r.Post("/login", h.handleLogin)
		r.Get("/{provider}", h.handleOAuthStart)
		r.Get("/{provider}/callback", h.handleOAuthCallback)

		r.Group(func(r chi.Router) {
			r.Use(h.RequireSession)
			r.Post("/logout", h.handleLogout)
			r.Post("/logout-all", h.handleLogoutAll)
		})
	})

	r.Route("/profile", func(r chi.Router) {
		r.Use(h.RequireSession)
		r.Get("/", h.handleGetProfile)
		r.Put("/", h.handleUpdateProfile)
		r.Put("/preferences", h.handleUpdatePreferences)
		r.Get("/sessions", h.handleListSessions)
	})

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
