package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter mounts every route under /api/v1.
func NewRouter(h *UserHandler, logger *slog.Logger, timeout time.Duration) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/healthcheck", h.HealthCheck)

		r.Route("/users", func(r chi.Router) {
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
			r.Post("/refresh-token", h.RefreshToken)

			r.Group(func(r chi.Router) {
				r.Use(h.VerifyJWT)
				r.Post("/logout", h.Logout)
				r.Post("/change-password", h.ChangePassword)
				r.Get("/current-user", h.CurrentUser)
				r.Get("/c/{username}", h.ChannelProfile)
				r.Get("/history", h.WatchHistory)
			})
		})
	})

	return r
}
