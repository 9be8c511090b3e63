package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lhclegal/lhc-backend/internal/middleware"
)

// SetupRoutes mounts the auth API. session guards the protected routes,
// normally middleware.SessionMiddleware.
func SetupRoutes(h *Handler, session func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Post("/signup", h.Signup)
	r.Post("/login", h.Login)
	r.Post("/refresh", h.Refresh)
	r.Post("/logout", h.Logout)

	r.Group(func(r chi.Router) {
		r.Use(session)
		r.Use(middleware.CSRFMiddleware())

		r.Get("/profile", h.Profile)
	})

	return r
}
