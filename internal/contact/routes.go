package contact

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lhclegal/lhc-backend/internal/middleware"
)

// SetupRoutes mounts the public contact form. identity attaches the caller
// when logged in, normally middleware.OptionalSession.
func SetupRoutes(h *Handler, identity func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.With(identity).Post("/", h.Submit)
	return r
}

// SetupAdminRoutes mounts the leads admin API behind session and the admin
// role check.
func SetupAdminRoutes(h *Handler, session func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(session)
		r.Use(middleware.AdminMiddleware)
		r.Use(middleware.CSRFMiddleware(middleware.MutatingMethods...))

		r.Get("/", h.List)
		r.Patch("/{message_id}/revoke", h.Revoke)
	})

	return r
}
