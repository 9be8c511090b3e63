package users

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// SetupRoutes mounts the admin users API. guards are applied to every route,
// normally the session and admin middleware.
func SetupRoutes(h *Handler, guards ...func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(guards...)

		r.Get("/", h.ListUsers)
		r.Get("/{user_id}", h.GetUser)
	})

	return r
}
