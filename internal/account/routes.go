package account

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lhclegal/lhc-backend/internal/middleware"
)

// SetupRoutes mounts the account API. contact, when not nil, is served
// under /contact.
func SetupRoutes(h *Handler, session func(http.Handler) http.Handler, contact http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Post("/request-password-reset", h.RequestPasswordReset)
	r.Post("/reset-password", h.ResetPassword)
	r.Get("/confirm-email", h.ConfirmEmail)

	if contact != nil {
		r.Mount("/contact", contact)
	}

	r.Group(func(r chi.Router) {
		r.Use(session)
		r.Use(middleware.CSRFMiddleware(middleware.MutatingMethods...))

		r.Post("/request-email-change", h.RequestEmailChange)
		r.Put("/update-profile", h.UpdateProfile)
		r.Put("/change-password", h.ChangePassword)
		r.Delete("/", h.DeleteAccount)
	})

	return r
}
