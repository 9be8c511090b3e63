package webhooks

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func SetupRoutes(h *Handler) http.Handler {
	r := chi.NewRouter()

	// Public routes, authenticated by signature
	r.Post("/forms/contact", h.ContactForm)

	return r
}
