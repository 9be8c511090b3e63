package users

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lhclegal/lhc-backend/internal/apperr"
	"github.com/lhclegal/lhc-backend/internal/logger"
	"github.com/lhclegal/lhc-backend/internal/utils"
)

// Handler serves the admin users API.
type Handler struct {
	Store Store
	Log   logger.Logger
}

// ListUsers returns every registered user, newest first.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	list, err := h.Store.List(r.Context())
	if err != nil {
		h.Log.Error("list users failed", "err", err)
		apperr.Write(w, err)
		return
	}

	out := make([]Public, 0, len(list))
	for i := range list {
		out = append(out, list[i].Serialize(true))
	}
	utils.WriteJSON(w, http.StatusOK, out)
}

// GetUser returns a single user by id.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.Store.FindByID(r.Context(), chi.URLParam(r, "user_id"))
	if errors.Is(err, ErrNotFound) {
		apperr.Write(w, apperr.NotFound("Usuario no encontrado"))
		return
	}
	if err != nil {
		h.Log.Error("get user failed", "err", err)
		apperr.Write(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, u.Serialize(true))
}
