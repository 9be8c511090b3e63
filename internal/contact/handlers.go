package contact

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lhclegal/lhc-backend/internal/apperr"
	"github.com/lhclegal/lhc-backend/internal/logger"
	"github.com/lhclegal/lhc-backend/internal/mail"
	"github.com/lhclegal/lhc-backend/internal/metrics"
	"github.com/lhclegal/lhc-backend/internal/users"
	"github.com/lhclegal/lhc-backend/internal/utils"
)

// Handler serves the public contact form and the leads admin API.
type Handler struct {
	Store Store
	Users users.Store
	// Mailer must deliver synchronously: a failed send is reported to the
	// caller as a 500.
	Mailer   mail.Mailer
	Receiver string

	Log     logger.Logger
	Metrics *metrics.Metrics
}

// Submit forwards a contact form to the firm's inbox and stores it as a lead.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil || req.empty() {
		apperr.Write(w, apperr.BadRequest("Datos requeridos"))
		return
	}
	req.normalize()

	ctx := r.Context()
	userID, authenticated := utils.GetUserIDFromContext(ctx)
	if authenticated {
		u, err := h.Users.FindByID(ctx, userID)
		switch {
		case err == nil:
			req.fillFrom(u)
		case errors.Is(err, users.ErrNotFound):
			// deleted account with a live token: treat as anonymous
			authenticated = false
		default:
			h.Log.Error("contact user lookup failed", "err", err)
			apperr.Write(w, apperr.Internal(err))
			return
		}
	}

	if err := req.Validate(); err != nil {
		apperr.Write(w, err)
		return
	}

	notice := mail.ContactRequest{
		Name:     req.Name,
		LastName: req.LastName,
		Email:    req.Email,
		Phone:    req.Phone,
		Subject:  req.Subject,
		Message:  req.Message,
	}
	if authenticated {
		notice.UserID = userID
	}

	err := h.Mailer.Send(ctx, mail.Contact(h.Receiver, notice))
	h.Metrics.Email("contact", err)
	if err != nil {
		h.Log.Error("contact email failed", "err", err)
		utils.Msg(w, http.StatusInternalServerError, "No se pudo enviar el mensaje")
		return
	}

	lead := &Message{
		FullName:        req.fullName(),
		Email:           req.Email,
		Phone:           req.Phone,
		Subject:         req.Subject,
		Body:            req.Message,
		PrivacyAccepted: true,
		Source:          SourceForm,
	}
	if authenticated {
		lead.UserID = &userID
	}
	if err := h.Store.Save(ctx, lead); err != nil {
		h.Log.Error("save contact lead failed", "err", err)
	}

	utils.Msg(w, http.StatusOK, "Mensaje enviado correctamente")
}

// List returns stored leads filtered by the email, status, sort and order
// query parameters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := NewFilter(q.Get("email"), q.Get("status"), q.Get("sort"), q.Get("order"))

	msgs, err := h.Store.List(r.Context(), f)
	if err != nil {
		h.Log.Error("list contact messages failed", "err", err)
		apperr.Write(w, apperr.Internal(err))
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"messages": msgs,
		"total":    len(msgs),
		"filters":  f,
	})
}

// Revoke withdraws the privacy consent of a lead.
func (h *Handler) Revoke(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "message_id")

	err := h.Store.Revoke(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		apperr.Write(w, apperr.NotFound("Mensaje no encontrado o ya revocado"))
		return
	}
	if err != nil {
		h.Log.Error("revoke contact message failed", "err", err, "message_id", id)
		apperr.Write(w, apperr.Internal(err))
		return
	}

	h.Log.Info("contact consent revoked", "message_id", id)
	utils.Msg(w, http.StatusOK, "Consentimiento revocado correctamente")
}
