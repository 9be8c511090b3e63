package account

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lhclegal/lhc-backend/internal/apperr"
	"github.com/lhclegal/lhc-backend/internal/logger"
	"github.com/lhclegal/lhc-backend/internal/mail"
	"github.com/lhclegal/lhc-backend/internal/metrics"
	"github.com/lhclegal/lhc-backend/internal/tokens"
	"github.com/lhclegal/lhc-backend/internal/users"
	"github.com/lhclegal/lhc-backend/internal/utils"
)

const (
	resetRequested = "Si existe una cuenta con ese email, recibirás un enlace"
	userNotFound   = "Usuario no encontrado"
)

// Handler serves password recovery, email change and profile management.
type Handler struct {
	Users    users.Store
	Signer   *tokens.Signer
	Sessions *tokens.SessionService
	Mailer   mail.Mailer
	Policy   users.PasswordPolicy

	// RecoveryMaxAge bounds the age of password-reset and email-change
	// tokens.
	RecoveryMaxAge time.Duration
	FrontendURL    string
	PublicAPIURL   string
	// RevokeOnPasswordChange moves the user's session watermark whenever the
	// password changes.
	RevokeOnPasswordChange bool

	Log     logger.Logger
	Metrics *metrics.Metrics
	Now     func() time.Time
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// RequestPasswordReset mails a reset link when the email belongs to an
// account. The response never reveals whether it does.
func (h *Handler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req passwordResetRequest
	_ = utils.DecodeJSON(w, r, &req)
	email := users.NormalizeEmail(req.Email)
	if email == "" {
		apperr.Write(w, apperr.BadRequest("Email obligatorio"))
		return
	}

	ctx := r.Context()
	user, err := h.Users.FindByEmail(ctx, email)
	if errors.Is(err, users.ErrNotFound) {
		h.Metrics.AuthEvent("password_reset_request", "unknown")
		utils.Msg(w, http.StatusOK, resetRequested)
		return
	}
	if err != nil {
		h.fail(w, "password reset lookup failed", err)
		return
	}

	tok, err := h.Signer.Issue(user.Email, tokens.NamespacePasswordReset)
	if err != nil {
		h.fail(w, "issue reset token failed", err)
		return
	}

	link := strings.TrimRight(h.FrontendURL, "/") + "/reset-password?token=" + url.QueryEscape(tok)
	if err := h.Mailer.Send(ctx, mail.PasswordReset(user.Email, user.Username, link)); err != nil {
		h.Log.Warn("password reset email failed", "user_id", user.ID, "err", err)
	}

	h.Metrics.AuthEvent("password_reset_request", "success")
	utils.Msg(w, http.StatusOK, resetRequested)
}

// ResetPassword sets a new password from a password-reset token.
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	_ = utils.DecodeJSON(w, r, &req)
	if blank(req.Token) || blank(req.NewPassword) {
		apperr.Write(w, apperr.BadRequest("Token y nueva contraseña son obligatorios"))
		return
	}

	var email string
	if err := h.Signer.Verify(strings.TrimSpace(req.Token), tokens.NamespacePasswordReset, h.RecoveryMaxAge, &email); err != nil {
		h.Metrics.AuthEvent("password_reset", "invalid_token")
		apperr.Write(w, tokenError(err))
		return
	}

	if err := h.Policy.Validate(req.NewPassword); err != nil {
		apperr.Write(w, apperr.Validation(map[string]string{"new_password": err.Error()}))
		return
	}

	ctx := r.Context()
	user, err := h.Users.FindByEmail(ctx, email)
	if errors.Is(err, users.ErrNotFound) {
		apperr.Write(w, apperr.NotFound(userNotFound))
		return
	}
	if err != nil {
		h.fail(w, "password reset lookup failed", err)
		return
	}

	if err := h.setPassword(r, user, req.NewPassword); err != nil {
		h.fail(w, "password reset save failed", err)
		return
	}

	h.Metrics.AuthEvent("password_reset", "success")
	h.Log.Info("password reset", "user_id", user.ID)
	utils.Msg(w, http.StatusOK, "Contraseña actualizada correctamente")
}

// RequestEmailChange mails a confirmation link to the proposed address.
func (h *Handler) RequestEmailChange(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var req emailChangeRequest
	_ = utils.DecodeJSON(w, r, &req)
	req.NewEmail = users.NormalizeEmail(req.NewEmail)
	if req.NewEmail == "" {
		apperr.Write(w, apperr.BadRequest("Nuevo email obligatorio"))
		return
	}
	if err := req.Validate(); err != nil {
		apperr.Write(w, err)
		return
	}
	if req.NewEmail == user.Email {
		apperr.Write(w, apperr.BadRequest("El nuevo email coincide con el actual"))
		return
	}

	ctx := r.Context()
	taken, err := h.Users.EmailTaken(ctx, req.NewEmail, user.ID)
	if err != nil {
		h.fail(w, "email change lookup failed", err)
		return
	}
	if taken {
		apperr.Write(w, apperr.Conflict("El email ya está registrado"))
		return
	}

	tok, err := h.Signer.Issue(emailChange{UserID: user.ID, NewEmail: req.NewEmail}, tokens.NamespaceEmailChange)
	if err != nil {
		h.fail(w, "issue email change token failed", err)
		return
	}

	link := strings.TrimRight(h.PublicAPIURL, "/") + "/api/account/confirm-email?token=" + url.QueryEscape(tok)
	sent := true
	if err := h.Mailer.Send(ctx, mail.EmailChange(req.NewEmail, user.Username, link)); err != nil {
		sent = false
		h.Log.Warn("email change email failed", "user_id", user.ID, "err", err)
	}

	h.Metrics.AuthEvent("email_change_request", "success")
	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"msg":        "Correo de confirmación enviado",
		"email_sent": sent,
	})
}

// ConfirmEmail applies an email change from the token in the query string.
func (h *Handler) ConfirmEmail(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("token"))
	if raw == "" {
		apperr.Write(w, apperr.BadRequest("Token obligatorio"))
		return
	}

	var change emailChange
	if err := h.Signer.Verify(raw, tokens.NamespaceEmailChange, h.RecoveryMaxAge, &change); err != nil {
		h.Metrics.AuthEvent("email_change", "invalid_token")
		apperr.Write(w, tokenError(err))
		return
	}

	ctx := r.Context()
	user, err := h.Users.FindByID(ctx, change.UserID)
	if errors.Is(err, users.ErrNotFound) {
		apperr.Write(w, apperr.NotFound(userNotFound))
		return
	}
	if err != nil {
		h.fail(w, "email change lookup failed", err)
		return
	}

	// the address may have been registered since the link was sent
	taken, err := h.Users.EmailTaken(ctx, change.NewEmail, user.ID)
	if err != nil {
		h.fail(w, "email change lookup failed", err)
		return
	}
	if taken {
		apperr.Write(w, apperr.Conflict("El email ya está registrado"))
		return
	}

	user.Email = change.NewEmail
	err = h.Users.Save(ctx, user)
	if errors.Is(err, users.ErrDuplicate) {
		apperr.Write(w, apperr.Conflict("El email ya está registrado"))
		return
	}
	if err != nil {
		h.fail(w, "email change save failed", err)
		return
	}

	h.Metrics.AuthEvent("email_change", "success")
	h.Log.Info("email changed", "user_id", user.ID)
	utils.Msg(w, http.StatusOK, "Email actualizado correctamente")
}

// setPassword hashes and stores password, moving the revocation watermark
// when enabled.
func (h *Handler) setPassword(r *http.Request, user *users.User, password string) error {
	if err := user.SetPassword(password); err != nil {
		return err
	}
	if h.RevokeOnPasswordChange {
		user.StampRevocation(h.now())
	}
	return h.Users.Save(r.Context(), user)
}

// currentUser loads the authenticated user, writing 401/404 when it cannot.
func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) (*users.User, bool) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		apperr.Write(w, apperr.Unauthorized("Token de acceso requerido"))
		return nil, false
	}
	user, err := h.Users.FindByID(r.Context(), userID)
	if errors.Is(err, users.ErrNotFound) {
		apperr.Write(w, apperr.NotFound(userNotFound))
		return nil, false
	}
	if err != nil {
		h.fail(w, "user lookup failed", err)
		return nil, false
	}
	return user, true
}

func tokenError(err error) error {
	if errors.Is(err, tokens.ErrExpired) {
		return apperr.BadRequest("El token ha expirado")
	}
	return apperr.BadRequest("Token inválido")
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	h.Log.Error(msg, "err", err)
	apperr.Write(w, apperr.Internal(err))
}
