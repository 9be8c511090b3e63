package auth

import (
	"errors"
	"net/http"

	"github.com/lhclegal/lhc-backend/internal/apperr"
	"github.com/lhclegal/lhc-backend/internal/logger"
	"github.com/lhclegal/lhc-backend/internal/metrics"
	"github.com/lhclegal/lhc-backend/internal/middleware"
	"github.com/lhclegal/lhc-backend/internal/tokens"
	"github.com/lhclegal/lhc-backend/internal/users"
	"github.com/lhclegal/lhc-backend/internal/utils"
)

const invalidCredentials = "Credenciales inválidas"

// Handler serves signup, login, refresh, logout and profile.
type Handler struct {
	Users    users.Store
	Sessions *tokens.SessionService
	Policy   users.PasswordPolicy

	// UniqueUsernames rejects signups reusing a registered username.
	UniqueUsernames bool
	// Revocation, when set, rejects refresh tokens older than the user's
	// watermark.
	Revocation middleware.RevocationChecker

	Log     logger.Logger
	Metrics *metrics.Metrics
}

// Signup registers a new user.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		apperr.Write(w, apperr.BadRequest("No se recibieron datos válidos"))
		return
	}

	req.normalize()
	if err := req.Validate(h.Policy); err != nil {
		h.Metrics.AuthEvent("signup", "invalid")
		apperr.Write(w, err)
		return
	}

	ctx := r.Context()

	// Check if email is taken
	taken, err := h.Users.EmailTaken(ctx, req.Email, "")
	if err != nil {
		h.fail(w, "signup lookup failed", err)
		return
	}
	if taken {
		h.Metrics.AuthEvent("signup", "conflict")
		apperr.Write(w, apperr.Conflict("El email ya está registrado"))
		return
	}

	if h.UniqueUsernames {
		_, err := h.Users.FindByUsername(ctx, req.Username)
		if err == nil {
			h.Metrics.AuthEvent("signup", "conflict")
			apperr.Write(w, apperr.Conflict("El nombre de usuario ya existe"))
			return
		}
		if !errors.Is(err, users.ErrNotFound) {
			h.fail(w, "signup lookup failed", err)
			return
		}
	}

	user := &users.User{
		Username: req.Username,
		LastName: req.LastName,
		Email:    req.Email,
	}
	if err := user.SetPassword(req.Password); err != nil {
		h.fail(w, "hash password failed", err)
		return
	}

	err = h.Users.Create(ctx, user)
	if errors.Is(err, users.ErrDuplicate) {
		apperr.Write(w, apperr.Conflict("El email ya está registrado"))
		return
	}
	if err != nil {
		h.fail(w, "create user failed", err)
		return
	}

	h.Metrics.AuthEvent("signup", "success")
	h.Log.Info("user registered", "user_id", user.ID)
	utils.WriteJSON(w, http.StatusCreated, map[string]any{
		"msg":  "Usuario registrado correctamente",
		"user": user.Serialize(false),
	})
}

// Login checks credentials and starts a cookie session.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		apperr.Write(w, apperr.BadRequest("Email y contraseña son obligatorios"))
		return
	}
	req.normalize()
	if err := req.Validate(); err != nil {
		apperr.Write(w, err)
		return
	}

	user, err := h.Users.FindByEmail(r.Context(), req.Email)
	if errors.Is(err, users.ErrNotFound) {
		users.BurnPasswordCheck(req.Password)
		h.Metrics.AuthEvent("login", "failure")
		apperr.Write(w, apperr.Unauthorized(invalidCredentials))
		return
	}
	if err != nil {
		h.fail(w, "login lookup failed", err)
		return
	}

	if !user.CheckPassword(req.Password) {
		h.Metrics.AuthEvent("login", "failure")
		apperr.Write(w, apperr.Unauthorized(invalidCredentials))
		return
	}

	access, csrf, err := h.Sessions.IssueAccessToken(user.ID, user.Role())
	if err != nil {
		h.fail(w, "issue access token failed", err)
		return
	}
	refresh, err := h.Sessions.IssueRefreshToken(user.ID)
	if err != nil {
		h.fail(w, "issue refresh token failed", err)
		return
	}

	h.Sessions.SetAccessCookie(w, access)
	h.Sessions.SetRefreshCookie(w, refresh)

	h.Metrics.AuthEvent("login", "success")
	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"msg":        "Inicio de sesión exitoso",
		"user":       user.Serialize(true),
		"csrf_token": csrf,
	})
}

// Refresh issues a new access token from the refresh cookie. The role is
// read from the store, never from the refresh token.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	claims, err := h.Sessions.VerifyRefresh(tokens.RefreshTokenFromRequest(r))
	if errors.Is(err, tokens.ErrExpired) {
		h.Metrics.AuthEvent("refresh", "expired")
		apperr.Write(w, apperr.Unauthorized("El token ha expirado"))
		return
	}
	if err != nil {
		h.Metrics.AuthEvent("refresh", "invalid")
		apperr.Write(w, apperr.Unauthorized("Token inválido"))
		return
	}

	ctx := r.Context()
	user, err := h.Users.FindByID(ctx, claims.Subject)
	if errors.Is(err, users.ErrNotFound) {
		apperr.Write(w, apperr.Unauthorized("Usuario no encontrado"))
		return
	}
	if err != nil {
		h.fail(w, "refresh lookup failed", err)
		return
	}

	if h.Revocation != nil && user.Revoked(claims.Issued()) {
		h.Metrics.AuthEvent("refresh", "revoked")
		apperr.Write(w, apperr.Unauthorized("Sesión revocada"))
		return
	}

	access, csrf, err := h.Sessions.IssueAccessToken(user.ID, user.Role())
	if err != nil {
		h.fail(w, "issue access token failed", err)
		return
	}
	h.Sessions.SetAccessCookie(w, access)

	h.Metrics.AuthEvent("refresh", "success")
	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"msg":        "Token renovado",
		"csrf_token": csrf,
	})
}

// Logout clears both session cookies. It always succeeds.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.Sessions.ClearCookies(w)
	h.Metrics.AuthEvent("logout", "success")
	utils.Msg(w, http.StatusOK, "Sesión cerrada correctamente")
}

// Profile returns the authenticated user.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		apperr.Write(w, apperr.Unauthorized("Token de acceso requerido"))
		return
	}

	user, err := h.Users.FindByID(r.Context(), userID)
	if errors.Is(err, users.ErrNotFound) {
		apperr.Write(w, apperr.NotFound("Usuario no encontrado"))
		return
	}
	if err != nil {
		h.fail(w, "profile lookup failed", err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, user.Serialize(true))
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	h.Log.Error(msg, "err", err)
	apperr.Write(w, apperr.Internal(err))
}
