package account

import (
	"errors"
	"net/http"

	"github.com/lhclegal/lhc-backend/internal/apperr"
	"github.com/lhclegal/lhc-backend/internal/users"
	"github.com/lhclegal/lhc-backend/internal/utils"
)

// UpdateProfile changes name, last name and optionally email after checking
// the current password.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var req updateProfileRequest
	_ = utils.DecodeJSON(w, r, &req)
	req.normalize()
	if err := req.Validate(); err != nil {
		apperr.Write(w, err)
		return
	}

	if !user.CheckPassword(req.CurrentPassword) {
		h.Metrics.AuthEvent("update_profile", "failure")
		apperr.Write(w, apperr.Unauthorized("La contraseña actual no es válida"))
		return
	}

	ctx := r.Context()
	if req.Email != "" && req.Email != user.Email {
		taken, err := h.Users.EmailTaken(ctx, req.Email, user.ID)
		if err != nil {
			h.fail(w, "update profile lookup failed", err)
			return
		}
		if taken {
			apperr.Write(w, apperr.Conflict("El email ya está en uso"))
			return
		}
		user.Email = req.Email
	}
	user.Username = req.Name
	user.LastName = req.LastName

	err := h.Users.Save(ctx, user)
	if errors.Is(err, users.ErrDuplicate) {
		apperr.Write(w, apperr.Conflict("El email ya está en uso"))
		return
	}
	if err != nil {
		h.fail(w, "update profile save failed", err)
		return
	}

	h.Metrics.AuthEvent("update_profile", "success")
	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"msg":  "Perfil actualizado correctamente",
		"user": user.Serialize(true),
	})
}

// ChangePassword replaces the password of the logged-in user. When session
// revocation is on, the caller gets fresh cookies so only other sessions
// are cut off.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var req changePasswordRequest
	_ = utils.DecodeJSON(w, r, &req)
	if blank(req.CurrentPassword) || blank(req.NewPassword) {
		apperr.Write(w, apperr.BadRequest("Contraseña actual y nueva son obligatorias"))
		return
	}

	if !user.CheckPassword(req.CurrentPassword) {
		h.Metrics.AuthEvent("change_password", "failure")
		apperr.Write(w, apperr.Unauthorized("La contraseña actual no es válida"))
		return
	}

	if err := h.Policy.Validate(req.NewPassword); err != nil {
		apperr.Write(w, apperr.Validation(map[string]string{"new_password": err.Error()}))
		return
	}

	if err := h.setPassword(r, user, req.NewPassword); err != nil {
		h.fail(w, "change password save failed", err)
		return
	}

	resp := map[string]any{"msg": "Contraseña actualizada correctamente"}
	if h.RevokeOnPasswordChange {
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
		resp["csrf_token"] = csrf
	}

	h.Metrics.AuthEvent("change_password", "success")
	h.Log.Info("password changed", "user_id", user.ID)
	utils.WriteJSON(w, http.StatusOK, resp)
}

// DeleteAccount removes the logged-in user after a password check and ends
// the session.
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var req deleteAccountRequest
	_ = utils.DecodeJSON(w, r, &req)
	if blank(req.Password) {
		apperr.Write(w, apperr.BadRequest("Contraseña obligatoria"))
		return
	}
	if !user.CheckPassword(req.Password) {
		h.Metrics.AuthEvent("delete_account", "failure")
		apperr.Write(w, apperr.Unauthorized("La contraseña no es válida"))
		return
	}

	err := h.Users.Delete(r.Context(), user.ID)
	if errors.Is(err, users.ErrNotFound) {
		apperr.Write(w, apperr.NotFound(userNotFound))
		return
	}
	if err != nil {
		h.fail(w, "delete account failed", err)
		return
	}

	h.Sessions.ClearCookies(w)
	h.Metrics.AuthEvent("delete_account", "success")
	h.Log.Info("account deleted", "user_id", user.ID)
	utils.Msg(w, http.StatusOK, "Cuenta eliminada correctamente")
}
