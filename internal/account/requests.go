package account

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/lhclegal/lhc-backend/internal/apperr"
	"github.com/lhclegal/lhc-backend/internal/users"
)

type passwordResetRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type emailChangeRequest struct {
	NewEmail string `json:"new_email"`
}

func (r emailChangeRequest) Validate() error {
	err := validation.ValidateStruct(&r,
		validation.Field(&r.NewEmail, users.EmailRules()...),
	)
	return apperr.FromValidation(err)
}

// emailChange is the payload of an email-change token.
type emailChange struct {
	UserID   string `json:"user_id"`
	NewEmail string `json:"new_email"`
}

type updateProfileRequest struct {
	Name            string `json:"name"`
	LastName        string `json:"last_name"`
	Email           string `json:"email"`
	CurrentPassword string `json:"current_password"`
}

func (r *updateProfileRequest) normalize() {
	r.Name = users.NormalizeName(r.Name)
	r.LastName = users.NormalizeName(r.LastName)
	r.Email = users.NormalizeEmail(r.Email)
}

func (r updateProfileRequest) Validate() error {
	if r.Name == "" || r.CurrentPassword == "" {
		return apperr.BadRequest("Nombre y contraseña son obligatorios")
	}
	err := validation.ValidateStruct(&r,
		validation.Field(&r.Name, users.UsernameRules()...),
		validation.Field(&r.LastName, users.LastNameRules()...),
		validation.Field(&r.Email,
			validation.RuneLength(0, users.EmailMaxLength),
			is.Email.Error("Email inválido."),
		),
	)
	return apperr.FromValidation(err)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type deleteAccountRequest struct {
	Password string `json:"password"`
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }
