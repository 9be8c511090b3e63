package auth

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/lhclegal/lhc-backend/internal/apperr"
	"github.com/lhclegal/lhc-backend/internal/users"
)

type signupRequest struct {
	Username string `json:"username"`
	LastName string `json:"last_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *signupRequest) normalize() {
	r.Username = users.NormalizeName(r.Username)
	r.LastName = users.NormalizeName(r.LastName)
	r.Email = users.NormalizeEmail(r.Email)
}

func (r signupRequest) Validate(policy users.PasswordPolicy) error {
	err := validation.ValidateStruct(&r,
		validation.Field(&r.Username, users.UsernameRules()...),
		validation.Field(&r.LastName, users.LastNameRules()...),
		validation.Field(&r.Email, users.EmailRules()...),
		validation.Field(&r.Password, policy.Rules()...),
	)
	return apperr.FromValidation(err)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *loginRequest) normalize() {
	r.Email = users.NormalizeEmail(r.Email)
}

func (r loginRequest) Validate() error {
	if r.Email == "" || strings.TrimSpace(r.Password) == "" {
		return apperr.BadRequest("Email y contraseña son obligatorios")
	}
	return nil
}
