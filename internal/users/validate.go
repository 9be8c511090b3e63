package users

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"golang.org/x/text/unicode/norm"
)

var nameCharset = regexp.MustCompile(`^[\p{L}\p{M}\s'-]+$`)

const EmailMaxLength = 120

// NormalizeName applies NFC, trims and collapses inner whitespace.
func NormalizeName(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

// UsernameRules validates the display name (2 to 30 letters).
func UsernameRules() []validation.Rule {
	return []validation.Rule{
		validation.Required.Error("El nombre es obligatorio."),
		validation.RuneLength(2, 30).Error("El nombre debe tener entre 2 y 30 caracteres."),
		validation.Match(nameCharset).Error("El nombre solo puede contener letras, espacios, guiones y apóstrofes."),
	}
}

// LastNameRules validates the optional last name.
func LastNameRules() []validation.Rule {
	return []validation.Rule{
		validation.RuneLength(2, 50).Error("Los apellidos deben tener entre 2 y 50 caracteres."),
		validation.Match(nameCharset).Error("Los apellidos solo pueden contener letras, espacios, guiones y apóstrofes."),
	}
}

func EmailRules() []validation.Rule {
	return []validation.Rule{
		validation.Required.Error("El email es obligatorio."),
		validation.RuneLength(0, EmailMaxLength).Error(fmt.Sprintf("El email no puede superar los %d caracteres.", EmailMaxLength)),
		is.Email.Error("Email inválido."),
	}
}

// PasswordPolicy describes what a new password must satisfy.
type PasswordPolicy struct {
	MinLength int
	// Complexity requires upper and lower case letters, a digit and a
	// special character.
	Complexity bool
}

func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{MinLength: 6, Complexity: true}
}

var errWeakPassword = errors.New("Debe incluir mayúsculas, minúsculas, un número y un carácter especial.")

func (p PasswordPolicy) Rules() []validation.Rule {
	rules := []validation.Rule{
		validation.Required.Error("La contraseña es obligatoria."),
		validation.RuneLength(p.MinLength, 0).Error(fmt.Sprintf("La contraseña debe tener al menos %d caracteres.", p.MinLength)),
	}
	if p.Complexity {
		rules = append(rules, validation.By(complexPassword))
	}
	return rules
}

// Validate checks a single password against the policy.
func (p PasswordPolicy) Validate(password string) error {
	return validation.Validate(password, p.Rules()...)
}

func complexPassword(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	var upper, lower, digit, special bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case !unicode.IsLetter(r):
			special = true
		}
	}
	if upper && lower && digit && special {
		return nil
	}
	return errWeakPassword
}
