package contact

import (
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/lhclegal/lhc-backend/internal/apperr"
	"github.com/lhclegal/lhc-backend/internal/users"
)

var phoneCharset = regexp.MustCompile(`^\+?[0-9 ()-]{6,}$`)

type submitRequest struct {
	Name     string `json:"name"`
	LastName string `json:"last_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Subject  string `json:"subject"`
	Message  string `json:"message"`
}

func (r *submitRequest) empty() bool {
	return *r == submitRequest{}
}

func (r *submitRequest) normalize() {
	r.Name = users.NormalizeName(r.Name)
	r.LastName = users.NormalizeName(r.LastName)
	r.Email = users.NormalizeEmail(r.Email)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Subject = strings.TrimSpace(r.Subject)
	r.Message = strings.TrimSpace(r.Message)
}

// fillFrom completes missing sender fields from the authenticated account.
func (r *submitRequest) fillFrom(u *users.User) {
	if r.Name == "" {
		r.Name = u.Username
	}
	if r.LastName == "" {
		r.LastName = u.LastName
	}
	if r.Email == "" {
		r.Email = u.Email
	}
}

func (r submitRequest) Validate() error {
	err := validation.ValidateStruct(&r,
		validation.Field(&r.Name,
			validation.Required.Error("El nombre es obligatorio."),
			validation.RuneLength(2, 100).Error("El nombre debe tener entre 2 y 100 caracteres."),
		),
		validation.Field(&r.LastName,
			validation.RuneLength(2, 120).Error("Los apellidos deben tener entre 2 y 120 caracteres."),
		),
		validation.Field(&r.Email, users.EmailRules()...),
		validation.Field(&r.Phone,
			validation.RuneLength(0, 30).Error("El teléfono no puede superar los 30 caracteres."),
			validation.Match(phoneCharset).Error("Teléfono inválido."),
		),
		validation.Field(&r.Subject,
			validation.Required.Error("El asunto es obligatorio."),
			validation.RuneLength(4, 120).Error("El asunto debe tener entre 4 y 120 caracteres."),
		),
		validation.Field(&r.Message,
			validation.Required.Error("El mensaje es obligatorio."),
			validation.RuneLength(10, 1000).Error("El mensaje debe tener entre 10 y 1000 caracteres."),
		),
	)
	return apperr.FromValidation(err)
}

func (r submitRequest) fullName() string {
	return strings.TrimSpace(r.Name + " " + r.LastName)
}
