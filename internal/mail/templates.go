package mail

import (
	"bytes"
	"text/template"
)

var (
	passwordResetTmpl = template.Must(template.New("reset").Parse(
		`Hola {{.Name}},

Hemos recibido una solicitud para restablecer tu contraseña.
Para continuar, abre el siguiente enlace (válido durante 1 hora):

{{.Link}}

Si no has solicitado este cambio, ignora este mensaje.

LHC Legal & Consulting
`))

	emailChangeTmpl = template.Must(template.New("email-change").Parse(
		`Hola {{.Name}},

Has solicitado cambiar el email de tu cuenta a esta dirección.
Confírmalo abriendo el siguiente enlace (válido durante 1 hora):

{{.Link}}

Si no has solicitado este cambio, ignora este mensaje.

LHC Legal & Consulting
`))

	contactTmpl = template.Must(template.New("contact").Parse(
		`Nuevo mensaje desde el formulario de contacto

{{if .UserID}}ID usuario: {{.UserID}}{{else}}Usuario no autenticado{{end}}
Nombre: {{.Name}}{{if .LastName}} {{.LastName}}{{end}}
Email: {{.Email}}
Teléfono: {{if .Phone}}{{.Phone}}{{else}}No proporcionado{{end}}
Asunto: {{.Subject}}

Mensaje:
{{.Message}}
`))
)

func render(t *template.Template, data any) string {
	var buf bytes.Buffer
	// templates are static and data is plain strings
	_ = t.Execute(&buf, data)
	return buf.String()
}

// PasswordReset builds the reset email sent to to.
func PasswordReset(to, name, link string) Message {
	return Message{
		To:      []string{to},
		Subject: "Restablecer contraseña - LHC Legal & Consulting",
		Body:    render(passwordResetTmpl, struct{ Name, Link string }{name, link}),
	}
}

// EmailChange builds the confirmation email sent to the new address.
func EmailChange(to, name, link string) Message {
	return Message{
		To:      []string{to},
		Subject: "Confirma tu nuevo email - LHC Legal & Consulting",
		Body:    render(emailChangeTmpl, struct{ Name, Link string }{name, link}),
	}
}

// ContactRequest is the content of a contact form submission.
type ContactRequest struct {
	UserID   string
	Name     string
	LastName string
	Email    string
	Phone    string
	Subject  string
	Message  string
}

// Contact builds the lead notification sent to the firm's inbox.
func Contact(to string, c ContactRequest) Message {
	return Message{
		To:      []string{to},
		ReplyTo: c.Email,
		Subject: "[LHC Legal & Consulting] Contacto: " + c.Subject,
		Body:    render(contactTmpl, c),
	}
}
