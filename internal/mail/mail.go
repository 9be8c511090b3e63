// Package mail delivers transactional email over SMTP or the SendGrid HTTP
// API.
package mail

import (
	"context"
	"errors"
	"net/mail"
	"strings"
)

var (
	ErrNoRecipients = errors.New("no recipients")
	ErrRateLimited  = errors.New("daily email limit reached")
)

// Message is a plain-text email.
type Message struct {
	To      []string
	ReplyTo string
	Subject string
	Body    string
}

// Mailer sends a message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// MailerFunc adapts a function to Mailer.
type MailerFunc func(ctx context.Context, msg Message) error

func (f MailerFunc) Send(ctx context.Context, msg Message) error { return f(ctx, msg) }

// Validate checks recipients are present and well formed.
func (m Message) Validate() error {
	if len(m.To) == 0 {
		return ErrNoRecipients
	}
	for _, to := range m.To {
		if _, err := mail.ParseAddress(to); err != nil {
			return errors.New("destinatario inválido: " + to)
		}
	}
	return nil
}

// sender splits "Name <addr>" into its parts. A bare address has no name.
func sender(from string) (name, addr string) {
	a, err := mail.ParseAddress(strings.TrimSpace(from))
	if err != nil {
		return "", strings.TrimSpace(from)
	}
	return a.Name, a.Address
}
