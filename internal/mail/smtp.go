package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/dajohi/goemail"
)

// SMTP sends email through an SMTP relay. goemail cannot set extra headers,
// so Message.ReplyTo travels in the body instead of a Reply-To header.
type SMTP struct {
	client      *goemail.SMTP
	mailName    string
	mailAddress string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	// From is the sender, either "addr" or "Name <addr>".
	From string
}

// NewSMTP returns an SMTP mailer. Port 465 uses implicit TLS, anything else
// plain SMTP with STARTTLS.
func NewSMTP(cfg SMTPConfig) (*SMTP, error) {
	scheme := "smtp"
	if cfg.Port == 465 {
		scheme = "smtps"
	}
	u := &url.URL{
		Scheme: scheme,
		User:   url.UserPassword(cfg.Username, cfg.Password),
		Host:   cfg.Host + ":" + strconv.Itoa(cfg.Port),
	}

	client, err := goemail.NewSMTP(u.String(), &tls.Config{ServerName: cfg.Host})
	if err != nil {
		return nil, fmt.Errorf("init smtp client: %w", err)
	}

	name, addr := sender(cfg.From)
	return &SMTP{client: client, mailName: name, mailAddress: addr}, nil
}

func (s *SMTP) Send(_ context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	m := goemail.NewMessage(s.mailAddress, msg.Subject, smtpBody(msg))
	for _, to := range msg.To {
		m.AddTo(to)
	}
	if s.mailName != "" {
		m.SetName(s.mailName)
	}

	if err := s.client.Send(m); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// smtpBody prepends the reply address unless the body already shows it.
func smtpBody(msg Message) string {
	if msg.ReplyTo == "" || strings.Contains(msg.Body, msg.ReplyTo) {
		return msg.Body
	}
	return "Responder a: " + msg.ReplyTo + "\n\n" + msg.Body
}
