package mail

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

const sendPath = "/v3/mail/send"

// SendGrid sends email through the SendGrid v3 HTTP API.
type SendGrid struct {
	client *resty.Client
	from   address
}

type SendGridConfig struct {
	BaseURL string
	APIKey  string
	From    string
	Timeout time.Duration
}

type address struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type personalization struct {
	To      []address `json:"to"`
	Subject string    `json:"subject"`
}

type content struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sendRequest struct {
	Personalizations []personalization `json:"personalizations"`
	From             address           `json:"from"`
	ReplyTo          *address          `json:"reply_to,omitempty"`
	Content          []content         `json:"content"`
}

func NewSendGrid(cfg SendGridConfig) *SendGrid {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetAuthToken(cfg.APIKey).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second)

	client.AddRetryCondition(retryCondition)

	name, addr := sender(cfg.From)
	return &SendGrid{client: client, from: address{Email: addr, Name: name}}
}

// retryCondition retries network errors and throttling or server errors.
func retryCondition(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	if r == nil {
		return false
	}
	code := r.StatusCode()
	return code >= 500 || code == 429
}

func (s *SendGrid) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	p := personalization{Subject: msg.Subject}
	for _, to := range msg.To {
		p.To = append(p.To, address{Email: to})
	}
	body := sendRequest{
		Personalizations: []personalization{p},
		From:             s.from,
		Content:          []content{{Type: "text/plain", Value: msg.Body}},
	}
	if msg.ReplyTo != "" {
		body.ReplyTo = &address{Email: msg.ReplyTo}
	}

	resp, err := s.client.R().SetContext(ctx).SetBody(body).Post(sendPath)
	if err != nil {
		return fmt.Errorf("sendgrid request: %w", err)
	}
	if resp.StatusCode() >= 300 {
		return fmt.Errorf("sendgrid error: %s (status %d)", resp.String(), resp.StatusCode())
	}
	return nil
}
