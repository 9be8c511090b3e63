package mail

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lhclegal/lhc-backend/internal/logger"
)

type recorder struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (r *recorder) Send(_ context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	return r.err
}

func TestMessage_Validate(t *testing.T) {
	assert.ErrorIs(t, Message{}.Validate(), ErrNoRecipients)
	assert.Error(t, Message{To: []string{"bad-email"}}.Validate())
	assert.NoError(t, Message{To: []string{"a@example.com"}}.Validate())
}

func TestSender(t *testing.T) {
	name, addr := sender("LHC <info@lhc.example>")
	assert.Equal(t, "LHC", name)
	assert.Equal(t, "info@lhc.example", addr)

	name, addr = sender("info@lhc.example")
	assert.Empty(t, name)
	assert.Equal(t, "info@lhc.example", addr)
}

func TestLimited(t *testing.T) {
	rec := &recorder{}
	l := NewLimited(rec, 2)
	msg := Message{To: []string{"a@example.com"}}

	require.NoError(t, l.Send(context.Background(), msg))
	require.NoError(t, l.Send(context.Background(), msg))
	assert.ErrorIs(t, l.Send(context.Background(), msg), ErrRateLimited)
	assert.Len(t, rec.sent, 2)
}

func TestLimited_Disabled(t *testing.T) {
	rec := &recorder{}
	l := NewLimited(rec, 0)
	for i := 0; i < 5; i++ {
		require.NoError(t, l.Send(context.Background(), Message{To: []string{"a@example.com"}}))
	}
	assert.Len(t, rec.sent, 5)
}

func TestAsync(t *testing.T) {
	rec := &recorder{err: errors.New("smtp down")}
	a := NewAsync(rec, logger.Nop(), time.Second)
	var failures atomic.Int32
	a.OnResult = func(err error) {
		if err != nil {
			failures.Add(1)
		}
	}

	require.NoError(t, a.Send(context.Background(), Message{To: []string{"a@example.com"}}))
	assert.Error(t, a.Send(context.Background(), Message{}))
	a.Wait()

	assert.Len(t, rec.sent, 1)
	assert.Equal(t, int32(1), failures.Load())
}

func TestSendGrid_Send(t *testing.T) {
	var got sendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, sendPath, r.URL.Path)
		assert.Equal(t, "Bearer sg-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sg := NewSendGrid(SendGridConfig{BaseURL: srv.URL, APIKey: "sg-key", From: "LHC <info@lhc.example>", Timeout: time.Second})
	msg := Contact("inbox@lhc.example", ContactRequest{Name: "Ana", Email: "ana@example.com", Subject: "Consulta", Message: "Necesito ayuda legal"})
	require.NoError(t, sg.Send(context.Background(), msg))

	require.Len(t, got.Personalizations, 1)
	assert.Equal(t, "inbox@lhc.example", got.Personalizations[0].To[0].Email)
	assert.Equal(t, "[LHC Legal & Consulting] Contacto: Consulta", got.Personalizations[0].Subject)
	assert.Equal(t, "info@lhc.example", got.From.Email)
	require.NotNil(t, got.ReplyTo)
	assert.Equal(t, "ana@example.com", got.ReplyTo.Email)
	assert.Contains(t, got.Content[0].Value, "Necesito ayuda legal")
}

func TestSendGrid_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":[{"message":"bad key"}]}`))
	}))
	defer srv.Close()

	sg := NewSendGrid(SendGridConfig{BaseURL: srv.URL, APIKey: "bad", From: "info@lhc.example", Timeout: time.Second})
	err := sg.Send(context.Background(), Message{To: []string{"a@example.com"}, Subject: "x", Body: "y"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestTemplates(t *testing.T) {
	msg := PasswordReset("mario@example.com", "Mario", "http://front/reset-password?token=abc")
	assert.Equal(t, []string{"mario@example.com"}, msg.To)
	assert.Contains(t, msg.Body, "Hola Mario")
	assert.Contains(t, msg.Body, "reset-password?token=abc")

	msg = EmailChange("new@example.com", "Mario", "http://api/confirm?token=x")
	assert.Contains(t, msg.Body, "confirm?token=x")

	msg = Contact("inbox@lhc.example", ContactRequest{Name: "Ana", LastName: "Ruiz", Email: "ana@example.com", Phone: "600000000", Subject: "S", Message: "M"})
	assert.Contains(t, msg.Body, "Ana Ruiz")
	assert.Contains(t, msg.Body, "Teléfono: 600000000")
	assert.Contains(t, msg.Body, "Usuario no autenticado")

	msg = Contact("inbox@lhc.example", ContactRequest{UserID: "u-1", Name: "Ana", Email: "ana@example.com", Subject: "S", Message: "M"})
	assert.Contains(t, msg.Body, "ID usuario: u-1")
	assert.Contains(t, msg.Body, "Teléfono: No proporcionado")
}

func TestSMTPBody_CarriesReplyTo(t *testing.T) {
	msg := Message{To: []string{"a@lhc.example"}, Subject: "s", Body: "hola", ReplyTo: "ana@example.com"}
	assert.Equal(t, "Responder a: ana@example.com\n\nhola", smtpBody(msg))

	msg.ReplyTo = ""
	assert.Equal(t, "hola", smtpBody(msg))

	contact := Contact("inbox@lhc.example", ContactRequest{Name: "Ana", Email: "ana@example.com", Subject: "Consulta", Message: "Necesito ayuda."})
	assert.Equal(t, contact.Body, smtpBody(contact), "contact bodies already show the sender")
}

func TestLogMailer(t *testing.T) {
	assert.NoError(t, LogMailer{Log: logger.Nop()}.Send(context.Background(), Message{To: []string{"a@example.com"}}))
	assert.ErrorIs(t, LogMailer{Log: logger.Nop()}.Send(context.Background(), Message{}), ErrNoRecipients)
}
