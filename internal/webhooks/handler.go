package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/lhclegal/lhc-backend/internal/contact"
	"github.com/lhclegal/lhc-backend/internal/logger"
	"github.com/lhclegal/lhc-backend/internal/metrics"
	"github.com/lhclegal/lhc-backend/internal/users"
	"github.com/lhclegal/lhc-backend/internal/utils"
)

const (
	SignatureHeader  = "X-Form-Signature"
	SubmissionHeader = "X-Form-Submission-Id"
)

// Handler stores contact leads pushed by an external form provider.
type Handler struct {
	Leads   contact.Store
	Secret  string
	Log     logger.Logger
	Metrics *metrics.Metrics
}

func (h *Handler) ContactForm(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, utils.MaxBodyBytes)
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		utils.Msg(w, http.StatusRequestEntityTooLarge, "Payload demasiado grande o ilegible")
		return
	}
	defer r.Body.Close()

	sid := strings.TrimSpace(r.Header.Get(SubmissionHeader))
	if sid == "" {
		utils.Msg(w, http.StatusBadRequest, "Falta el identificador del envío")
		return
	}
	if h.Secret == "" {
		h.Log.Error("form webhook called without a secret configured")
		utils.Msg(w, http.StatusInternalServerError, "Servidor mal configurado")
		return
	}
	if !Verify(r.Header.Get(SignatureHeader), sid, raw, h.Secret) {
		h.Metrics.AuthEvent("form_webhook", "bad_signature")
		utils.Msg(w, http.StatusUnauthorized, "Firma inválida")
		return
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		utils.Msg(w, http.StatusBadRequest, "JSON inválido")
		return
	}

	lead := &contact.Message{
		FullName:        clip(users.NormalizeName(str(m, "Name", "name", "full_name")), 240),
		Email:           users.NormalizeEmail(str(m, "Email", "email")),
		Phone:           clip(strings.TrimSpace(str(m, "Phone", "phone")), 30),
		Subject:         clip(strings.TrimSpace(str(m, "Subject", "subject")), 200),
		Body:            strings.TrimSpace(str(m, "Message", "message", "About You", "about_you")),
		PrivacyAccepted: boolAny(m, true, "Privacy", "privacy", "privacy_accepted"),
		Source:          contact.SourceWebhook,
		SubmissionID:    &sid,
	}
	if err := validation.Validate(lead.Email, users.EmailRules()...); err != nil || lead.Body == "" {
		utils.Msg(w, http.StatusBadRequest, "Email y mensaje son obligatorios")
		return
	}
	if lead.FullName == "" {
		lead.FullName = lead.Email
	}

	if err := h.Leads.Save(r.Context(), lead); err != nil {
		h.Log.Error("store webhook lead failed", "err", err, "submission_id", sid)
		utils.Msg(w, http.StatusInternalServerError, "No se pudo guardar el envío")
		return
	}

	h.Metrics.AuthEvent("form_webhook", "success")
	utils.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Sign returns the signature header value for a submission: the hex HMAC-SHA256
// of the body followed by the submission id.
func Sign(secret, sid string, raw []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(raw)
	mac.Write([]byte(sid))
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func Verify(sig, sid string, raw []byte, secret string) bool {
	if !strings.HasPrefix(sig, "sha256=") {
		return false
	}
	return hmac.Equal([]byte(sig), []byte(Sign(secret, sid, raw)))
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func toBool(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		s := strings.ToLower(strings.TrimSpace(x))
		return s == "true" || s == "on" || s == "1" || s == "yes" || s == "sí" || s == "si"
	default:
		return false
	}
}

func str(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	return ""
}

func boolAny(m map[string]any, def bool, keys ...string) bool {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			return toBool(v)
		}
	}
	return def
}
