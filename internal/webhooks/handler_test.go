package webhooks

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lhclegal/lhc-backend/internal/contact"
	"github.com/lhclegal/lhc-backend/internal/logger"
)

const secret = "whsec"

func post(t *testing.T, h *Handler, sid, sig string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/forms/contact", bytes.NewReader(body))
	if sid != "" {
		req.Header.Set(SubmissionHeader, sid)
	}
	if sig != "" {
		req.Header.Set(SignatureHeader, sig)
	}
	rr := httptest.NewRecorder()
	SetupRoutes(h).ServeHTTP(rr, req)
	return rr
}

func TestContactForm_StoresLeadOnce(t *testing.T) {
	leads := contact.NewMemoryStore()
	h := &Handler{Leads: leads, Secret: secret, Log: logger.Nop()}
	body := []byte(`{"Name":"Ana Ruiz","Email":"Ana@Example.com","Message":"Quiero una cita","Phone":"600 000 000"}`)

	rr := post(t, h, "sub-1", Sign(secret, "sub-1", body), body)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	// redelivery of the same submission
	rr = post(t, h, "sub-1", Sign(secret, "sub-1", body), body)
	require.Equal(t, http.StatusOK, rr.Code)

	got, err := leads.List(context.Background(), contact.NewFilter("", "", "", ""))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ana@example.com", got[0].Email)
	assert.Equal(t, "Ana Ruiz", got[0].FullName)
	assert.Equal(t, contact.SourceWebhook, got[0].Source)
	assert.True(t, got[0].PrivacyAccepted)
}

func TestContactForm_Rejects(t *testing.T) {
	leads := contact.NewMemoryStore()
	h := &Handler{Leads: leads, Secret: secret, Log: logger.Nop()}
	body := []byte(`{"email":"ana@example.com","message":"hola"}`)

	assert.Equal(t, http.StatusBadRequest, post(t, h, "", Sign(secret, "", body), body).Code)
	assert.Equal(t, http.StatusUnauthorized, post(t, h, "sub-2", "sha256=deadbeef", body).Code)
	assert.Equal(t, http.StatusUnauthorized, post(t, h, "sub-2", Sign("other", "sub-2", body), body).Code)

	bad := []byte(`{"email":"nope"}`)
	assert.Equal(t, http.StatusBadRequest, post(t, h, "sub-3", Sign(secret, "sub-3", bad), bad).Code)

	notJSON := []byte(`not json`)
	assert.Equal(t, http.StatusBadRequest, post(t, h, "sub-4", Sign(secret, "sub-4", notJSON), notJSON).Code)

	h.Secret = ""
	assert.Equal(t, http.StatusInternalServerError, post(t, h, "sub-5", "sha256=x", body).Code)

	got, err := leads.List(context.Background(), contact.NewFilter("", "", "", ""))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestVerify(t *testing.T) {
	body := []byte(`{}`)
	assert.True(t, Verify(Sign(secret, "s", body), "s", body, secret))
	assert.False(t, Verify(Sign(secret, "s", body), "t", body, secret))
	assert.False(t, Verify("deadbeef", "s", body, secret))
}

func TestBoolAny(t *testing.T) {
	assert.True(t, boolAny(map[string]any{}, true, "privacy"))
	assert.False(t, boolAny(map[string]any{"privacy": "no"}, true, "privacy"))
	assert.True(t, boolAny(map[string]any{"Privacy": "on"}, false, "Privacy"))
}
