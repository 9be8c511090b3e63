package app_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/lhclegal/lhc-backend/internal/app"
	"github.com/lhclegal/lhc-backend/internal/config"
	"github.com/lhclegal/lhc-backend/internal/contact"
	"github.com/lhclegal/lhc-backend/internal/logger"
	"github.com/lhclegal/lhc-backend/internal/mail"
	"github.com/lhclegal/lhc-backend/internal/tokens"
	"github.com/lhclegal/lhc-backend/internal/users"
)

type outbox struct {
	mu   sync.Mutex
	sent []mail.Message
}

func (o *outbox) Send(_ context.Context, msg mail.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, msg)
	return nil
}

func (o *outbox) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.sent)
}

type testEnv struct {
	app    *app.App
	srv    *httptest.Server
	users  *users.MemoryStore
	outbox *outbox
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := config.Default()
	cfg.Env = config.EnvTesting
	cfg.Auth.BcryptCost = bcrypt.MinCost
	cfg.Mail.Async = false

	env := &testEnv{users: users.NewMemoryStore(), outbox: &outbox{}}
	a, err := app.New(cfg, logger.Nop(),
		app.WithStores(env.users, contact.NewMemoryStore()),
		app.WithMailer(env.outbox),
	)
	require.NoError(t, err)
	env.app = a

	env.srv = httptest.NewServer(a.Router())
	t.Cleanup(func() {
		env.srv.Close()
		_ = a.Close()
	})
	return env
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func (e *testEnv) do(t *testing.T, c *http.Client, method, path string, body any, csrf string) (*http.Response, map[string]any) {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, rdr)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if csrf != "" {
		req.Header.Set(tokens.CSRFHeader, csrf)
	}
	resp, err := c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp, out
}

func TestHealthAndInfo(t *testing.T) {
	env := newEnv(t)
	c := newClient(t)

	resp, body := env.do(t, c, http.MethodGet, "/api/health", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])

	resp, body = env.do(t, c, http.MethodGet, "/api/info", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "version")
	assert.Contains(t, body["endpoints"], "auth")
}

func TestMarioScenario(t *testing.T) {
	env := newEnv(t)
	c := newClient(t)

	resp, body := env.do(t, c, http.MethodPost, "/api/auth/signup", map[string]string{
		"username": "Mario", "email": "mario@example.com", "password": "Secreta1!",
	}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	user := body["user"].(map[string]any)
	assert.NotContains(t, user, "password_hash")

	resp, body = env.do(t, c, http.MethodPost, "/api/auth/login", map[string]string{
		"email": "mario@example.com", "password": "Secreta1!",
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, resp.Cookies(), 2)
	csrf, _ := body["csrf_token"].(string)
	require.NotEmpty(t, csrf)
	assert.Equal(t, false, body["user"].(map[string]any)["is_admin"])

	resp, _ = env.do(t, c, http.MethodGet, "/api/auth/profile", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body = env.do(t, c, http.MethodGet, "/api/auth/profile", nil, csrf)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "mario@example.com", body["email"])

	// non-admins cannot reach the admin APIs
	resp, _ = env.do(t, c, http.MethodGet, "/api/users", nil, csrf)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = env.do(t, c, http.MethodPost, "/api/auth/logout", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = env.do(t, c, http.MethodGet, "/api/auth/profile", nil, csrf)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPasswordResetFlow(t *testing.T) {
	env := newEnv(t)
	c := newClient(t)

	resp, _ := env.do(t, c, http.MethodPost, "/api/account/request-password-reset", map[string]string{"email": "ghost@example.com"}, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 0, env.outbox.count())

	resp, body := env.do(t, c, http.MethodPost, "/api/account/reset-password", map[string]string{"token": "garbage", "new_password": "Nueva123!"}, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Token inválido", body["msg"])
}

func TestContactAndAdmin(t *testing.T) {
	env := newEnv(t)

	admin := &users.User{Username: "Alberto", Email: "admin@lhc.example", IsAdmin: true}
	require.NoError(t, admin.SetPassword("Admin123!"))
	require.NoError(t, env.users.Create(context.Background(), admin))

	anon := newClient(t)
	resp, _ := env.do(t, anon, http.MethodPost, "/api/account/contact", map[string]string{
		"name": "Ana", "email": "ana@example.com", "subject": "Consulta", "message": "Necesito ayuda con un contrato.",
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, env.outbox.count())

	c := newClient(t)
	resp, body := env.do(t, c, http.MethodPost, "/api/auth/login", map[string]string{"email": "admin@lhc.example", "password": "Admin123!"}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	csrf := body["csrf_token"].(string)

	resp, body = env.do(t, c, http.MethodGet, "/api/admin/contact", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, body["total"])
	id := body["messages"].([]any)[0].(map[string]any)["id"].(string)

	resp, _ = env.do(t, c, http.MethodPatch, "/api/admin/contact/"+id+"/revoke", nil, csrf)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, env.srv.URL+"/api/users", nil)
	require.NoError(t, err)
	resp, err = c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCORSPreflight(t *testing.T) {
	env := newEnv(t)

	req, err := http.NewRequest(http.MethodOptions, env.srv.URL+"/api/account/contact", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), tokens.CSRFHeader)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newEnv(t)
	c := newClient(t)
	env.do(t, c, http.MethodGet, "/api/health", nil, "")

	resp, err := c.Get(env.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "lhc_http_requests_total")
}

func TestNew_ProductionRequiresDatabase(t *testing.T) {
	cfg := config.Default()
	cfg.Env = config.EnvProduction
	cfg.Auth.BcryptCost = bcrypt.MinCost
	_, err := app.New(cfg, logger.Nop())
	assert.ErrorIs(t, err, config.ErrMissingDatabase)
}

func TestNew_UnknownMailProvider(t *testing.T) {
	cfg := config.Default()
	cfg.Auth.BcryptCost = bcrypt.MinCost
	cfg.Mail.Provider = "pigeon"
	_, err := app.New(cfg, logger.Nop(), app.WithStores(users.NewMemoryStore(), contact.NewMemoryStore()))
	assert.Error(t, err)
}

func TestFormWebhookMountedOnlyWithSecret(t *testing.T) {
	env := newEnv(t)
	c := newClient(t)
	resp, _ := env.do(t, c, http.MethodPost, "/api/webhooks/forms/contact", map[string]string{}, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
