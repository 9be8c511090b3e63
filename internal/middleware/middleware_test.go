package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lhclegal/lhc-backend/internal/middleware"
	"github.com/lhclegal/lhc-backend/internal/tokens"
	"github.com/lhclegal/lhc-backend/internal/utils"
)

// mockVerifier implements middleware.TokenVerifier without signing anything.
type mockVerifier struct {
	claims *tokens.AccessClaims
	err    error
}

func (m mockVerifier) VerifyAccess(string) (*tokens.AccessClaims, error) {
	return m.claims, m.err
}

type mockRevocation struct {
	revoked bool
	err     error
}

func (m mockRevocation) Revoked(context.Context, string, time.Time) (bool, error) {
	return m.revoked, m.err
}

func claimsFor(userID, role, csrf string) *tokens.AccessClaims {
	return &tokens.AccessClaims{
		Type: tokens.TypeAccess,
		Role: role,
		CSRF: csrf,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  userID,
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	}
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

// callWithCookie wraps a simple 200-OK inner handler in the provided middleware,
// optionally setting the access cookie on the request, and returns the recorded response.
func callWithCookie(t *testing.T, mw func(http.Handler) http.Handler, cookieValue string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	if cookieValue != "" {
		req.AddCookie(&http.Cookie{Name: tokens.AccessCookieName, Value: cookieValue})
	}
	rec := httptest.NewRecorder()
	mw(okHandler).ServeHTTP(rec, req)
	return rec
}

func TestSessionMiddleware_MissingCookie(t *testing.T) {
	mw := middleware.SessionMiddleware(mockVerifier{}, nil)

	rec := callWithCookie(t, mw, "")

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

// TestSessionMiddleware_ExpiredToken verifies that an expired access token
// receives a 401 response saying so.
func TestSessionMiddleware_ExpiredToken(t *testing.T) {
	mw := middleware.SessionMiddleware(mockVerifier{err: tokens.ErrExpired}, nil)

	rec := callWithCookie(t, mw, "expired")

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, "expirado") {
		t.Errorf("expected body to mention expiry, got: %q", body)
	}
}

func TestSessionMiddleware_InvalidToken(t *testing.T) {
	mw := middleware.SessionMiddleware(mockVerifier{err: tokens.ErrInvalid}, nil)

	rec := callWithCookie(t, mw, "garbage")

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

// TestSessionMiddleware_ValidToken verifies that the identity from the token
// is injected into the context.
func TestSessionMiddleware_ValidToken(t *testing.T) {
	const wantUserID = "test-user-123"

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID, ok := utils.GetUserIDFromContext(r.Context())
		if !ok || gotUserID != wantUserID {
			http.Error(w, "wrong userID in context: "+gotUserID, http.StatusInternalServerError)
			return
		}
		if utils.GetRoleFromContext(r.Context()) != utils.RoleUser {
			http.Error(w, "wrong role", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	mw := middleware.SessionMiddleware(mockVerifier{claims: claimsFor(wantUserID, utils.RoleUser, "c")}, nil)
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.AddCookie(&http.Cookie{Name: tokens.AccessCookieName, Value: "valid"})
	rec := httptest.NewRecorder()
	mw(inner).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d; body: %s", rec.Code, rec.Body.String())
	}
}

func TestSessionMiddleware_Revoked(t *testing.T) {
	v := mockVerifier{claims: claimsFor("u", utils.RoleUser, "c")}

	rec := callWithCookie(t, middleware.SessionMiddleware(v, mockRevocation{revoked: true}), "valid")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for revoked token, got %d", rec.Code)
	}

	rec = callWithCookie(t, middleware.SessionMiddleware(v, mockRevocation{err: errors.New("db down")}), "valid")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 when the check fails, got %d", rec.Code)
	}

	rec = callWithCookie(t, middleware.SessionMiddleware(v, mockRevocation{}), "valid")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestOptionalSession(t *testing.T) {
	var seen string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = utils.GetUserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	mw := middleware.OptionalSession(mockVerifier{err: tokens.ErrInvalid})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/contact", nil)
	req.AddCookie(&http.Cookie{Name: tokens.AccessCookieName, Value: "bad"})
	mw(inner).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || seen != "" {
		t.Errorf("expected anonymous pass-through, got %d user %q", rec.Code, seen)
	}

	mw = middleware.OptionalSession(mockVerifier{claims: claimsFor("u-1", utils.RoleUser, "c")})
	rec = httptest.NewRecorder()
	mw(inner).ServeHTTP(rec, req)
	if seen != "u-1" {
		t.Errorf("expected identity u-1, got %q", seen)
	}
}

func csrfRequest(method, header, claim string) *http.Request {
	req := httptest.NewRequest(method, "/test", nil)
	if header != "" {
		req.Header.Set(tokens.CSRFHeader, header)
	}
	ctx := utils.WithIdentity(req.Context(), "u", utils.RoleUser, claim)
	return req.WithContext(ctx)
}

func TestCSRFMiddleware(t *testing.T) {
	cases := []struct {
		name    string
		methods []string
		method  string
		header  string
		want    int
	}{
		{"match", nil, http.MethodGet, "csrf-1", http.StatusOK},
		{"missing header", nil, http.MethodGet, "", http.StatusUnauthorized},
		{"mismatch", nil, http.MethodPost, "other", http.StatusUnauthorized},
		{"unguarded method", middleware.MutatingMethods, http.MethodGet, "", http.StatusOK},
		{"guarded method", middleware.MutatingMethods, http.MethodDelete, "", http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			middleware.CSRFMiddleware(tc.methods...)(okHandler).ServeHTTP(rec, csrfRequest(tc.method, tc.header, "csrf-1"))
			if rec.Code != tc.want {
				t.Errorf("expected %d, got %d", tc.want, rec.Code)
			}
		})
	}
}

// TestAdminMiddleware_MissingUserID verifies that AdminMiddleware returns 401
// when SessionMiddleware did not run.
func TestAdminMiddleware_MissingUserID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	rec := httptest.NewRecorder()
	middleware.AdminMiddleware(okHandler).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestAdminMiddleware_Role(t *testing.T) {
	for role, want := range map[string]int{
		utils.RoleUser:  http.StatusForbidden,
		utils.RoleAdmin: http.StatusOK,
	} {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req = req.WithContext(utils.WithIdentity(req.Context(), "u", role, ""))
		rec := httptest.NewRecorder()
		middleware.AdminMiddleware(okHandler).ServeHTTP(rec, req)

		if rec.Code != want {
			t.Errorf("role %s: expected %d, got %d", role, want, rec.Code)
		}
	}
}

func TestCORSMiddleware(t *testing.T) {
	mw := middleware.CORSMiddleware([]string{"http://localhost:3000/"})

	req := httptest.NewRequest(http.MethodOptions, "/api/account/contact", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	mw(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("preflight must not reach the handler")
	})).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 for preflight, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("unexpected allow-origin %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Headers"); !strings.Contains(got, tokens.CSRFHeader) {
		t.Errorf("expected %s in allow-headers, got %q", tokens.CSRFHeader, got)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	mw(okHandler).ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("unexpected allow-origin for unknown origin")
	}
}
