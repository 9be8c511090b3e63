package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/lhclegal/lhc-backend/internal/tokens"
	"github.com/lhclegal/lhc-backend/internal/utils"
)

// TokenVerifier checks access tokens. *tokens.SessionService implements it.
type TokenVerifier interface {
	VerifyAccess(token string) (*tokens.AccessClaims, error)
}

// RevocationChecker reports whether a token issued at iat for userID has
// been revoked. A nil checker disables the check.
type RevocationChecker interface {
	Revoked(ctx context.Context, userID string, iat time.Time) (bool, error)
}

// SessionMiddleware requires a valid access token cookie and stores the
// caller's identity in the request context.
func SessionMiddleware(verifier TokenVerifier, revoked RevocationChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := tokens.AccessTokenFromRequest(r)
			if raw == "" {
				utils.Msg(w, http.StatusUnauthorized, "Token de acceso requerido")
				return
			}

			claims, err := verifier.VerifyAccess(raw)
			if errors.Is(err, tokens.ErrExpired) {
				utils.Msg(w, http.StatusUnauthorized, "El token ha expirado")
				return
			}
			if err != nil {
				utils.Msg(w, http.StatusUnauthorized, "Token inválido")
				return
			}

			if revoked != nil {
				gone, err := revoked.Revoked(r.Context(), claims.Subject, claims.Issued())
				if err != nil {
					utils.Msg(w, http.StatusInternalServerError, "Error interno del servidor")
					return
				}
				if gone {
					utils.Msg(w, http.StatusUnauthorized, "Sesión revocada")
					return
				}
			}

			ctx := utils.WithIdentity(r.Context(), claims.Subject, claims.Role, claims.CSRF)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalSession attaches the caller's identity when a valid access token
// is present and otherwise lets the request through anonymously.
func OptionalSession(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if raw := tokens.AccessTokenFromRequest(r); raw != "" {
				if claims, err := verifier.VerifyAccess(raw); err == nil {
					r = r.WithContext(utils.WithIdentity(r.Context(), claims.Subject, claims.Role, claims.CSRF))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CSRFMiddleware compares the X-CSRF-TOKEN header with the csrf claim of the
// access token. It must run after SessionMiddleware. With no methods given,
// every request is checked.
func CSRFMiddleware(methods ...string) func(http.Handler) http.Handler {
	guarded := make(map[string]struct{}, len(methods))
	for _, m := range methods {
		guarded[strings.ToUpper(m)] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := guarded[r.Method]; len(guarded) > 0 && !ok {
				next.ServeHTTP(w, r)
				return
			}

			want := utils.GetCSRFFromContext(r.Context())
			got := r.Header.Get(tokens.CSRFHeader)
			if want == "" || got == "" || subtle.ConstantTimeCompare([]byte(want), []byte(got)) != 1 {
				utils.Msg(w, http.StatusUnauthorized, "Token CSRF inválido o ausente")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// MutatingMethods are the verbs guarded by CSRF on authenticated routes.
var MutatingMethods = []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete}

// AdminMiddleware requires the admin role claim. It must run after
// SessionMiddleware.
func AdminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := utils.GetUserIDFromContext(r.Context()); !ok {
			utils.Msg(w, http.StatusUnauthorized, "Token de acceso requerido")
			return
		}

		if utils.GetRoleFromContext(r.Context()) != utils.RoleAdmin {
			utils.Msg(w, http.StatusForbidden, "Acceso restringido a administradores")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// CORSMiddleware echoes allowed origins back with credentials enabled and
// answers preflight requests.
func CORSMiddleware(origins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[strings.TrimRight(o, "/")] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			// Echo the origin back only if it's on our allow-list
			if _, ok := allowed[origin]; ok {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Access-Control-Allow-Methods",
					"GET, POST, PUT, PATCH, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers",
					"Content-Type, Authorization, "+tokens.CSRFHeader)
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
