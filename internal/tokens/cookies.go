package tokens

import (
	"net/http"
	"time"
)

const (
	AccessCookieName  = "access_token_cookie"
	RefreshCookieName = "refresh_token_cookie"
	CSRFHeader        = "X-CSRF-TOKEN"

	RefreshCookiePath = "/api/auth/refresh"
)

type CookieConfig struct {
	Secure bool
}

func (s *SessionService) SetAccessCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, s.cookie(AccessCookieName, "/", token, s.accessTTL))
}

func (s *SessionService) SetRefreshCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, s.cookie(RefreshCookieName, RefreshCookiePath, token, s.refreshTTL))
}

// ClearCookies expires both session cookies.
func (s *SessionService) ClearCookies(w http.ResponseWriter) {
	for _, c := range []*http.Cookie{
		s.cookie(AccessCookieName, "/", "", 0),
		s.cookie(RefreshCookieName, RefreshCookiePath, "", 0),
	} {
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0)
		http.SetCookie(w, c)
	}
}

func (s *SessionService) cookie(name, path, value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   s.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// AccessTokenFromRequest reads the access cookie value, if any.
func AccessTokenFromRequest(r *http.Request) string {
	c, err := r.Cookie(AccessCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

func RefreshTokenFromRequest(r *http.Request) string {
	c, err := r.Cookie(RefreshCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}
