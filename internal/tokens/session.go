package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// AccessClaims are carried by access tokens.
type AccessClaims struct {
	Type string `json:"typ"`
	Role string `json:"role"`
	CSRF string `json:"csrf"`
	// IssuedAtMs is iat in milliseconds; the registered iat is whole seconds.
	IssuedAtMs int64 `json:"iat_ms,omitempty"`
	jwt.RegisteredClaims
}

// RefreshClaims are carried by refresh tokens. They hold no role: the role
// is re-read from the user store on refresh.
type RefreshClaims struct {
	Type       string `json:"typ"`
	IssuedAtMs int64  `json:"iat_ms,omitempty"`
	jwt.RegisteredClaims
}

// Issued returns the token's issue time at millisecond precision.
func (c *AccessClaims) Issued() time.Time { return issuedAt(c.IssuedAtMs, c.RegisteredClaims) }

func (c *RefreshClaims) Issued() time.Time { return issuedAt(c.IssuedAtMs, c.RegisteredClaims) }

type SessionConfig struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Cookies    CookieConfig
}

// SessionService issues and verifies the stateless JWT session pair.
type SessionService struct {
	accessKey  []byte
	refreshKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	cookies    CookieConfig
	now        func() time.Time
}

func NewSessionService(cfg SessionConfig) *SessionService {
	secret := []byte(cfg.Secret)
	return &SessionService{
		accessKey:  deriveKey(secret, labelAccess),
		refreshKey: deriveKey(secret, labelRefresh),
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		cookies:    cfg.Cookies,
		now:        time.Now,
	}
}

// SetClock replaces the time source. Tests only.
func (s *SessionService) SetClock(now func() time.Time) { s.now = now }

func (s *SessionService) AccessTTL() time.Duration  { return s.accessTTL }
func (s *SessionService) RefreshTTL() time.Duration { return s.refreshTTL }

// IssueAccessToken returns a signed access token and the CSRF value bound to
// it.
func (s *SessionService) IssueAccessToken(userID, role string) (string, string, error) {
	csrf := uuid.NewString()
	now := s.now()
	claims := AccessClaims{
		Type:             TypeAccess,
		Role:             role,
		CSRF:             csrf,
		IssuedAtMs:       now.UnixMilli(),
		RegisteredClaims: registered(userID, now, s.accessTTL),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.accessKey)
	if err != nil {
		return "", "", fmt.Errorf("sign access token: %w", err)
	}
	return tok, csrf, nil
}

func (s *SessionService) IssueRefreshToken(userID string) (string, error) {
	now := s.now()
	claims := RefreshClaims{
		Type:             TypeRefresh,
		IssuedAtMs:       now.UnixMilli(),
		RegisteredClaims: registered(userID, now, s.refreshTTL),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.refreshKey)
	if err != nil {
		return "", fmt.Errorf("sign refresh token: %w", err)
	}
	return tok, nil
}

// VerifyAccess returns ErrExpired for an expired token and ErrInvalid for
// any other failure.
func (s *SessionService) VerifyAccess(token string) (*AccessClaims, error) {
	var claims AccessClaims
	if err := s.parse(token, &claims, s.accessKey); err != nil {
		return nil, err
	}
	if claims.Type != TypeAccess || claims.Subject == "" {
		return nil, ErrInvalid
	}
	return &claims, nil
}

func (s *SessionService) VerifyRefresh(token string) (*RefreshClaims, error) {
	var claims RefreshClaims
	if err := s.parse(token, &claims, s.refreshKey); err != nil {
		return nil, err
	}
	if claims.Type != TypeRefresh || claims.Subject == "" {
		return nil, ErrInvalid
	}
	return &claims, nil
}

func registered(userID string, now time.Time, ttl time.Duration) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Subject:   userID,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func (s *SessionService) parse(token string, claims jwt.Claims, key []byte) error {
	if token == "" {
		return ErrInvalid
	}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	default:
		return ErrInvalid
	}
}

// issuedAt prefers the millisecond claim and falls back to the registered
// iat for tokens minted without it.
func issuedAt(ms int64, c jwt.RegisteredClaims) time.Time {
	if ms > 0 {
		return time.UnixMilli(ms)
	}
	if c.IssuedAt == nil {
		return time.Time{}
	}
	return c.IssuedAt.Time
}
