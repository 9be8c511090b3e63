package tokens

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/securecookie"
)

// Recovery token namespaces.
const (
	NamespacePasswordReset = "password-reset"
	NamespaceEmailChange   = "email-change"
)

var (
	ErrExpired = errors.New("token expired")
	ErrInvalid = errors.New("token invalid")
)

// Signer mints and verifies single-purpose, time-limited tokens. The
// namespace takes part in the MAC so tokens do not cross flows.
type Signer struct {
	codec *securecookie.SecureCookie
	now   func() time.Time
}

type envelope struct {
	IssuedAt int64           `json:"iat"`
	Payload  json.RawMessage `json:"p"`
}

func NewSigner(secret string) *Signer {
	codec := securecookie.New(deriveKey([]byte(secret), labelRecovery), nil)
	codec.SetSerializer(securecookie.JSONEncoder{})
	// age is enforced in Verify against our own clock
	codec.MaxAge(0)
	codec.MaxLength(0)
	return &Signer{codec: codec, now: time.Now}
}

// SetClock replaces the time source. Tests only.
func (s *Signer) SetClock(now func() time.Time) { s.now = now }

// Issue signs payload under namespace.
func (s *Signer) Issue(payload any, namespace string) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}
	tok, err := s.codec.Encode(namespace, envelope{IssuedAt: s.now().Unix(), Payload: raw})
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return tok, nil
}

// Verify checks token under namespace and decodes its payload into dst.
// It returns ErrExpired when the token is older than maxAge and ErrInvalid
// for anything else that fails.
func (s *Signer) Verify(token, namespace string, maxAge time.Duration, dst any) error {
	if token == "" {
		return ErrInvalid
	}
	var env envelope
	if err := s.codec.Decode(namespace, token, &env); err != nil {
		return ErrInvalid
	}
	if s.now().Sub(time.Unix(env.IssuedAt, 0)) > maxAge {
		return ErrExpired
	}
	if err := json.Unmarshal(env.Payload, dst); err != nil {
		return ErrInvalid
	}
	return nil
}
