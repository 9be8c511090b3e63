package users

import (
	"context"
	"errors"
	"time"
)

// Revocation checks session tokens against the users' watermark.
type Revocation struct {
	Store Store
}

// Revoked reports whether a token issued at iat is older than the user's
// last password change. Unknown users are not considered revoked here;
// handlers turn them into 404.
func (r Revocation) Revoked(ctx context.Context, userID string, iat time.Time) (bool, error) {
	u, err := r.Store.FindByID(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return u.Revoked(iat), nil
}

// StampRevocation moves the watermark to now so earlier sessions stop
// working.
func (u *User) StampRevocation(now time.Time) {
	t := now.UTC().Truncate(time.Millisecond)
	u.TokensValidAfter = &t
}
