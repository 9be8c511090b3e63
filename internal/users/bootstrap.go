package users

import (
	"context"
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
)

// ErrInvalidAdmin wraps validation failures of an AdminSpec.
var ErrInvalidAdmin = errors.New("invalid admin")

// AdminSpec describes the administrator created by CreateAdmin.
type AdminSpec struct {
	Username string
	Email    string
	Password string
	// Promote grants admin to an existing account with the same email
	// instead of failing.
	Promote bool
}

// CreateAdmin registers an administrator. It returns ErrDuplicate when the
// email is taken and Promote is off, and an error wrapping ErrInvalidAdmin
// when the email, username or password break the signup rules.
func CreateAdmin(ctx context.Context, store Store, spec AdminSpec, policy PasswordPolicy) (*User, bool, error) {
	email := NormalizeEmail(spec.Email)
	if err := validation.Validate(email, EmailRules()...); err != nil {
		return nil, false, fmt.Errorf("%w: email: %v", ErrInvalidAdmin, err)
	}

	existing, err := store.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if !spec.Promote {
			return nil, false, ErrDuplicate
		}
		existing.IsAdmin = true
		if err := store.Save(ctx, existing); err != nil {
			return nil, false, err
		}
		return existing, false, nil
	case !errors.Is(err, ErrNotFound):
		return nil, false, err
	}

	name := NormalizeName(spec.Username)
	if err := validation.Validate(name, UsernameRules()...); err != nil {
		return nil, false, fmt.Errorf("%w: username: %v", ErrInvalidAdmin, err)
	}
	if err := policy.Validate(spec.Password); err != nil {
		return nil, false, fmt.Errorf("%w: password: %v", ErrInvalidAdmin, err)
	}

	u := &User{Username: name, Email: email, IsAdmin: true}
	if err := u.SetPassword(spec.Password); err != nil {
		return nil, false, err
	}
	if err := store.Create(ctx, u); err != nil {
		return nil, false, err
	}
	return u, true, nil
}
