package utils

import (
	"context"
)

type contextKey string

const (
	ContextUserIDKey contextKey = "userID"
	ContextRoleKey   contextKey = "role"
	ContextCSRFKey   contextKey = "csrf"
	ContextIssuedKey contextKey = "issuedAt"
)

// Role values carried in access tokens.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

func GetUserIDFromContext(ctx context.Context) (string, bool) {
	userID := ctx.Value(ContextUserIDKey)
	userIDStr, ok := userID.(string)
	return userIDStr, ok && userIDStr != ""
}

func GetRoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(ContextRoleKey).(string)
	return role
}

func GetCSRFFromContext(ctx context.Context) string {
	csrf, _ := ctx.Value(ContextCSRFKey).(string)
	return csrf
}

// WithIdentity stores the authenticated user id, role and CSRF value.
func WithIdentity(ctx context.Context, userID, role, csrf string) context.Context {
	ctx = context.WithValue(ctx, ContextUserIDKey, userID)
	ctx = context.WithValue(ctx, ContextRoleKey, role)
	return context.WithValue(ctx, ContextCSRFKey, csrf)
}
