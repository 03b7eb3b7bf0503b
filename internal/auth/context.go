package auth

import (
	"context"

	"github.com/gamaccess/gamaccess/internal/model"
)

type contextKey string

const authContextKey contextKey = "auth_context"

// ContextWithAuth stores the authenticated caller on the context.
func ContextWithAuth(ctx context.Context, auth *model.AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey, auth)
}

// AuthFromContext returns the authenticated caller, or nil when the
// request did not pass auth middleware.
func AuthFromContext(ctx context.Context) *model.AuthContext {
	auth, ok := ctx.Value(authContextKey).(*model.AuthContext)
	if !ok {
		return nil
	}
	return auth
}

// KeyIDFromContext returns the authenticated key ID, or "" when
// unauthenticated.
func KeyIDFromContext(ctx context.Context) string {
	auth := AuthFromContext(ctx)
	if auth == nil {
		return ""
	}
	return auth.KeyID
}

// KeyPrefixFromContext returns the visible key prefix of the caller,
// used as the requested_by value on audit records.
func KeyPrefixFromContext(ctx context.Context) string {
	auth := AuthFromContext(ctx)
	if auth == nil {
		return ""
	}
	return auth.KeyPrefix
}
