package auth

import (
	"context"

	"github.com/goliatone/go-router"
)

var sessionCtxKey = &contextKey{"session"}
var claimsCtxKey = &contextKey{"claims"}

type contextKey struct {
	name string
}

// WithSessionContext sets the SessionView in the given context
func WithSessionContext(r context.Context, session *SessionView) context.Context {
	return context.WithValue(r, sessionCtxKey, session)
}

// SessionFromContext finds the session from the context.
func SessionFromContext(ctx context.Context) (*SessionView, bool) {
	raw, ok := ctx.Value(sessionCtxKey).(*SessionView)
	return raw, ok && raw != nil
}

// WithClaimsContext sets the JWTClaims in the given context
func WithClaimsContext(r context.Context, claims *JWTClaims) context.Context {
	return context.WithValue(r, claimsCtxKey, claims)
}

// GetClaims extracts the JWTClaims from the standard context
func GetClaims(ctx context.Context) (*JWTClaims, bool) {
	raw, ok := ctx.Value(claimsCtxKey).(*JWTClaims)
	return raw, ok && raw != nil
}

// GetRouterClaims extracts the JWTClaims stored by the session middleware
func GetRouterClaims(ctx router.Context, key string) (*JWTClaims, bool) {
	if key == "" {
		key = DefaultContextKey
	}
	raw := ctx.Locals(key)
	if raw == nil {
		return nil, false
	}
	claims, ok := raw.(*JWTClaims)
	return claims, ok && claims != nil
}

// GetRouterSession rebuilds the SessionView from the claims stored by the
// session middleware
func GetRouterSession(ctx router.Context, key string) (*SessionView, bool) {
	claims, ok := GetRouterClaims(ctx, key)
	if !ok {
		return nil, false
	}
	session, err := SessionFromClaims(claims)
	if err != nil {
		return nil, false
	}
	return session, true
}
