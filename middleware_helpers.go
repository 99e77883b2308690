package auth

import (
	"context"

	"github.com/sigle/sigle-auth/middleware/jwtware"
)

// ValidationListener aliases the jwtware listener so consumers can use auth helpers directly.
type ValidationListener = jwtware.ValidationListener

// ContextEnricherAdapter stores the validated claims and the session view
// in the standard context for downstream handlers.
func ContextEnricherAdapter(c context.Context, claims jwtware.Claims) context.Context {
	jc, ok := claims.(*JWTClaims)
	if !ok {
		return c
	}

	c = WithClaimsContext(c, jc)
	if session, err := SessionFromClaims(jc); err == nil {
		c = WithSessionContext(c, session)
	}
	return c
}

// RegisterValidationListeners appends listeners to a jwtware.Config in a safe, reusable way.
func RegisterValidationListeners(cfg *jwtware.Config, listeners ...ValidationListener) {
	if cfg == nil || len(listeners) == 0 {
		return
	}
	cfg.ValidationListeners = append(cfg.ValidationListeners, listeners...)
}
