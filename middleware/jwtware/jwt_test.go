package jwtware_test

import (
	"errors"
	"testing"

	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigle/sigle-auth/middleware/jwtware"
)

type testClaims struct {
	id      string
	address string
}

func (c testClaims) UserID() string        { return c.id }
func (c testClaims) WalletAddress() string { return c.address }

type routerContext = router.Context

// fakeContext implements the handful of router.Context methods the
// middleware touches. Anything else panics through the nil embed.
type fakeContext struct {
	routerContext
	cookies map[string]string
	headers map[string]string
	locals  map[any]any
}

var _ router.Context = (*fakeContext)(nil)

func newFakeContext() *fakeContext {
	return &fakeContext{
		cookies: map[string]string{},
		headers: map[string]string{},
		locals:  map[any]any{},
	}
}

func (f *fakeContext) Cookies(key string, def ...string) string {
	if v, ok := f.cookies[key]; ok {
		return v
	}
	if len(def) > 0 {
		return def[0]
	}
	return ""
}

func (f *fakeContext) Header(key string) string {
	return f.headers[key]
}

func (f *fakeContext) Locals(key any, value ...any) any {
	if len(value) > 0 {
		f.locals[key] = value[0]
		return value[0]
	}
	return f.locals[key]
}

var errInvalid = errors.New("token is malformed")

func validator(valid string) jwtware.TokenValidator {
	return jwtware.TokenValidatorFunc(func(raw string) (jwtware.Claims, error) {
		if raw != valid {
			return nil, errInvalid
		}
		return testClaims{id: "user-1", address: "SP2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKNRV9EJ7"}, nil
	})
}

func passthrough(called *bool) router.HandlerFunc {
	return func(ctx router.Context) error {
		*called = true
		return nil
	}
}

func returnErr(_ router.Context, err error) error {
	return err
}

func TestSessionCookieExtraction(t *testing.T) {
	mw := jwtware.New(jwtware.Config{
		TokenValidator: validator("good-token"),
		ErrorHandler:   returnErr,
		TokenLookup:    "cookie:__Secure-authjs.session-token",
	})

	var called bool
	handler := mw(passthrough(&called))

	ctx := newFakeContext()
	ctx.cookies["__Secure-authjs.session-token"] = "good-token"

	require.NoError(t, handler(ctx))
	assert.True(t, called)

	claims, ok := ctx.locals["session"].(jwtware.Claims)
	require.True(t, ok)
	assert.Equal(t, "user-1", claims.UserID())
}

func TestMissingCookie(t *testing.T) {
	mw := jwtware.New(jwtware.Config{
		TokenValidator: validator("good-token"),
		ErrorHandler:   returnErr,
	})

	var called bool
	err := mw(passthrough(&called))(newFakeContext())

	assert.ErrorIs(t, err, jwtware.ErrJWTMissingOrMalformed)
	assert.False(t, called)
}

func TestInvalidToken(t *testing.T) {
	mw := jwtware.New(jwtware.Config{
		TokenValidator: validator("good-token"),
		ErrorHandler:   returnErr,
	})

	ctx := newFakeContext()
	ctx.cookies["authjs.session-token"] = "forged"

	var called bool
	err := mw(passthrough(&called))(ctx)

	assert.ErrorIs(t, err, errInvalid)
	assert.False(t, called)
	assert.Nil(t, ctx.locals["session"])
}

func TestHeaderFallback(t *testing.T) {
	mw := jwtware.New(jwtware.Config{
		TokenValidator: validator("good-token"),
		ErrorHandler:   returnErr,
		TokenLookup:    "cookie:authjs.session-token, header:Authorization",
		ContextKey:     "claims",
	})

	ctx := newFakeContext()
	ctx.headers["Authorization"] = "Bearer good-token"

	var called bool
	require.NoError(t, mw(passthrough(&called))(ctx))
	assert.True(t, called)
	assert.NotNil(t, ctx.locals["claims"])
}

func TestValidationListenerRejects(t *testing.T) {
	blocked := errors.New("blocked")
	mw := jwtware.New(jwtware.Config{
		TokenValidator: validator("good-token"),
		ErrorHandler:   returnErr,
		ValidationListeners: []jwtware.ValidationListener{
			nil,
			func(ctx router.Context, claims jwtware.Claims) error {
				return blocked
			},
		},
	})

	ctx := newFakeContext()
	ctx.cookies["authjs.session-token"] = "good-token"

	var called bool
	assert.ErrorIs(t, mw(passthrough(&called))(ctx), blocked)
	assert.False(t, called)
}

func TestFilterSkipsValidation(t *testing.T) {
	mw := jwtware.New(jwtware.Config{
		TokenValidator: validator("good-token"),
		ErrorHandler:   returnErr,
		Filter:         func(router.Context) bool { return true },
	})

	var called bool
	require.NoError(t, mw(passthrough(&called))(newFakeContext()))
	assert.True(t, called)
}

func TestGetExtractors(t *testing.T) {
	extractors := jwtware.GetExtractors("header:Authorization,cookie:a,query:token,bogus")
	assert.Len(t, extractors, 3)
}

func TestMissingValidatorPanics(t *testing.T) {
	assert.Panics(t, func() {
		jwtware.GetDefaultConfig(jwtware.Config{})
	})
}
