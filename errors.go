package auth

import (
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeCredentialsSignin = "credentials_signin"
	TextCodeTokenExpired      = "token_expired"
	TextCodeTokenMalformed    = "token_malformed"
	TextCodeSessionNotFound   = "session_not_found"
	TextCodeNonceReplayed     = "nonce_replayed"
)

// ErrCredentialsSignin is the only error a client sees when sign-in fails,
// whatever the cause.
var ErrCredentialsSignin = errors.New("sign-in failed", errors.CategoryAuth).
	WithTextCode(TextCodeCredentialsSignin).
	WithCode(errors.CodeUnauthorized)

// ErrTokenExpired is returned for session tokens past their expiration
var ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed is returned when a session token cannot be parsed or verified
var ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrUnableToFindSession is the error when our request has no session cookie
var ErrUnableToFindSession = errors.New("unable to find session", errors.CategoryAuth).
	WithTextCode(TextCodeSessionNotFound).
	WithCode(errors.CodeUnauthorized)

// ErrNonceReplayed is returned by nonce stores when a nonce was already consumed
var ErrNonceReplayed = errors.New("nonce already used", errors.CategoryAuth).
	WithTextCode(TextCodeNonceReplayed).
	WithCode(errors.CodeUnauthorized)

// ErrUnableToDecodeSession unable to decode JWT from session cookie
var ErrUnableToDecodeSession = errors.New("unable to decode session", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
