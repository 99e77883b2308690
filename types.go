package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-router"
)

// Logger is the logging contract used across the package. Arguments after
// the message are key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Authenticator exchanges wallet credentials for session tokens
type Authenticator interface {
	SignIn(ctx context.Context, credential Credential) (string, *User, error)
	SessionFromToken(token string) (*SessionView, error)
}

// HTTPAuthenticator binds the Authenticator to router contexts and cookies
type HTTPAuthenticator interface {
	SignIn(c router.Context, credential Credential) (*User, error)
	SignOut(c router.Context)
	Session(c router.Context) (*SessionView, error)
	ProtectedRoute(errorHandler func(router.Context, error) error) router.MiddlewareFunc
	ContextKey() string
}

// SignatureVerifier confirms a signed sign-in message. It is treated as a
// trusted primitive: on success it returns the address that signed the
// message for the expected domain and nonce.
type SignatureVerifier interface {
	Verify(ctx context.Context, params VerifyParams) (VerifiedIdentity, error)
}

// VerifyParams holds the inputs of a signature verification
type VerifyParams struct {
	Message   string
	Signature string
	Domain    string
	Nonce     string
}

// IdentitySyncer maps a verified wallet address to a stable user id held
// by the service of record.
type IdentitySyncer interface {
	SyncUser(ctx context.Context, address string) (string, error)
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetIssuer() string
	GetAudience() []string
	GetSessionMaxAge() time.Duration
	GetAppURL() string
	GetIsPreview() bool
	GetContextKey() string
}

type defLogger struct{}

func (d defLogger) Error(msg string, args ...any) {
	fmt.Println("[ERR] AUTH " + msg + formatArgs(args))
}

func (d defLogger) Warn(msg string, args ...any) {
	fmt.Println("[WRN] AUTH " + msg + formatArgs(args))
}

func (d defLogger) Info(msg string, args ...any) {
	fmt.Println("[INF] AUTH " + msg + formatArgs(args))
}

func (d defLogger) Debug(msg string, args ...any) {
	fmt.Println("[DBG] AUTH " + msg + formatArgs(args))
}

func formatArgs(args []any) string {
	var b strings.Builder
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
			continue
		}
		fmt.Fprintf(&b, " %v", args[i])
	}
	return b.String()
}

func normalizeLogger(l Logger) Logger {
	if l == nil {
		return defLogger{}
	}
	return l
}
