package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Authorizer decides whether a credential yields an identity
type Authorizer interface {
	Authorize(ctx context.Context, cred Credential) AuthorizationResult
}

// AuthorizerFunc adapts a function to the Authorizer interface
type AuthorizerFunc func(ctx context.Context, cred Credential) AuthorizationResult

// Authorize implements Authorizer
func (f AuthorizerFunc) Authorize(ctx context.Context, cred Credential) AuthorizationResult {
	return f(ctx, cred)
}

type Auther struct {
	authorizer     Authorizer
	signingKey     []byte
	sessionMaxAge  time.Duration
	issuer         string
	audience       []string
	logger         Logger
	tokenService   TokenService
	tokenValidator TokenValidator
	activitySink   ActivitySink
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(authorizer Authorizer, opts Config) *Auther {
	tokenService := NewTokenService(
		[]byte(opts.GetSigningKey()),
		opts.GetSessionMaxAge(),
		opts.GetIssuer(),
		opts.GetAudience(),
		defLogger{},
	)

	return &Auther{
		authorizer:    authorizer,
		signingKey:    []byte(opts.GetSigningKey()),
		sessionMaxAge: tokenService.MaxAge(),
		audience:      opts.GetAudience(),
		issuer:        opts.GetIssuer(),
		logger:        defLogger{},
		tokenService:  tokenService,
		activitySink:  noopActivitySink{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	s.logger = normalizeLogger(logger)
	s.tokenService = NewTokenService(
		s.signingKey,
		s.sessionMaxAge,
		s.issuer,
		jwt.ClaimStrings(s.audience),
		s.logger,
	)
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// WithTokenValidator sets the validator used to read sessions, e.g. a
// MultiTokenValidator while rotating secrets.
func (s *Auther) WithTokenValidator(validator TokenValidator) *Auther {
	s.tokenValidator = validator
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// SessionMaxAge returns the lifetime of issued sessions
func (s *Auther) SessionMaxAge() time.Duration {
	return s.sessionMaxAge
}

// SignIn authorizes the credential and issues a session token for the
// resulting user. Any denial surfaces as ErrCredentialsSignin; the cause is
// only visible to diagnostics and the activity sink.
func (s *Auther) SignIn(ctx context.Context, cred Credential) (string, *User, error) {
	if s.authorizer == nil {
		s.logger.Error("SignIn called without authorizer")
		return "", nil, ErrCredentialsSignin
	}

	result := s.authorizer.Authorize(ctx, cred)
	if !result.Authorized() {
		s.logger.Info("SignIn denied", "reason", string(result.Reason))
		meta := map[string]any{}
		if result.Err != nil {
			meta["error"] = result.Err.Error()
		}
		s.emitAuthEvent(ctx, ActivityEvent{
			EventType: ActivityEventSignInFailure,
			Reason:    result.Reason,
			Metadata:  meta,
		})
		return "", nil, ErrCredentialsSignin
	}

	token, _, err := s.tokenService.Issue(result.User)
	if err != nil {
		s.logger.Error("SignIn failed to issue token", "error", err)
		s.emitAuthEvent(ctx, ActivityEvent{
			EventType: ActivityEventSignInFailure,
			UserID:    result.User.ID,
			Address:   result.User.Address,
			Metadata:  map[string]any{"error": err.Error()},
		})
		return "", nil, err
	}

	s.emitAuthEvent(ctx, ActivityEvent{
		EventType: ActivityEventSignInSuccess,
		UserID:    result.User.ID,
		Address:   result.User.Address,
	})

	return token, result.User, nil
}

func (s *Auther) SessionFromToken(raw string) (*SessionView, error) {
	var validator TokenValidator = s.tokenService
	if s.tokenValidator != nil {
		validator = s.tokenValidator
	}

	claims, err := validator.Validate(raw)
	if err != nil {
		s.logger.Debug("SessionFromToken validation failed", "error", err)
		return nil, err
	}

	session, err := SessionFromClaims(claims)
	if err != nil {
		s.logger.Error("SessionFromToken failed to create session from claims", "error", err)
		return nil, err
	}

	return session, nil
}

func (s *Auther) emitAuthEvent(ctx context.Context, event ActivityEvent) {
	sink := normalizeActivitySink(s.activitySink)

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	if err := sink.Record(ctx, event); err != nil {
		s.logger.Warn("activity sink record error", "error", err)
	}
}
