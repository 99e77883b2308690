package auth

import (
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/sigle/sigle-auth/middleware/jwtware"
)

type RouteAuthenticator struct {
	auth          Authenticator
	cfg           Config
	cookies       CookiePolicy
	validator     TokenValidator
	contextKey    string
	listeners     []ValidationListener
	sessionMaxAge time.Duration
	Logger        Logger
	ErrorHandler  func(c router.Context, err error) error
}

// NewHTTPAuthenticator binds an Authenticator to session cookies written
// according to the policy.
func NewHTTPAuthenticator(auther Authenticator, cfg Config, cookies CookiePolicy) (*RouteAuthenticator, error) {
	if auther == nil {
		return nil, errors.New("authenticator is required", errors.CategoryInternal)
	}

	maxAge := cfg.GetSessionMaxAge()
	if maxAge <= 0 {
		maxAge = DefaultSessionMaxAge
	}

	a := &RouteAuthenticator{
		cfg:           cfg,
		auth:          auther,
		cookies:       cookies,
		sessionMaxAge: maxAge,
		contextKey:    sessionContextKey(cfg),
		Logger:        defLogger{},
		validator: NewTokenService(
			[]byte(cfg.GetSigningKey()),
			maxAge,
			cfg.GetIssuer(),
			cfg.GetAudience(),
			defLogger{},
		),
	}

	a.ErrorHandler = a.defaultErrHandler

	return a, nil
}

// WithLogger sets the logger
func (a *RouteAuthenticator) WithLogger(logger Logger) *RouteAuthenticator {
	a.Logger = normalizeLogger(logger)
	return a
}

// WithTokenValidator overrides the validator used by ProtectedRoute
func (a *RouteAuthenticator) WithTokenValidator(v TokenValidator) *RouteAuthenticator {
	if v != nil {
		a.validator = v
	}
	return a
}

// WithContextKey changes where ProtectedRoute stores the claims
func (a *RouteAuthenticator) WithContextKey(key string) *RouteAuthenticator {
	if key != "" {
		a.contextKey = key
	}
	return a
}

// ContextKey is the key ProtectedRoute stores the claims under
func (a *RouteAuthenticator) ContextKey() string {
	return a.contextKey
}

// WithValidationListeners adds checks run on every validated session
func (a *RouteAuthenticator) WithValidationListeners(listeners ...ValidationListener) *RouteAuthenticator {
	a.listeners = append(a.listeners, listeners...)
	return a
}

// CookiePolicy returns the policy used to write cookies
func (a *RouteAuthenticator) CookiePolicy() CookiePolicy {
	return a.cookies
}

func (a *RouteAuthenticator) GetCookieDuration() time.Duration {
	return a.sessionMaxAge
}

// SignIn exchanges the credential for a session and writes the session cookie
func (a *RouteAuthenticator) SignIn(ctx router.Context, cred Credential) (*User, error) {
	token, user, err := a.auth.SignIn(ctx.Context(), cred)
	if err != nil {
		return nil, err
	}

	ctx.Cookie(a.cookies.SessionCookie(token, time.Now().Add(a.sessionMaxAge)))
	return user, nil
}

// SignOut clears the session cookie
func (a *RouteAuthenticator) SignOut(ctx router.Context) {
	ctx.Cookie(a.cookies.ClearSessionCookie())
}

// Session reads the session from the request cookie
func (a *RouteAuthenticator) Session(ctx router.Context) (*SessionView, error) {
	raw := ctx.Cookies(a.cookies.SessionCookieName())
	if raw == "" {
		return nil, ErrUnableToFindSession
	}
	return a.auth.SessionFromToken(raw)
}

// ProtectedRoute validates the session cookie and stores the claims under
// the configured context key.
func (a *RouteAuthenticator) ProtectedRoute(errorHandler func(router.Context, error) error) router.MiddlewareFunc {
	if errorHandler == nil {
		errorHandler = a.MakeClientRouteAuthErrorHandler(false)
	}

	validator := a.validator

	cfg := jwtware.Config{
		ErrorHandler: errorHandler,
		ContextKey:   a.contextKey,
		TokenLookup:  "cookie:" + a.cookies.SessionCookieName(),
		TokenValidator: jwtware.TokenValidatorFunc(func(raw string) (jwtware.Claims, error) {
			claims, err := validator.Validate(raw)
			if err != nil {
				return nil, err
			}
			return claims, nil
		}),
		ContextEnricher: ContextEnricherAdapter,
	}
	RegisterValidationListeners(&cfg, a.listeners...)

	return jwtware.New(cfg)
}

// MakeClientRouteAuthErrorHandler returns an error handler for protected
// routes. Optional routes proceed without a session.
func (a *RouteAuthenticator) MakeClientRouteAuthErrorHandler(optional bool) func(router.Context, error) error {
	return func(ctx router.Context, err error) error {
		var richErr *errors.Error

		if IsTokenExpiredError(err) {
			richErr = ErrTokenExpired
		} else if IsMalformedError(err) {
			richErr = ErrTokenMalformed
		} else {
			richErr = errors.Wrap(err, errors.CategoryAuth, "Invalid session token").
				WithCode(errors.CodeUnauthorized)
		}

		if optional {
			a.Logger.Debug("Optional auth failed, proceeding", "error", richErr.Message)
			return ctx.Next()
		}

		return a.ErrorHandler(ctx, richErr)
	}
}

func (a *RouteAuthenticator) defaultErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	a.Logger.Info(
		"Middleware error handler",
		"error", richErr.Message,
		"category", richErr.Category,
		"details", print.MaybePrettyJSON(richErr.Metadata),
	)

	switch richErr.Category {
	case errors.CategoryAuth, errors.CategoryAuthz:
		return c.JSON(router.StatusUnauthorized, map[string]string{
			"error": "Unauthorized",
		})
	default:
		return c.JSON(router.StatusInternalServerError, map[string]string{
			"error": "InternalError",
		})
	}
}

func sessionContextKey(cfg Config) string {
	if cfg == nil || cfg.GetContextKey() == "" {
		return DefaultContextKey
	}
	return cfg.GetContextKey()
}
