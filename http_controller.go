package auth

import (
	"fmt"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/sigle/sigle-auth/middleware/csrf"
)

const (
	errorCredentialsSignin = "CredentialsSignin"
	errorMissingCSRF       = "MissingCSRF"
)

func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) *AuthController {

	controller := NewAuthController(opts...)
	guard := controller.CSRF.Middleware()

	app.Get(controller.Routes.CSRF, controller.CSRFToken).
		SetName("auth.csrf.get")

	app.Post(controller.Routes.Callback, controller.CallbackCredentials).
		SetName("auth.callback.post")

	app.Get(controller.Routes.Session, controller.SessionShow).
		SetName("auth.session.get")

	app.Post(controller.Routes.SignOut, controller.SignOut, guard).
		SetName("auth.signout.post")

	app.Get(
		controller.Routes.Me,
		controller.Me,
		controller.Auther.ProtectedRoute(nil),
	).SetName("auth.me.get")

	return controller
}

type AuthControllerRoutes struct {
	CSRF     string
	Callback string
	Session  string
	SignOut  string
	Me       string
}

type AuthController struct {
	Debug        bool
	Logger       Logger
	Routes       *AuthControllerRoutes
	Auther       HTTPAuthenticator
	CSRF         *csrf.Protector
	ErrorHandler router.ErrorHandler
}

type AuthControllerOption func(*AuthController) *AuthController

// WithAuthenticator sets the HTTPAuthenticator used by the controller
func WithAuthenticator(auther HTTPAuthenticator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = auther
		return c
	}
}

// WithCSRFProtector sets the double-submit protector
func WithCSRFProtector(p *csrf.Protector) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.CSRF = p
		return c
	}
}

// WithControllerLogger sets the controller logger
func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Logger = normalizeLogger(logger)
		return c
	}
}

// WithControllerDebug prints bound payloads
func WithControllerDebug(debug bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Debug = debug
		return c
	}
}

// WithRoutesPrefix mounts the routes under a different base path
func WithRoutesPrefix(prefix string) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Routes = defaultRoutes(prefix)
		return c
	}
}

func defaultRoutes(prefix string) *AuthControllerRoutes {
	return &AuthControllerRoutes{
		CSRF:     prefix + "/csrf",
		Callback: prefix + "/callback/credentials",
		Session:  prefix + "/session",
		SignOut:  prefix + "/signout",
		Me:       prefix + "/me",
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
		Routes: defaultRoutes("/api/auth"),
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Auther == nil {
		panic("Missing HTTPAuthenticator in auth controller...")
	}

	if c.CSRF == nil {
		panic("Missing CSRF protector in auth controller...")
	}

	if c.ErrorHandler == nil {
		c.ErrorHandler = c.defaultErrHandler
	}

	return c
}

// CSRFToken returns the token the client signs as nonce
func (a *AuthController) CSRFToken(ctx router.Context) error {
	return csrf.TokenHandler(a.CSRF)(ctx)
}

// CallbackCredentials is the sign-in endpoint. Every outcome rotates the
// csrf token so the nonce cannot sign a second message.
func (a *AuthController) CallbackCredentials(ctx router.Context) error {
	payload := new(Credential)

	defer func() {
		if _, err := a.CSRF.Rotate(ctx); err != nil {
			a.Logger.Error("failed to rotate csrf token", "error", err)
		}
	}()

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Debug("sign-in payload bind error", "error", err)
		return a.denied(ctx)
	}

	if a.Debug {
		fmt.Println("======= AUTH SIGN-IN ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("===========================")
	}

	if err := a.CSRF.Verify(ctx, payload.CSRFToken); err != nil {
		a.Logger.Info("sign-in csrf check failed", "error", err)
		return ctx.JSON(router.StatusForbidden, map[string]string{
			"error": errorMissingCSRF,
		})
	}

	user, err := a.Auther.SignIn(ctx, *payload)
	if err != nil {
		if errors.Is(err, ErrCredentialsSignin) {
			return a.denied(ctx)
		}
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"user": user,
	})
}

// SessionShow returns the session object, or null without a valid session
func (a *AuthController) SessionShow(ctx router.Context) error {
	ctx.SetHeader("Cache-Control", "no-store, max-age=0")

	session, err := a.Auther.Session(ctx)
	if err != nil {
		if !errors.Is(err, ErrUnableToFindSession) {
			a.Logger.Debug("session read failed", "error", err)
		}
		return ctx.JSON(router.StatusOK, nil)
	}

	return ctx.JSON(router.StatusOK, session)
}

// SignOut clears the session cookie
func (a *AuthController) SignOut(ctx router.Context) error {
	a.Auther.SignOut(ctx)
	return ctx.JSON(router.StatusOK, map[string]any{
		"url": "/",
	})
}

// Me is a protected route returning the caller's session
func (a *AuthController) Me(ctx router.Context) error {
	session, ok := GetRouterSession(ctx, a.Auther.ContextKey())
	if !ok {
		return ctx.JSON(router.StatusUnauthorized, map[string]string{
			"error": "Unauthorized",
		})
	}
	return ctx.JSON(router.StatusOK, session)
}

func (a *AuthController) denied(ctx router.Context) error {
	return ctx.JSON(router.StatusUnauthorized, map[string]string{
		"error": errorCredentialsSignin,
	})
}

func (a *AuthController) defaultErrHandler(c router.Context, err error) error {
	a.Logger.Error("auth controller error", "error", err)
	return c.JSON(router.StatusInternalServerError, map[string]string{
		"error": "Configuration",
	})
}
