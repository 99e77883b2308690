package api

import (
	"crypto/subtle"
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-router"
	"github.com/sigle/sigle-auth/avatar"
	"github.com/sigle/sigle-auth/newsletter"
)

// Logger is the key/value logger used by the controller
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Routes holds the backend paths
type Routes struct {
	LoginUserSync string
	Profile       string
}

// DefaultRoutes are the paths the sign-in service and the web app call
var DefaultRoutes = Routes{
	LoginUserSync: "/api/internal/login-user-sync",
	Profile:       "/api/users/:address/profile",
}

// Controller serves the identity-sync endpoint and user profiles
type Controller struct {
	Routes     Routes
	Repo       RepositoryManager
	Sync       *LoginUserSyncHandler
	Newsletter newsletter.AllowList
	Logger     Logger
	UseHashid  bool
	token      string
}

// ControllerOption configures a Controller
type ControllerOption func(*Controller) *Controller

// WithLogger sets the controller logger
func WithLogger(logger Logger) ControllerOption {
	return func(c *Controller) *Controller {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

// WithHashid makes new user ids derive from the address
func WithHashid(enabled bool) ControllerOption {
	return func(c *Controller) *Controller {
		c.UseHashid = enabled
		return c
	}
}

// WithRoutes overrides the default paths
func WithRoutes(routes Routes) ControllerOption {
	return func(c *Controller) *Controller {
		c.Routes = routes
		return c
	}
}

// NewController builds a controller. internalToken is the bearer token the
// sign-in service must present.
func NewController(repo RepositoryManager, internalToken string, list newsletter.AllowList, opts ...ControllerOption) *Controller {
	c := &Controller{
		Routes:     DefaultRoutes,
		Repo:       repo,
		Sync:       NewLoginUserSyncHandler(repo),
		Newsletter: list,
		Logger:     nopLogger{},
		token:      internalToken,
	}

	for _, opt := range opts {
		if opt != nil {
			c = opt(c)
		}
	}

	if strings.TrimSpace(c.token) == "" {
		panic("api controller requires an internal api token")
	}

	return c
}

// RegisterRoutes mounts the controller on app
func RegisterRoutes[T any](app router.Router[T], c *Controller) *Controller {
	app.Post(c.Routes.LoginUserSync, c.LoginUserSync, c.RequireInternalToken()).
		SetName("api.login_user_sync.post")

	app.Get(c.Routes.Profile, c.ProfileShow).
		SetName("api.user_profile.get")

	return c
}

// RequireInternalToken rejects requests without the shared bearer token
func (c *Controller) RequireInternalToken() router.MiddlewareFunc {
	expected := []byte("Bearer " + c.token)
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			got := []byte(ctx.Header("Authorization"))
			if subtle.ConstantTimeCompare(got, expected) != 1 {
				return ctx.JSON(router.StatusUnauthorized, map[string]string{
					"error": "Unauthorized",
				})
			}
			return next(ctx)
		}
	}
}

// LoginUserSync returns the stable id for the posted address
func (c *Controller) LoginUserSync(ctx router.Context) error {
	payload := new(LoginUserSyncMessage)
	if err := ctx.Bind(payload); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]string{
			"error": "invalid request body",
		})
	}
	payload.UseHashid = c.UseHashid

	user, err := c.Sync.Execute(ctx.Context(), *payload)
	if err != nil {
		var richErr *errors.Error
		if errors.As(err, &richErr) && richErr.Category == errors.CategoryValidation {
			return ctx.JSON(router.StatusBadRequest, map[string]string{
				"error": "invalid address",
			})
		}
		c.Logger.Error("login user sync failed", "error", err)
		return ctx.JSON(router.StatusInternalServerError, map[string]string{
			"error": "internal error",
		})
	}

	c.Logger.Info("login user sync", "user_id", user.ID.String(), "login_count", user.LoginCount)

	return ctx.JSON(router.StatusOK, map[string]string{
		"id": user.ID.String(),
	})
}

// Profile is the public view of an address
type Profile struct {
	ID         string `json:"id,omitempty"`
	Address    string `json:"address"`
	Avatar     string `json:"avatar"`
	Newsletter bool   `json:"newsletter"`
}

// ProfileShow renders the public profile of an address. The id is only
// present once the address has signed in.
func (c *Controller) ProfileShow(ctx router.Context) error {
	address := strings.TrimSpace(ctx.Param("address"))
	if err := (LoginUserSyncMessage{Address: address}).Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]string{
			"error": "invalid address",
		})
	}

	profile := Profile{
		Address:    address,
		Avatar:     avatar.URL(address),
		Newsletter: c.Newsletter.Contains(address),
	}

	user, err := c.Repo.Users().GetByAddress(ctx.Context(), address)
	switch {
	case err == nil:
		profile.ID = user.ID.String()
	case repository.IsRecordNotFound(err):
	default:
		c.Logger.Error("profile lookup failed", "address", address, "error", err)
		return ctx.JSON(router.StatusInternalServerError, map[string]string{
			"error": "internal error",
		})
	}

	return ctx.JSON(router.StatusOK, profile)
}
