package csrf

import "github.com/goliatone/go-router"

// RouteConfig controls how the CSRF token bootstrap endpoint behaves.
type RouteConfig struct {
	// Path is the route registered for retrieving the CSRF token.
	Path string
	// RouteName is the name assigned to the registered route.
	RouteName string
}

const (
	defaultRoutePath = "/csrf"
	defaultRouteName = "auth.csrf.get"
)

// RegisterRoutes registers a GET endpoint that returns the token the client
// must embed as the nonce of its signed message.
func RegisterRoutes[T any](app router.Router[T], p *Protector, cfg ...RouteConfig) {
	conf := routeConfigDefault(cfg...)
	app.Get(conf.Path, TokenHandler(p)).SetName(conf.RouteName)
}

func routeConfigDefault(cfg ...RouteConfig) RouteConfig {
	conf := RouteConfig{
		Path:      defaultRoutePath,
		RouteName: defaultRouteName,
	}
	if len(cfg) == 0 {
		return conf
	}

	c := cfg[0]
	if c.Path != "" {
		conf.Path = c.Path
	}

	if c.RouteName != "" {
		conf.RouteName = c.RouteName
	}

	return conf
}

// TokenHandler responds with {"csrfToken": "..."}, issuing the cookie when
// the request has none.
func TokenHandler(p *Protector) router.HandlerFunc {
	return func(ctx router.Context) error {
		token, err := p.Ensure(ctx)
		if err != nil || token == "" {
			return ctx.JSON(router.StatusInternalServerError, map[string]string{
				"error": ErrTokenMissing.Error(),
			})
		}

		ctx.SetHeader("Cache-Control", "no-store, max-age=0")
		ctx.SetHeader("Pragma", "no-cache")
		ctx.SetHeader("Expires", "0")

		return ctx.JSON(router.StatusOK, map[string]string{
			"csrfToken": token,
		})
	}
}
