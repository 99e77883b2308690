package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/sigle/sigle-auth"
	"github.com/sigle/sigle-auth/activitymap"
	"github.com/sigle/sigle-auth/config"
	"github.com/sigle/sigle-auth/logging"
	"github.com/sigle/sigle-auth/loginsync"
	"github.com/sigle/sigle-auth/metrics"
	"github.com/sigle/sigle-auth/middleware/csrf"
	"github.com/sigle/sigle-auth/noncestore"
	"github.com/sigle/sigle-auth/siws"
)

type App struct {
	config  *config.Config
	logger  *logging.Logger
	metrics *metrics.Metrics
	srv     router.Server[*fiber.App]
	auther  *auth.RouteAuthenticator
	nonces  auth.NonceStore
}

func (a *App) GetLogger(name string) *logging.Logger {
	return a.logger.Named(name)
}

func main() {
	cfg, err := config.Load("sigle-auth", os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if err := cfg.ValidateAuthService(); err != nil {
		fmt.Fprintln(os.Stderr, print.MaybePrettyJSON(err))
		os.Exit(2)
	}

	lgr, err := logging.New(cfg.LogLevel, !cfg.IsProduction())
	if err != nil {
		panic(err)
	}
	defer func() { _ = lgr.Sync() }()

	app := &App{
		config:  cfg,
		logger:  lgr,
		metrics: metrics.New(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := WithNonceStore(ctx, app); err != nil {
		panic(err)
	}

	if err := WithHTTPServer(ctx, app); err != nil {
		panic(err)
	}

	if err := WithHTTPAuth(ctx, app); err != nil {
		panic(err)
	}

	WithMetricsServer(ctx, app)

	app.logger.Info("sign-in service listening", "addr", cfg.HTTPAddr, "app_url", cfg.AppURL)
	go app.srv.Serve(cfg.HTTPAddr)

	sig := WaitExitSignal()
	app.logger.Info("shutting down", "signal", sig.String())
}

func WithNonceStore(ctx context.Context, app *App) error {
	if app.config.RedisAddr == "" {
		app.nonces = auth.NewMemoryNonceStore(auth.DefaultNonceTTL)
		return nil
	}

	store, err := noncestore.Dial(ctx, app.config.RedisAddr, auth.DefaultNonceTTL)
	if err != nil {
		return err
	}
	app.nonces = store
	return nil
}

func WithHTTPServer(_ context.Context, app *App) error {
	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:      true,
			EnablePrintRoutes: !app.config.IsProduction(),
			StrictRouting:     false,
		}))
	})

	srv.Router().Use(app.metrics.Middleware())

	app.srv = srv
	return nil
}

func WithHTTPAuth(_ context.Context, app *App) error {
	cfg := app.config

	domain, err := auth.AppDomain(cfg.GetAppURL())
	if err != nil {
		return err
	}

	cookieCtx, err := auth.CookieContextFromURL(cfg.GetAppURL(), cfg.GetIsPreview())
	if err != nil {
		return err
	}
	policy := auth.NewCookiePolicy(cookieCtx)

	syncer := loginsync.New(loginsync.Config{
		BaseURL: cfg.APIURL,
		Token:   cfg.InternalAPIToken,
	})

	authorizer := auth.NewCredentialAuthorizer(
		domain,
		siws.NewVerifier(cfg.SIWSMaxAge),
		app.metrics.ObserveSync(syncer),
	).
		WithLogger(app.GetLogger("auth:authz")).
		WithNonceStore(app.nonces).
		WithDiagnosticsReporter(auth.MultiReporter{
			auth.LoggerReporter{Logger: app.GetLogger("auth:diag")},
			app.metrics,
		})

	sessions := auth.NewSecretRotationValidator(cfg, app.GetLogger("auth:token"), cfg.PreviousSigningKeys()...)

	authenticator := auth.NewAuthenticator(authorizer, cfg).
		WithLogger(app.GetLogger("auth:session")).
		WithTokenValidator(sessions).
		WithActivitySink(auth.MultiActivitySink{
			app.metrics,
			activitymap.NewAuditSink(app.GetLogger("auth:audit")),
		})

	httpAuth, err := auth.NewHTTPAuthenticator(authenticator, cfg, policy)
	if err != nil {
		return err
	}
	httpAuth.WithLogger(app.GetLogger("auth:http")).WithTokenValidator(sessions)
	app.auther = httpAuth

	protector := csrf.NewProtector(csrf.Config{
		CookieName: policy.CSRFCookieName(),
		Cookie:     policy.CSRFCookie,
		SecureKey:  cfg.CSRFKey(),
	})

	auth.RegisterAuthRoutes(app.srv.Router(),
		auth.WithAuthenticator(httpAuth),
		auth.WithCSRFProtector(protector),
		auth.WithControllerLogger(app.GetLogger("auth:ctrl")),
		auth.WithControllerDebug(cfg.LogLevel == "debug"),
	)

	app.logger.Info("session cookies",
		"name", policy.SessionCookieName(),
		"secrets", sessions.Len(),
		"domain", policy.Domain(),
		"secure", policy.Secure(),
	)

	return nil
}

func WithMetricsServer(ctx context.Context, app *App) {
	if app.config.MetricsAddr == "" {
		return
	}

	go func() {
		if err := app.metrics.Serve(ctx, app.config.MetricsAddr); err != nil {
			app.logger.Error("metrics server stopped", "error", err)
		}
	}()
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
