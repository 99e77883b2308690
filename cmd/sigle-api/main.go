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
	"github.com/sigle/sigle-auth/api"
	"github.com/sigle/sigle-auth/config"
	"github.com/sigle/sigle-auth/logging"
	"github.com/sigle/sigle-auth/metrics"
	"github.com/sigle/sigle-auth/newsletter"
	"github.com/uptrace/bun"
)

type App struct {
	config  *config.Config
	logger  *logging.Logger
	metrics *metrics.Metrics
	db      *bun.DB
	repo    api.RepositoryManager
	srv     router.Server[*fiber.App]
}

func main() {
	cfg, err := config.Load("sigle-api", os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if err := cfg.ValidateAPIService(); err != nil {
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

	if err := WithPersistence(ctx, app); err != nil {
		panic(err)
	}
	defer app.db.Close()

	WithHTTPServer(app)

	if app.config.MetricsAddr != "" {
		go func() {
			if err := app.metrics.Serve(ctx, app.config.MetricsAddr); err != nil {
				app.logger.Error("metrics server stopped", "error", err)
			}
		}()
	}

	app.logger.Info("api listening", "addr", cfg.HTTPAddr)
	go app.srv.Serve(cfg.HTTPAddr)

	sig := WaitExitSignal()
	app.logger.Info("shutting down", "signal", sig.String())
}

func WithPersistence(ctx context.Context, app *App) error {
	db, err := api.OpenDB(app.config.DatabaseDSN)
	if err != nil {
		return err
	}

	group, err := api.Migrate(ctx, db)
	if err != nil {
		_ = db.Close()
		return err
	}

	if group.IsZero() {
		app.logger.Info("no new migrations")
	} else {
		app.logger.Info("migrated", "group", group.String())
	}

	repo := api.NewRepositoryManager(db)
	if err := repo.Validate(); err != nil {
		_ = db.Close()
		return err
	}

	app.db = db
	app.repo = repo
	return nil
}

func WithHTTPServer(app *App) {
	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:      true,
			EnablePrintRoutes: !app.config.IsProduction(),
		}))
	})

	srv.Router().Use(app.metrics.Middleware())

	controller := api.NewController(
		app.repo,
		app.config.InternalAPIToken,
		newsletter.New(app.config.IsProduction()),
		api.WithLogger(app.logger.Named("api")),
		api.WithHashid(app.config.UseHashid),
	)
	api.RegisterRoutes(srv.Router(), controller)

	app.srv = srv
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
