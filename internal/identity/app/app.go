package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aussiebroadwan/docsauth/internal/identity/catalog"
	httpapi "github.com/aussiebroadwan/docsauth/internal/identity/http"
	"github.com/aussiebroadwan/docsauth/internal/identity/service"
	"github.com/aussiebroadwan/docsauth/internal/identity/store"
	"github.com/aussiebroadwan/docsauth/internal/identity/store/drivers/memory"
	"github.com/aussiebroadwan/docsauth/internal/identity/store/drivers/sqlite"
	"github.com/aussiebroadwan/docsauth/pkg/jwtx"
	"github.com/aussiebroadwan/docsauth/pkg/metricsx"
	"github.com/aussiebroadwan/docsauth/pkg/slogx"
)

// BuildVersion is overridden at build time via ldflags.
var BuildVersion = "v0.1.0"

// Application is the identity provider with all its dependencies.
type Application struct {
	cfg     Config
	logger  *slog.Logger
	catalog *catalog.Catalog

	db         store.Store
	keyManager *jwtx.KeyManager
	metrics    *metricsx.Metrics

	clientService       *service.ClientService
	authorizeService    *service.AuthorizeService
	tokenService        *service.TokenService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New validates the catalog and builds the application.
func New(cfg Config, cat *catalog.Catalog) (*Application, error) {
	app := &Application{
		cfg:     cfg,
		catalog: cat,
		logger: slogx.New(slogx.Config{
			Service: "identity",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := cat.Assert(cfg.Env, app.logger); err != nil {
		return nil, err
	}

	if err := app.initStore(); err != nil {
		return nil, err
	}

	km, err := InitSigningKeys(context.Background(), cfg, app.db, app.logger)
	if err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("failed to initialize signing keys: %w", err)
	}
	app.keyManager = km

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Handler returns the fully wired router.
func (app *Application) Handler() http.Handler { return app.router }

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("identity provider starting",
		"port", app.cfg.Port,
		"issuer", app.cfg.Issuer,
		"store", app.cfg.StoreDriver,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		app.housekeepingService.Stop()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}
	return nil
}

// Shutdown drains the server, stops background work and closes the store.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down identity provider")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing store", "error", err)
		return err
	}

	app.logger.Info("identity provider stopped")
	return nil
}

func (app *Application) initStore() error {
	switch app.cfg.StoreDriver {
	case "memory", "":
		app.db = memory.NewStore()
		return nil
	case "sqlite":
		db, err := sqlite.NewStore("file:" + app.cfg.DatabaseFile)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		if err := db.ApplyMigrations(); err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to apply database migrations: %w", err)
		}
		app.db = db
		app.logger.Info("database migrations applied", "file", app.cfg.DatabaseFile)
		return nil
	default:
		return fmt.Errorf("unknown store driver %q", app.cfg.StoreDriver)
	}
}

func (app *Application) initServices() {
	app.metrics = metricsx.New("identity")

	app.clientService = &service.ClientService{Catalog: app.catalog}
	app.authorizeService = &service.AuthorizeService{
		Catalog: app.catalog,
		Store:   app.db,
		CodeTTL: app.cfg.CodeTTL,
	}
	app.tokenService = &service.TokenService{
		Catalog:    app.catalog,
		Store:      app.db,
		KeyManager: app.keyManager,
		Issuer:     app.cfg.Issuer,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.keyManager,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
	app.housekeepingService.RotateEvery = app.cfg.KeyRotationInterval
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.catalog,
		app.keyManager,
		app.db,
		app.cfg.Issuer,
		BuildVersion,
		app.logger,
	)
	if app.cfg.Limits != (httpapi.Limits{}) {
		router.Limits = app.cfg.Limits
	}
	router.Metrics = app.metrics
	router.ClientService = app.clientService
	router.AuthorizeService = app.authorizeService
	router.TokenService = app.tokenService
	router.ApplyRoutes()
	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
