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

	"github.com/aussiebroadwan/docsauth/internal/api/annex"
	"github.com/aussiebroadwan/docsauth/internal/api/authn"
	"github.com/aussiebroadwan/docsauth/internal/api/docs"
	httpapi "github.com/aussiebroadwan/docsauth/internal/api/http"
	"github.com/aussiebroadwan/docsauth/internal/api/swaggerui"
	"github.com/aussiebroadwan/docsauth/internal/identity/catalog"
	"github.com/aussiebroadwan/docsauth/pkg/httpx"
	"github.com/aussiebroadwan/docsauth/pkg/metricsx"
	"github.com/aussiebroadwan/docsauth/pkg/slogx"
)

// BuildVersion is overridden at build time via ldflags.
var BuildVersion = "v0.1.0"

// SwagInstance is the name the generated Swagger 2.0 document registers
// under.
const SwagInstance = "protected"

// Documentation metadata shared by both variants.
const (
	docTitle      = "Protected API"
	docVersion    = "v1"
	docScopeLabel = "Demo API - full access"
)

// Application is one documented API variant with all its dependencies.
type Application struct {
	cfg     Config
	logger  *slog.Logger
	catalog *catalog.Catalog
	metrics *metricsx.Metrics

	verifier httpx.TokenVerifier
	ui       swaggerui.UIConfig
	router   *httpapi.Router
	server   *http.Server
}

// New validates the configuration against the catalog and wires the API,
// its documentation and the UI.
func New(ctx context.Context, cfg Config, cat *catalog.Catalog) (*Application, error) {
	app := &Application{
		cfg:     cfg,
		catalog: cat,
		logger: slogx.New(slogx.Config{
			Service: "api-" + cfg.Variant,
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
		metrics: metricsx.New("api"),
	}

	if err := cat.Assert(cfg.Env, app.logger); err != nil {
		return nil, err
	}
	if _, ok := cat.Resource(cfg.Audience); !ok {
		return nil, fmt.Errorf("audience %q is not a registered API resource", cfg.Audience)
	}

	verifier, err := authn.New(authn.Config{
		Authority:            cfg.Authority,
		Audience:             cfg.Audience,
		Strategy:             cfg.Strategy,
		RequireHTTPSMetadata: cfg.RequireHTTPSMetadata,
		ResourceSecret:       cfg.ResourceSecret,
		CacheTTL:             cfg.IntrospectionTTL,
		Metrics:              app.metrics,
		Logger:               app.logger,
	})
	if err != nil {
		return nil, err
	}
	app.verifier = verifier

	app.router = httpapi.NewRouter(httpapi.Options{
		Logger:        app.logger,
		Metrics:       app.metrics,
		Verifier:      verifier,
		DefaultScopes: cfg.Scopes,
		CORSAllowAll:  cfg.CORSAllowAll,
		Version:       BuildVersion,
	})

	doc, err := app.buildDocument(ctx)
	if err != nil {
		return nil, err
	}
	docHandler, err := docs.JSONHandler(doc)
	if err != nil {
		return nil, fmt.Errorf("encode API document: %w", err)
	}

	app.ui, err = swaggerui.Configure(cat, swaggerui.Options{
		ClientID:           cfg.UIClientID,
		ClientSecret:       cfg.UIClientSecret,
		Flow:               uiFlow(cfg.Variant),
		PublicURL:          cfg.PublicURL,
		DocURL:             httpapi.PathDoc,
		Scopes:             cfg.Scopes,
		DisplayOperationID: cfg.Variant == VariantSwag,
	})
	if err != nil {
		return nil, err
	}
	app.router.MountDocs(docHandler, app.ui.Handler())

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           app.router,
		ReadHeaderTimeout: 3 * time.Second,
	}
	return app, nil
}

// uiFlow is the flow the variant's document declares. The UI client must
// support it.
func uiFlow(variant string) swaggerui.Flow {
	if variant == VariantOpenAPI {
		return swaggerui.FlowAuthorizationCodePKCE
	}
	return swaggerui.FlowClientSecret
}

func (app *Application) buildDocument(ctx context.Context) (any, error) {
	schemes := []string{docs.SchemeOAuth2}
	if app.cfg.Variant == VariantSwag {
		schemes = append(schemes, docs.SchemeOAuth2Password)
	}
	m, err := annex.Build(app.router, annex.Config{Schemes: schemes})
	if err != nil {
		return nil, fmt.Errorf("build security annex: %w", err)
	}
	app.logger.Info("security annex built", "operations", len(m))

	scopes := make(map[string]string, len(app.cfg.Scopes))
	for _, s := range app.cfg.Scopes {
		scopes[s] = docScopeLabel
	}
	opts := docs.Options{
		Title:     docTitle,
		Version:   docVersion,
		PublicURL: app.cfg.PublicURL,
		Authority: app.cfg.Authority,
		Scopes:    scopes,
	}

	switch app.cfg.Variant {
	case VariantSwag:
		return docs.BuildSwagger2(SwagInstance, m, opts)
	case VariantOpenAPI:
		return docs.BuildOpenAPI3(ctx, app.router.Groups, m, opts)
	default:
		return nil, fmt.Errorf("unknown documentation variant %q", app.cfg.Variant)
	}
}

// Handler returns the fully wired router.
func (app *Application) Handler() http.Handler { return app.router }

// UI returns the resolved documentation UI configuration.
func (app *Application) UI() swaggerui.UIConfig { return app.ui }

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.logger.Info("api starting",
		"port", app.cfg.Port,
		"variant", app.cfg.Variant,
		"authority", app.cfg.Authority,
		"ui_client", app.ui.ClientID,
		"ui_flow", string(app.ui.Flow),
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
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

// Shutdown drains the server.
func (app *Application) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if cerr := app.server.Close(); cerr != nil {
			app.logger.Error("error closing server", "error", cerr)
		}
		return err
	}
	app.logger.Info("api stopped")
	return nil
}
