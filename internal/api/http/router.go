package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/docsauth/internal/api/authn"
	"github.com/aussiebroadwan/docsauth/internal/api/endpoint"
	"github.com/aussiebroadwan/docsauth/pkg/httpx"
	"github.com/aussiebroadwan/docsauth/pkg/metricsx"
	"github.com/aussiebroadwan/docsauth/pkg/slogx"
	"github.com/go-chi/chi/v5"
)

// Documentation routes.
const (
	PathDoc = "/swagger/v1/swagger.json"
	PathUI  = "/swagger/*"
)

// Options configure the API router.
type Options struct {
	Logger        *slog.Logger
	Metrics       *metricsx.Metrics
	Verifier      httpx.TokenVerifier
	DefaultScopes []string
	CORSAllowAll  bool
	Version       string
	Values        *ValueStore
}

// Router is the protected API. Groups is what was mounted, for the
// documentation builders.
type Router struct {
	chi.Router
	Groups []endpoint.Group
}

// NewRouter mounts the API, health and metrics routes.
func NewRouter(opts Options) *Router {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Values == nil {
		opts.Values = NewValueStore("value1", "value2")
	}

	r := chi.NewRouter()
	r.Use(slogx.HTTPMiddleware(opts.Logger))
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware(routePattern))
	}
	if opts.CORSAllowAll {
		r.Use(httpx.CORS(httpx.CORSOptions{AllowAll: true}))
	}

	var guard endpoint.Guard
	if opts.Verifier != nil {
		guard = authn.Guard(opts.Verifier)
	}
	groups := Groups(opts.Values)
	endpoint.Mount(r, groups, opts.DefaultScopes, guard)

	r.Get("/livez", LivezHandler(time.Now(), opts.Version))
	r.Get("/readyz", ReadyzHandler(opts.Version, opts.Verifier))
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	return &Router{Router: r, Groups: groups}
}

// MountDocs serves the API description and the UI.
func (rt *Router) MountDocs(doc, ui http.Handler) {
	rt.Method(http.MethodGet, PathDoc, doc)
	rt.Handle(PathUI, ui)
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return rctx.RoutePattern()
	}
	return ""
}
