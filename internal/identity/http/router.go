package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/docsauth/internal/identity/catalog"
	"github.com/aussiebroadwan/docsauth/internal/identity/service"
	"github.com/aussiebroadwan/docsauth/internal/identity/store"
	"github.com/aussiebroadwan/docsauth/pkg/authsdk"
	"github.com/aussiebroadwan/docsauth/pkg/httpx"
	"github.com/aussiebroadwan/docsauth/pkg/jwtx"
	"github.com/aussiebroadwan/docsauth/pkg/metricsx"
	"github.com/aussiebroadwan/docsauth/pkg/slogx"
)

// Limits are the rate limit profiles applied per endpoint family.
type Limits struct {
	Login      httpx.RateLimit
	Token      httpx.RateLimit
	Introspect httpx.RateLimit
	Public     httpx.RateLimit
}

// DefaultLimits returns the built-in profiles.
func DefaultLimits() Limits {
	return Limits{
		Login:      httpx.StrictLimit,
		Token:      httpx.StrictLimit,
		Introspect: httpx.ModerateLimit,
		Public:     httpx.PublicLimit,
	}
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	catalog      *catalog.Catalog
	keys         *jwtx.KeyManager
	store        store.Store
	issuer       string
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	cors         httpx.Middleware

	Limits           Limits
	Metrics          *metricsx.Metrics
	ClientService    *service.ClientService
	AuthorizeService *service.AuthorizeService
	TokenService     *service.TokenService
}

func NewRouter(
	cat *catalog.Catalog,
	km *jwtx.KeyManager,
	st store.Store,
	issuer, buildVersion string,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		catalog:      cat,
		keys:         km,
		store:        st,
		issuer:       issuer,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		Limits:       DefaultLimits(),
		cors: httpx.CORS(httpx.CORSOptions{
			AllowedOrigins: cat.CORSOrigins(),
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		}),
	}
	return r
}

// ApplyRoutes registers every endpoint. Services must be set first.
func (r *Router) ApplyRoutes() {
	r.middlewares = []httpx.Middleware{slogx.HTTPMiddleware(r.logger)}
	if r.Metrics != nil {
		r.middlewares = append(r.middlewares, r.Metrics.Middleware(nil))
		r.Mux.Handle("GET /metrics", r.Metrics.Handler())
	}

	r.registerDiscovery()
	r.registerOAuth2()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title						docsauth identity provider
//	@version					1.0
//	@description				OAuth2 and OpenID Connect endpoints backing the protected API and its documentation UI.
//	@BasePath					/
//	@securityDefinitions.basic	BasicAuth
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// handleCORS registers h for method and path, plus an OPTIONS route so
// browsers can preflight.
func (r *Router) handleCORS(method, path string, h http.Handler) {
	r.Mux.Handle(method+" "+path, httpx.Chain(h, r.cors))
	r.Mux.Handle(http.MethodOptions+" "+path, httpx.Chain(http.NotFoundHandler(), r.cors))
}

func (r *Router) registerDiscovery() {
	r.handleCORS(http.MethodGet, authsdk.PathDiscovery,
		httpx.Chain(DiscoveryHandler(r.issuer, r.catalog, r.keys),
			httpx.RateLimitByIP(r.Limits.Public),
		),
	)
	r.handleCORS(http.MethodGet, authsdk.PathJWKS,
		httpx.Chain(JWKSHandler(r.keys.KeySet()),
			httpx.RateLimitByIP(r.Limits.Public),
		),
	)
}

func (r *Router) registerOAuth2() {
	authorize := &AuthorizeHandler{Authorize: r.AuthorizeService}

	// GET only renders the form.
	r.Mux.Handle("GET "+authsdk.PathAuthorize,
		httpx.Chain(http.HandlerFunc(authorize.HandleGet),
			httpx.RateLimitByIP(r.Limits.Public),
		),
	)
	// POST checks credentials: keyed by IP and username against brute force.
	r.Mux.Handle("POST "+authsdk.PathAuthorize,
		httpx.Chain(http.HandlerFunc(authorize.HandlePost),
			httpx.RateLimitBy(r.Limits.Login, httpx.IPAndFormKey("username")),
		),
	)

	r.handleCORS(http.MethodPost, authsdk.PathToken,
		httpx.Chain(&TokenHandler{Clients: r.ClientService, Tokens: r.TokenService, Metrics: r.Metrics},
			httpx.RateLimitBy(r.Limits.Token, httpx.ClientIDKey),
		),
	)

	r.Mux.Handle("POST "+authsdk.PathIntrospect,
		httpx.Chain(&IntrospectHandler{Clients: r.ClientService, Tokens: r.TokenService},
			httpx.RateLimitBy(r.Limits.Introspect, httpx.ClientIDKey),
		),
	)

	r.Mux.Handle("POST "+authsdk.PathRevocation,
		httpx.Chain(&RevocationHandler{Clients: r.ClientService, Tokens: r.TokenService},
			httpx.RateLimitBy(r.Limits.Introspect, httpx.ClientIDKey),
		),
	)

	r.handleCORS(http.MethodGet, authsdk.PathUserInfo,
		httpx.Chain(&UserInfoHandler{Tokens: r.TokenService},
			httpx.RateLimitByIP(r.Limits.Introspect),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET "+authsdk.PathLiveness, LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET "+authsdk.PathReadiness, ReadyzHandler(r.startTime, r.buildVersion, r.store, r.keys))
}
