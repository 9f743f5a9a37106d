// Package authn binds the API to the identity provider: it verifies bearer
// tokens either locally against the provider's published keys or by asking
// the provider's introspection endpoint.
package authn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/aussiebroadwan/docsauth/internal/api/endpoint"
	"github.com/aussiebroadwan/docsauth/pkg/httpx"
	"github.com/aussiebroadwan/docsauth/pkg/metricsx"
)

// Verification strategies.
const (
	StrategyJWT           = "jwt"
	StrategyIntrospection = "introspection"
)

var (
	ErrInactive          = errors.New("authn: token is not active")
	ErrAudience          = errors.New("authn: token not issued for this API")
	ErrInsecureAuthority = errors.New("authn: authority must use https")
)

// Config binds the API to its identity provider.
type Config struct {
	Authority string // identity provider base URL, equal to its issuer
	Audience  string // API resource name the tokens must be issued for
	Strategy  string // jwt (default) or introspection

	// RequireHTTPSMetadata rejects plain http authorities.
	RequireHTTPSMetadata bool

	// Introspection only.
	ResourceSecret string
	CacheTTL       time.Duration

	HTTPClient *http.Client
	Metrics    *metricsx.Metrics
	Logger     *slog.Logger
}

// New validates cfg and returns the configured verifier.
func New(cfg Config) (httpx.TokenVerifier, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if err := CheckAuthority(cfg.Authority, cfg.RequireHTTPSMetadata, logger); err != nil {
		return nil, err
	}
	if cfg.Audience == "" {
		return nil, errors.New("authn: audience is required")
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	var v httpx.TokenVerifier
	strategy := cfg.Strategy
	switch strategy {
	case StrategyJWT, "":
		strategy = StrategyJWT
		v = NewJWTVerifier(cfg.Authority, cfg.Audience, client)
	case StrategyIntrospection:
		if cfg.ResourceSecret == "" {
			return nil, errors.New("authn: introspection requires the resource secret")
		}
		v = NewIntrospectionVerifier(cfg.Authority, cfg.Audience, cfg.ResourceSecret, cfg.CacheTTL, client)
	default:
		return nil, fmt.Errorf("authn: unknown strategy %q", cfg.Strategy)
	}

	logger.Info("bearer authentication configured",
		"strategy", strategy,
		"authority", cfg.Authority,
		"audience", cfg.Audience,
	)
	return Instrument(v, strategy, cfg.Metrics), nil
}

// CheckAuthority requires an absolute URL, and https when requireHTTPS is
// set. A plain http authority is otherwise allowed with a warning.
func CheckAuthority(authority string, requireHTTPS bool, logger *slog.Logger) error {
	u, err := url.Parse(authority)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("authn: authority %q is not an absolute http(s) URL", authority)
	}
	if u.Scheme == "https" {
		return nil
	}
	if requireHTTPS {
		return fmt.Errorf("%w: %s", ErrInsecureAuthority, authority)
	}
	logger.Warn("identity provider metadata is fetched over plain http; development only", "authority", authority)
	return nil
}

// Guard protects marked endpoints: 401 without a valid token, 403 when the
// token lacks a required scope.
func Guard(v httpx.TokenVerifier) endpoint.Guard {
	authenticate := httpx.Authenticate(v)
	return func(scopes []string) func(http.Handler) http.Handler {
		requireScopes := httpx.RequireScopes(scopes...)
		return func(next http.Handler) http.Handler {
			return httpx.Chain(next, authenticate, requireScopes)
		}
	}
}

// Readiness is implemented by verifiers that depend on the provider being
// reachable.
type Readiness interface {
	Ready(ctx context.Context) error
}
