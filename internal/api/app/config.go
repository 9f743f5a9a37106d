package app

import (
	"os"
	"strings"
	"time"

	"github.com/aussiebroadwan/docsauth/internal/api/authn"
	"github.com/aussiebroadwan/docsauth/internal/identity/catalog"
	"github.com/aussiebroadwan/docsauth/pkg/envx"
)

// Documentation variants.
const (
	VariantSwag    = "swag"
	VariantOpenAPI = "openapi"
)

// Environment names with special handling.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Variant   string // swag or openapi, fixed by the binary
	PublicURL string // Where the API is served (default: http://localhost:5000)

	Authority            string        // Identity provider base URL (default: http://localhost:5100)
	Audience             string        // API resource name (default: api1)
	Strategy             string        // jwt or introspection (default: jwt)
	ResourceSecret       string        // API resource secret, introspection only (default: secret)
	RequireHTTPSMetadata bool          // Reject plain http authorities (default: true outside development)
	IntrospectionTTL     time.Duration // Upper bound on cached introspection results (default: 1m)

	CatalogFile    string   // Optional YAML catalog shared with the identity provider
	UIClientID     string   // Client the documentation UI signs in as (default: client_1 or bob)
	UIClientSecret string   // Pre-filled for the secret flows (default: secret)
	Scopes         []string // Scopes required by default and requested by the UI (default: api1)
	CORSAllowAll   bool     // Allow every origin (default: true for swag)

	Env                 string        // development, staging, production (default: development)
	LogLevel            string        // debug, info, warn, error (default: info)
	LogFormat           string        // json or text (default: json)
	Port                int           // HTTP port (default: 5000)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)
}

// LoadConfig reads the configuration for variant from the environment,
// seeded from a .env file when present.
func LoadConfig(variant string) (Config, error) {
	if err := envx.LoadDotEnv(); err != nil {
		return Config{}, err
	}

	env := envx.String("ENV", EnvDevelopment)
	uiClient := catalog.DefaultTokenClientID
	if variant == VariantOpenAPI {
		uiClient = catalog.DefaultCodeClientID
	}

	cfg := Config{
		Variant:   variant,
		PublicURL: strings.TrimSuffix(envx.String("API_PUBLIC_URL", "http://localhost:5000"), "/"),

		Authority:            strings.TrimSuffix(envx.String("API_AUTHORITY", "http://localhost:5100"), "/"),
		Audience:             envx.String("API_AUDIENCE", catalog.DefaultResource),
		Strategy:             envx.String("API_STRATEGY", authn.StrategyJWT),
		ResourceSecret:       envx.String("API_RESOURCE_SECRET", catalog.DevelopmentSecret),
		RequireHTTPSMetadata: envx.Bool("API_REQUIRE_HTTPS_METADATA", env != EnvDevelopment),
		IntrospectionTTL:     envx.Duration("API_INTROSPECTION_CACHE_TTL", authn.DefaultCacheTTL),

		CatalogFile:    os.Getenv("API_CATALOG_FILE"),
		UIClientID:     envx.String("API_UI_CLIENT_ID", uiClient),
		UIClientSecret: envx.String("API_UI_CLIENT_SECRET", catalog.DevelopmentSecret),
		Scopes:         envx.List("API_SCOPES", []string{catalog.DefaultAPIScope}),
		CORSAllowAll:   envx.Bool("API_CORS_ALLOW_ALL", variant == VariantSwag),

		Env:                 env,
		LogLevel:            envx.String("LOG_LEVEL", "info"),
		LogFormat:           envx.String("LOG_FORMAT", "json"),
		Port:                envx.Int("PORT", 5000),
		ShutdownGracePeriod: envx.Duration("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}
	return cfg, nil
}
