package app

import (
	"os"
	"strings"
	"time"

	httpapi "github.com/aussiebroadwan/docsauth/internal/identity/http"
	"github.com/aussiebroadwan/docsauth/pkg/envx"
	"github.com/aussiebroadwan/docsauth/pkg/httpx"
	"github.com/aussiebroadwan/docsauth/pkg/jwtx"
)

// Environment names with special handling.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Issuer      string // Issuer and public base URL (default: http://localhost:5100)
	CatalogFile string // Optional YAML catalog; the compiled-in catalog when empty

	Algorithm           string        // RS256, ES256 or EdDSA (default: RS256)
	RSABits             int           // RSA key size (default: 2048)
	KeyStorageMode      string        // ephemeral or persistent (default: ephemeral)
	KeyGracePeriod      time.Duration // How long retired keys stay published (default: 24h)
	KeyRotationInterval time.Duration // Rotate the signing key this often; 0 disables
	MasterKeyPath       string        // File holding the key-encryption secret (persistent mode)

	StoreDriver  string // memory or sqlite (default: memory)
	DatabaseFile string // SQLite database path (default: identity.db)

	CodeTTL              time.Duration // Authorization code lifetime (default: 5m)
	Env                  string        // development, staging, production (default: development)
	LogLevel             string        // debug, info, warn, error (default: info)
	LogFormat            string        // json or text (default: json)
	Port                 int           // HTTP port (default: 5100)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Expired grant cleanup interval (default: 1h)

	Limits httpapi.Limits
}

// LoadConfig reads the configuration from the environment, seeded from a
// .env file when present.
func LoadConfig() (Config, error) {
	if err := envx.LoadDotEnv(); err != nil {
		return Config{}, err
	}

	defaults := httpapi.DefaultLimits()
	cfg := Config{
		Issuer:      strings.TrimSuffix(envx.String("IDENTITY_ISSUER", "http://localhost:5100"), "/"),
		CatalogFile: os.Getenv("IDENTITY_CATALOG_FILE"),

		Algorithm:           envx.String("IDENTITY_ALGORITHM", jwtx.AlgorithmRS256),
		RSABits:             envx.Int("IDENTITY_RSA_BITS", 2048),
		KeyStorageMode:      envx.String("IDENTITY_KEY_STORAGE_MODE", "ephemeral"),
		KeyGracePeriod:      envx.Duration("IDENTITY_KEY_GRACE_PERIOD", jwtx.DefaultGracePeriod),
		KeyRotationInterval: envx.Duration("IDENTITY_KEY_ROTATION_INTERVAL", 0),
		MasterKeyPath:       os.Getenv("IDENTITY_MASTER_KEY_PATH"),

		StoreDriver:  envx.String("IDENTITY_STORE_DRIVER", "memory"),
		DatabaseFile: envx.String("IDENTITY_DATABASE_FILE", "identity.db"),

		CodeTTL:              envx.Duration("IDENTITY_CODE_TTL", 5*time.Minute),
		Env:                  envx.String("ENV", EnvDevelopment),
		LogLevel:             envx.String("LOG_LEVEL", "info"),
		LogFormat:            envx.String("LOG_FORMAT", "json"),
		Port:                 envx.Int("PORT", 5100),
		ShutdownGracePeriod:  envx.Duration("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: envx.Duration("HOUSEKEEPING_INTERVAL", time.Hour),

		Limits: httpapi.Limits{
			Login:      httpx.RateLimitFromEnv(os.Getenv, "login", defaults.Login),
			Token:      httpx.RateLimitFromEnv(os.Getenv, "token", defaults.Token),
			Introspect: httpx.RateLimitFromEnv(os.Getenv, "introspect", defaults.Introspect),
			Public:     httpx.RateLimitFromEnv(os.Getenv, "public", defaults.Public),
		},
	}
	return cfg, nil
}
