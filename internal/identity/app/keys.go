package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/aussiebroadwan/docsauth/internal/identity/store"
	"github.com/aussiebroadwan/docsauth/pkg/cryptox"
	"github.com/aussiebroadwan/docsauth/pkg/jwtx"
)

// InitSigningKeys creates the KeyManager for the configured storage mode.
//
//   - "ephemeral": keys live in memory; tokens die with the process.
//   - "persistent": keys are sealed with the master key and kept in the
//     store, so tokens survive restarts.
func InitSigningKeys(ctx context.Context, cfg Config, db store.Store, logger *slog.Logger) (*jwtx.KeyManager, error) {
	opts := jwtx.KeyManagerOptions{
		Algorithm:   cfg.Algorithm,
		RSABits:     cfg.RSABits,
		GracePeriod: cfg.KeyGracePeriod,
	}

	switch cfg.KeyStorageMode {
	case "persistent":
		secret, err := readMasterKey(cfg.MasterKeyPath)
		if err != nil {
			return nil, err
		}
		sealer, err := cryptox.NewSealer(secret)
		if err != nil {
			return nil, err
		}
		opts.Store = store.NewKeyStoreAdapter(db)
		opts.Sealer = sealer
	case "ephemeral", "":
	default:
		return nil, fmt.Errorf("unknown key storage mode %q", cfg.KeyStorageMode)
	}

	km, err := jwtx.NewKeyManager(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("initialize %s key manager: %w", cfg.KeyStorageMode, err)
	}

	logger.Info("signing keys ready",
		"mode", cfg.KeyStorageMode,
		"algorithm", km.Algorithm(),
		"kid", km.Signer().KID(),
		"published", km.KeySet().Len(),
	)
	if opts.Store == nil {
		logger.Warn("ephemeral signing keys: previously issued tokens are no longer valid")
	}
	return km, nil
}

func readMasterKey(path string) ([]byte, error) {
	if path == "" {
		if v := os.Getenv("IDENTITY_MASTER_KEY"); v != "" {
			return []byte(v), nil
		}
		return nil, fmt.Errorf("persistent key storage requires IDENTITY_MASTER_KEY_PATH or IDENTITY_MASTER_KEY")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read master key: %w", err)
	}
	b = []byte(strings.TrimSpace(string(b)))
	if len(b) < 16 {
		return nil, fmt.Errorf("master key in %s is shorter than 16 bytes", path)
	}
	return b, nil
}
