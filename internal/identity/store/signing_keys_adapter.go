package store

import (
	"context"
	"time"

	"github.com/aussiebroadwan/docsauth/internal/identity/domain"
	"github.com/aussiebroadwan/docsauth/pkg/jwtx"
)

// KeyStoreAdapter exposes a Store as a jwtx.KeyStore so the key manager can
// persist keys without importing the domain package.
type KeyStoreAdapter struct {
	store Store
}

// NewKeyStoreAdapter wraps store.
func NewKeyStoreAdapter(store Store) *KeyStoreAdapter {
	return &KeyStoreAdapter{store: store}
}

var _ jwtx.KeyStore = (*KeyStoreAdapter)(nil)

func (a *KeyStoreAdapter) ListSigningKeys(ctx context.Context) ([]jwtx.SigningKeyRecord, error) {
	keys, err := a.store.SigningKeys().ListSigningKeys(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]jwtx.SigningKeyRecord, len(keys))
	for i, key := range keys {
		records[i] = jwtx.SigningKeyRecord{
			Kid:       key.Kid,
			Algorithm: key.Algorithm,
			SealedKey: key.PrivateKeyEncrypted,
			CreatedAt: key.CreatedAt,
			RetiredAt: key.RetiredAt,
		}
	}
	return records, nil
}

func (a *KeyStoreAdapter) CreateSigningKey(ctx context.Context, rec jwtx.SigningKeyRecord) error {
	return a.store.SigningKeys().CreateSigningKey(ctx, domain.SigningKey{
		Kid:                 rec.Kid,
		Algorithm:           rec.Algorithm,
		PrivateKeyEncrypted: rec.SealedKey,
		CreatedAt:           rec.CreatedAt,
		RetiredAt:           rec.RetiredAt,
	})
}

func (a *KeyStoreAdapter) RetireSigningKey(ctx context.Context, kid string, at time.Time) error {
	return a.store.SigningKeys().RetireSigningKey(ctx, kid, at)
}

func (a *KeyStoreAdapter) DeleteSigningKey(ctx context.Context, kid string) error {
	return a.store.SigningKeys().DeleteSigningKey(ctx, kid)
}
