package jwtx

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/aussiebroadwan/docsauth/pkg/cryptox"
	"github.com/aussiebroadwan/docsauth/pkg/idx"
)

// DefaultGracePeriod is how long a retired key stays published for
// verification.
const DefaultGracePeriod = 24 * time.Hour

// SigningKeyRecord is the persisted form of a signing key. SealedKey is the
// PEM private key encrypted with a cryptox.Sealer.
type SigningKeyRecord struct {
	Kid       string
	Algorithm string
	SealedKey []byte
	CreatedAt time.Time
	RetiredAt *time.Time
}

// KeyStore persists signing keys. It is implemented by the identity store
// drivers through a small adapter.
type KeyStore interface {
	ListSigningKeys(ctx context.Context) ([]SigningKeyRecord, error)
	CreateSigningKey(ctx context.Context, rec SigningKeyRecord) error
	RetireSigningKey(ctx context.Context, kid string, at time.Time) error
	DeleteSigningKey(ctx context.Context, kid string) error
}

// KeyManagerOptions configures NewKeyManager. A nil Store gives an ephemeral
// manager whose keys live only in memory.
type KeyManagerOptions struct {
	Algorithm   string
	RSABits     int
	Store       KeyStore
	Sealer      *cryptox.Sealer
	GracePeriod time.Duration
	Now         func() time.Time
}

type retiredSigner struct {
	kid       string
	retiredAt time.Time
}

// KeyManager owns the active signing key and the published KeySet.
type KeyManager struct {
	opts KeyManagerOptions
	keys *KeySet

	mu      sync.RWMutex
	active  *Signer
	retired []retiredSigner
}

// NewKeyManager loads persisted keys (when a store is configured) and makes
// sure an active key exists.
func NewKeyManager(ctx context.Context, opts KeyManagerOptions) (*KeyManager, error) {
	if opts.Algorithm == "" {
		opts.Algorithm = AlgorithmRS256
	}
	if _, err := signingMethod(opts.Algorithm); err != nil {
		return nil, err
	}
	if opts.GracePeriod <= 0 {
		opts.GracePeriod = DefaultGracePeriod
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Store != nil && opts.Sealer == nil {
		return nil, errors.New("jwtx: persistent key manager requires a sealer")
	}

	km := &KeyManager{opts: opts, keys: NewKeySet()}

	if opts.Store != nil {
		if err := km.load(ctx); err != nil {
			return nil, err
		}
	}

	if km.active == nil {
		if _, err := km.Rotate(ctx); err != nil {
			return nil, err
		}
	}

	return km, nil
}

func (km *KeyManager) load(ctx context.Context) error {
	records, err := km.opts.Store.ListSigningKeys(ctx)
	if err != nil {
		return fmt.Errorf("jwtx: list signing keys: %w", err)
	}

	slices.SortFunc(records, func(a, b SigningKeyRecord) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	now := km.opts.Now()
	for _, rec := range records {
		if rec.RetiredAt != nil && now.Sub(*rec.RetiredAt) > km.opts.GracePeriod {
			if err := km.opts.Store.DeleteSigningKey(ctx, rec.Kid); err != nil {
				return fmt.Errorf("jwtx: delete expired key %q: %w", rec.Kid, err)
			}
			continue
		}

		pemKey, err := km.opts.Sealer.Open(rec.SealedKey)
		if err != nil {
			return fmt.Errorf("jwtx: unseal key %q: %w", rec.Kid, err)
		}
		s, err := NewSigner(rec.Algorithm, rec.Kid, pemKey)
		if err != nil {
			return err
		}
		if err := km.keys.Add(s.PublicJWK()); err != nil {
			return err
		}

		if rec.RetiredAt != nil {
			km.retired = append(km.retired, retiredSigner{kid: rec.Kid, retiredAt: *rec.RetiredAt})
			continue
		}

		// Newest unretired key wins; older unretired keys are retired now.
		if km.active != nil {
			if err := km.opts.Store.RetireSigningKey(ctx, km.active.KID(), now); err != nil {
				return fmt.Errorf("jwtx: retire key %q: %w", km.active.KID(), err)
			}
			km.retired = append(km.retired, retiredSigner{kid: km.active.KID(), retiredAt: now})
		}
		km.active = s
	}

	return nil
}

// Rotate generates a new active key. The previous key is retired and stays
// in the KeySet until the grace period has passed.
func (km *KeyManager) Rotate(ctx context.Context) (*Signer, error) {
	kid := idx.Prefixed("kid")
	s, pemKey, err := GenerateSigner(km.opts.Algorithm, kid, km.opts.RSABits)
	if err != nil {
		return nil, err
	}

	now := km.opts.Now()

	if km.opts.Store != nil {
		sealed, err := km.opts.Sealer.Seal(pemKey)
		if err != nil {
			return nil, err
		}
		rec := SigningKeyRecord{Kid: kid, Algorithm: km.opts.Algorithm, SealedKey: sealed, CreatedAt: now}
		if err := km.opts.Store.CreateSigningKey(ctx, rec); err != nil {
			return nil, fmt.Errorf("jwtx: store key %q: %w", kid, err)
		}
	}

	if err := km.keys.Add(s.PublicJWK()); err != nil {
		return nil, err
	}

	km.mu.Lock()
	defer km.mu.Unlock()

	if prev := km.active; prev != nil {
		if km.opts.Store != nil {
			if err := km.opts.Store.RetireSigningKey(ctx, prev.KID(), now); err != nil {
				return nil, fmt.Errorf("jwtx: retire key %q: %w", prev.KID(), err)
			}
		}
		km.retired = append(km.retired, retiredSigner{kid: prev.KID(), retiredAt: now})
	}
	km.active = s

	return s, nil
}

// Prune unpublishes retired keys older than the grace period and returns how
// many were removed.
func (km *KeyManager) Prune(ctx context.Context) (int, error) {
	km.mu.Lock()
	defer km.mu.Unlock()

	now := km.opts.Now()
	kept := make([]retiredSigner, 0, len(km.retired))
	removed := 0
	var err error
	for _, r := range km.retired {
		if err != nil || now.Sub(r.retiredAt) <= km.opts.GracePeriod {
			kept = append(kept, r)
			continue
		}
		if km.opts.Store != nil {
			if delErr := km.opts.Store.DeleteSigningKey(ctx, r.kid); delErr != nil {
				err = fmt.Errorf("jwtx: delete key %q: %w", r.kid, delErr)
				kept = append(kept, r)
				continue
			}
		}
		km.keys.Remove(r.kid)
		removed++
	}
	km.retired = kept
	return removed, err
}

// Signer returns the active signing key.
func (km *KeyManager) Signer() *Signer {
	km.mu.RLock()
	defer km.mu.RUnlock()
	return km.active
}

// KeySet returns the published verification keys.
func (km *KeyManager) KeySet() *KeySet { return km.keys }

// Algorithm returns the algorithm used for new keys.
func (km *KeyManager) Algorithm() string { return km.opts.Algorithm }

// IsReady reports whether a signing key is available.
func (km *KeyManager) IsReady() bool {
	return km.Signer() != nil && km.keys.Len() > 0
}
