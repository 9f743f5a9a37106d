// Package memory is an in-process grant store. Grants are lost on restart.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/aussiebroadwan/docsauth/internal/identity/domain"
	"github.com/aussiebroadwan/docsauth/internal/identity/store"
)

type data struct {
	codes   map[string]domain.AuthorizationCode // by ID
	refresh map[string]domain.RefreshToken      // by token hash
	keys    map[string]domain.SigningKey        // by kid
}

func (d *data) clone() *data {
	return &data{
		codes:   maps.Clone(d.codes),
		refresh: maps.Clone(d.refresh),
		keys:    maps.Clone(d.keys),
	}
}

// Store implements store.Store in memory.
type Store struct {
	mu sync.Mutex
	d  *data
}

var _ store.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{d: &data{
		codes:   map[string]domain.AuthorizationCode{},
		refresh: map[string]domain.RefreshToken{},
		keys:    map[string]domain.SigningKey{},
	}}
}

func (s *Store) ApplyMigrations() error         { return nil }
func (s *Store) Close() error                   { return nil }
func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) AuthorizationCodes() store.AuthorizationCodes { return &codesRepo{s: s} }
func (s *Store) RefreshTokens() store.RefreshTokens           { return &refreshRepo{s: s} }
func (s *Store) SigningKeys() store.SigningKeys               { return &keysRepo{s: s} }

// WithTx serialises fn against every other store call and restores the
// previous state when fn fails.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.d.clone()
	if err := fn(&txStore{s: s}); err != nil {
		s.d = snapshot
		return err
	}
	return nil
}

type txStore struct{ s *Store }

func (t *txStore) AuthorizationCodes() store.AuthorizationCodes {
	return &codesRepo{s: t.s, inTx: true}
}
func (t *txStore) RefreshTokens() store.RefreshTokens { return &refreshRepo{s: t.s, inTx: true} }
func (t *txStore) SigningKeys() store.SigningKeys     { return &keysRepo{s: t.s, inTx: true} }

// lock takes the store mutex unless the caller already holds it through WithTx.
func lock(s *Store, inTx bool) func() {
	if inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

type codesRepo struct {
	s    *Store
	inTx bool
}

func (r *codesRepo) CreateAuthorizationCode(_ context.Context, c domain.AuthorizationCode) error {
	defer lock(r.s, r.inTx)()

	if _, ok := r.s.d.codes[c.ID]; ok {
		return store.ErrAlreadyExists
	}
	for _, existing := range r.s.d.codes {
		if existing.CodeHash == c.CodeHash {
			return store.ErrAlreadyExists
		}
	}
	r.s.d.codes[c.ID] = c
	return nil
}

func (r *codesRepo) GetAuthorizationCodeByHash(_ context.Context, hash string) (domain.AuthorizationCode, error) {
	defer lock(r.s, r.inTx)()

	for _, c := range r.s.d.codes {
		if c.CodeHash == hash {
			return c, nil
		}
	}
	return domain.AuthorizationCode{}, store.ErrNotFound
}

func (r *codesRepo) MarkAuthorizationCodeUsed(_ context.Context, id string, at time.Time) error {
	defer lock(r.s, r.inTx)()

	c, ok := r.s.d.codes[id]
	if !ok || c.UsedAt != nil {
		return store.ErrNotFound
	}
	c.UsedAt = &at
	r.s.d.codes[id] = c
	return nil
}

func (r *codesRepo) DeleteExpiredAuthorizationCodes(_ context.Context, now time.Time) (int64, error) {
	defer lock(r.s, r.inTx)()

	var n int64
	for id, c := range r.s.d.codes {
		if c.ExpiresAt.Before(now) {
			delete(r.s.d.codes, id)
			n++
		}
	}
	return n, nil
}

type refreshRepo struct {
	s    *Store
	inTx bool
}

func (r *refreshRepo) CreateRefreshToken(_ context.Context, t domain.RefreshToken) error {
	defer lock(r.s, r.inTx)()

	if _, ok := r.s.d.refresh[t.TokenHash]; ok {
		return store.ErrAlreadyExists
	}
	r.s.d.refresh[t.TokenHash] = t
	return nil
}

func (r *refreshRepo) GetRefreshTokenByHash(_ context.Context, hash string) (domain.RefreshToken, error) {
	defer lock(r.s, r.inTx)()

	t, ok := r.s.d.refresh[hash]
	if !ok {
		return domain.RefreshToken{}, store.ErrNotFound
	}
	return t, nil
}

func (r *refreshRepo) RevokeRefreshToken(_ context.Context, hash string, at time.Time) error {
	defer lock(r.s, r.inTx)()

	t, ok := r.s.d.refresh[hash]
	if !ok || t.Revoked {
		return store.ErrNotFound
	}
	t.Revoked = true
	t.UpdatedAt = at
	r.s.d.refresh[hash] = t
	return nil
}

func (r *refreshRepo) RevokeRefreshTokenFamily(_ context.Context, familyID string, at time.Time) error {
	defer lock(r.s, r.inTx)()

	for hash, t := range r.s.d.refresh {
		if t.FamilyID == familyID && !t.Revoked {
			t.Revoked = true
			t.UpdatedAt = at
			r.s.d.refresh[hash] = t
		}
	}
	return nil
}

func (r *refreshRepo) DeleteExpiredRefreshTokens(_ context.Context, now time.Time) (int64, error) {
	defer lock(r.s, r.inTx)()

	var n int64
	for hash, t := range r.s.d.refresh {
		if t.ExpiresAt.Before(now) {
			delete(r.s.d.refresh, hash)
			n++
		}
	}
	return n, nil
}

type keysRepo struct {
	s    *Store
	inTx bool
}

func (r *keysRepo) CreateSigningKey(_ context.Context, k domain.SigningKey) error {
	defer lock(r.s, r.inTx)()

	if _, ok := r.s.d.keys[k.Kid]; ok {
		return store.ErrAlreadyExists
	}
	r.s.d.keys[k.Kid] = k
	return nil
}

func (r *keysRepo) ListSigningKeys(_ context.Context) ([]domain.SigningKey, error) {
	defer lock(r.s, r.inTx)()

	out := slices.Collect(maps.Values(r.s.d.keys))
	slices.SortFunc(out, func(a, b domain.SigningKey) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out, nil
}

func (r *keysRepo) RetireSigningKey(_ context.Context, kid string, at time.Time) error {
	defer lock(r.s, r.inTx)()

	k, ok := r.s.d.keys[kid]
	if !ok {
		return store.ErrNotFound
	}
	if k.RetiredAt == nil {
		k.RetiredAt = &at
		r.s.d.keys[kid] = k
	}
	return nil
}

func (r *keysRepo) DeleteSigningKey(_ context.Context, kid string) error {
	defer lock(r.s, r.inTx)()

	delete(r.s.d.keys, kid)
	return nil
}
