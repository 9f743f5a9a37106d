// Package storetest holds behaviour tests shared by every store driver.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/docsauth/internal/identity/domain"
	"github.com/aussiebroadwan/docsauth/internal/identity/store"
)

// Run exercises a driver. newStore must return an empty, migrated store.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Helper()

	t.Run("AuthorizationCodes", func(t *testing.T) { testAuthorizationCodes(t, newStore(t)) })
	t.Run("RefreshTokens", func(t *testing.T) { testRefreshTokens(t, newStore(t)) })
	t.Run("SigningKeys", func(t *testing.T) { testSigningKeys(t, newStore(t)) })
	t.Run("WithTxRollsBack", func(t *testing.T) { testWithTxRollsBack(t, newStore(t)) })
	t.Run("Ping", func(t *testing.T) { require.NoError(t, newStore(t).Ping(context.Background())) })
}

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func testAuthorizationCodes(t *testing.T, s store.Store) {
	ctx := context.Background()
	repo := s.AuthorizationCodes()

	code := domain.AuthorizationCode{
		ID:                  "code-1",
		CodeHash:            "hash-1",
		ClientID:            "bob",
		Subject:             "1",
		RedirectURI:         "http://localhost:5000/swagger/oauth2-redirect.html",
		Scopes:              []string{"api1", "openid"},
		Nonce:               "n-0S6",
		CodeChallenge:       "challenge",
		CodeChallengeMethod: "S256",
		AMR:                 []string{"pwd"},
		AuthTime:            base,
		ExpiresAt:           base.Add(5 * time.Minute),
		CreatedAt:           base,
	}
	require.NoError(t, repo.CreateAuthorizationCode(ctx, code))
	require.ErrorIs(t, repo.CreateAuthorizationCode(ctx, code), store.ErrAlreadyExists)

	got, err := repo.GetAuthorizationCodeByHash(ctx, "hash-1")
	require.NoError(t, err)
	assert.Equal(t, code.ClientID, got.ClientID)
	assert.Equal(t, code.Scopes, got.Scopes)
	assert.Equal(t, code.AMR, got.AMR)
	assert.Equal(t, code.Nonce, got.Nonce)
	assert.Equal(t, code.CodeChallengeMethod, got.CodeChallengeMethod)
	assert.True(t, code.ExpiresAt.Equal(got.ExpiresAt))
	assert.True(t, code.AuthTime.Equal(got.AuthTime))
	assert.Nil(t, got.UsedAt)

	_, err = repo.GetAuthorizationCodeByHash(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, repo.MarkAuthorizationCodeUsed(ctx, "code-1", base.Add(time.Minute)))
	require.ErrorIs(t, repo.MarkAuthorizationCodeUsed(ctx, "code-1", base.Add(2*time.Minute)), store.ErrNotFound)

	got, err = repo.GetAuthorizationCodeByHash(ctx, "hash-1")
	require.NoError(t, err)
	require.NotNil(t, got.UsedAt)
	assert.True(t, base.Add(time.Minute).Equal(*got.UsedAt))

	n, err := repo.DeleteExpiredAuthorizationCodes(ctx, base.Add(time.Minute))
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = repo.DeleteExpiredAuthorizationCodes(ctx, base.Add(10*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repo.GetAuthorizationCodeByHash(ctx, "hash-1")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func refreshToken(id, family, hash string, expires time.Time) domain.RefreshToken {
	return domain.RefreshToken{
		ID:        id,
		FamilyID:  family,
		ClientID:  "client_1",
		Subject:   "1",
		TokenHash: hash,
		Scopes:    []string{"api1", "offline_access"},
		AMR:       []string{"pwd"},
		AuthTime:  base,
		ExpiresAt: expires,
		CreatedAt: base,
		UpdatedAt: base,
	}
}

func testRefreshTokens(t *testing.T, s store.Store) {
	ctx := context.Background()
	repo := s.RefreshTokens()

	require.NoError(t, repo.CreateRefreshToken(ctx, refreshToken("rt-1", "fam-a", "h1", base.Add(time.Hour))))
	require.NoError(t, repo.CreateRefreshToken(ctx, refreshToken("rt-2", "fam-a", "h2", base.Add(time.Hour))))
	require.NoError(t, repo.CreateRefreshToken(ctx, refreshToken("rt-3", "fam-b", "h3", base.Add(time.Minute))))

	got, err := repo.GetRefreshTokenByHash(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, "fam-a", got.FamilyID)
	assert.Equal(t, []string{"api1", "offline_access"}, got.Scopes)
	assert.False(t, got.Revoked)
	assert.True(t, got.IsUsable(base))

	require.NoError(t, repo.RevokeRefreshToken(ctx, "h1", base.Add(time.Second)))
	require.ErrorIs(t, repo.RevokeRefreshToken(ctx, "h1", base.Add(time.Second)), store.ErrNotFound)
	require.ErrorIs(t, repo.RevokeRefreshToken(ctx, "nope", base), store.ErrNotFound)

	got, err = repo.GetRefreshTokenByHash(ctx, "h1")
	require.NoError(t, err)
	assert.True(t, got.Revoked)
	assert.False(t, got.IsUsable(base))

	require.NoError(t, repo.RevokeRefreshTokenFamily(ctx, "fam-a", base.Add(time.Second)))
	got, err = repo.GetRefreshTokenByHash(ctx, "h2")
	require.NoError(t, err)
	assert.True(t, got.Revoked)

	got, err = repo.GetRefreshTokenByHash(ctx, "h3")
	require.NoError(t, err)
	assert.False(t, got.Revoked)

	n, err := repo.DeleteExpiredRefreshTokens(ctx, base.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repo.GetRefreshTokenByHash(ctx, "h3")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func testSigningKeys(t *testing.T, s store.Store) {
	ctx := context.Background()
	repo := s.SigningKeys()

	older := domain.SigningKey{Kid: "k1", Algorithm: "RS256", PrivateKeyEncrypted: []byte{1, 2, 3}, CreatedAt: base}
	newer := domain.SigningKey{Kid: "k2", Algorithm: "ES256", PrivateKeyEncrypted: []byte{4, 5}, CreatedAt: base.Add(time.Hour)}
	require.NoError(t, repo.CreateSigningKey(ctx, newer))
	require.NoError(t, repo.CreateSigningKey(ctx, older))
	require.ErrorIs(t, repo.CreateSigningKey(ctx, older), store.ErrAlreadyExists)

	keys, err := repo.ListSigningKeys(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 2)
	assert.Equal(t, "k1", keys[0].Kid)
	assert.Equal(t, []byte{1, 2, 3}, keys[0].PrivateKeyEncrypted)
	assert.True(t, keys[0].IsActive())

	retired := base.Add(2 * time.Hour)
	require.NoError(t, repo.RetireSigningKey(ctx, "k1", retired))
	require.NoError(t, repo.RetireSigningKey(ctx, "k1", retired.Add(time.Hour)))
	require.ErrorIs(t, repo.RetireSigningKey(ctx, "missing", retired), store.ErrNotFound)

	keys, err = repo.ListSigningKeys(ctx)
	require.NoError(t, err)
	require.NotNil(t, keys[0].RetiredAt)
	assert.True(t, retired.Equal(*keys[0].RetiredAt), "first retirement time is kept")

	require.NoError(t, repo.DeleteSigningKey(ctx, "k1"))
	keys, err = repo.ListSigningKeys(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, "k2", keys[0].Kid)
}

func testWithTxRollsBack(t *testing.T, s store.Store) {
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.RefreshTokens().CreateRefreshToken(ctx, refreshToken("rt-x", "fam-x", "hx", base.Add(time.Hour))); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.RefreshTokens().GetRefreshTokenByHash(ctx, "hx")
	require.ErrorIs(t, err, store.ErrNotFound)

	err = s.WithTx(ctx, func(tx store.Tx) error {
		return tx.RefreshTokens().CreateRefreshToken(ctx, refreshToken("rt-y", "fam-y", "hy", base.Add(time.Hour)))
	})
	require.NoError(t, err)

	_, err = s.RefreshTokens().GetRefreshTokenByHash(ctx, "hy")
	require.NoError(t, err)
}
