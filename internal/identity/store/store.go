package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/docsauth/internal/identity/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface for grant state. Registration
// data (clients, resources, users) lives in the catalog, not here. Drivers
// expose sub-repositories so transactional code gets the same shape.
type Store interface {
	AuthorizationCodes() AuthorizationCodes
	RefreshTokens() RefreshTokens
	SigningKeys() SigningKeys

	ApplyMigrations() error

	// WithTx runs fn in a transaction. fn returning an error rolls back;
	// nil commits.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the backing storage is reachable.
	Ping(ctx context.Context) error
}

// Tx is a transaction-scoped view of the store.
type Tx interface {
	AuthorizationCodes() AuthorizationCodes
	RefreshTokens() RefreshTokens
	SigningKeys() SigningKeys
}

type AuthorizationCodes interface {
	// CreateAuthorizationCode stores a freshly minted code.
	CreateAuthorizationCode(ctx context.Context, code domain.AuthorizationCode) error

	// GetAuthorizationCodeByHash fetches a code by fingerprint when redeeming.
	GetAuthorizationCodeByHash(ctx context.Context, hash string) (domain.AuthorizationCode, error)

	// MarkAuthorizationCodeUsed consumes the code. It returns ErrNotFound
	// when the code does not exist or was already used.
	MarkAuthorizationCodeUsed(ctx context.Context, id string, at time.Time) error

	// DeleteExpiredAuthorizationCodes removes codes expired before now.
	DeleteExpiredAuthorizationCodes(ctx context.Context, now time.Time) (int64, error)
}

type RefreshTokens interface {
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error

	// GetRefreshTokenByHash returns the token by fingerprint.
	GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error)

	// RevokeRefreshToken flips revoked and bumps updated_at. It returns
	// ErrNotFound when the token does not exist or was already revoked.
	RevokeRefreshToken(ctx context.Context, hash string, at time.Time) error

	// RevokeRefreshTokenFamily revokes every token descending from the same
	// original grant.
	RevokeRefreshTokenFamily(ctx context.Context, familyID string, at time.Time) error

	// DeleteExpiredRefreshTokens removes tokens expired before now.
	DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error)
}

type SigningKeys interface {
	CreateSigningKey(ctx context.Context, key domain.SigningKey) error

	// ListSigningKeys returns all keys, oldest first.
	ListSigningKeys(ctx context.Context) ([]domain.SigningKey, error)

	RetireSigningKey(ctx context.Context, kid string, at time.Time) error
	DeleteSigningKey(ctx context.Context, kid string) error
}
