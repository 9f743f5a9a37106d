package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/docsauth/internal/identity/domain"
)

type refreshTokensRepo struct {
	q DBTX
}

func (r *refreshTokensRepo) CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO refresh_tokens
		 (id, family_id, client_id, subject, token_hash, scopes, amr, auth_time, expires_at, revoked, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.FamilyID, t.ClientID, t.Subject, t.TokenHash, joinList(t.Scopes), joinList(t.AMR),
		toMillis(t.AuthTime), toMillis(t.ExpiresAt), t.Revoked, toMillis(t.CreatedAt), toMillis(t.UpdatedAt),
	)
	return mapUniqueViolation(err)
}

func (r *refreshTokensRepo) GetRefreshTokenByHash(
	ctx context.Context,
	hash string,
) (domain.RefreshToken, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT id, family_id, client_id, subject, token_hash, scopes, amr, auth_time, expires_at,
		        revoked, created_at, updated_at
		 FROM refresh_tokens WHERE token_hash = ?`, hash)

	var (
		t                                         domain.RefreshToken
		scopes, amr                               string
		authTime, expiresAt, createdAt, updatedAt int64
	)
	err := row.Scan(&t.ID, &t.FamilyID, &t.ClientID, &t.Subject, &t.TokenHash, &scopes, &amr,
		&authTime, &expiresAt, &t.Revoked, &createdAt, &updatedAt)
	if err != nil {
		return domain.RefreshToken{}, mapNotFound(err)
	}

	t.Scopes = splitAndFilter(scopes)
	t.AMR = splitAndFilter(amr)
	t.AuthTime = fromMillis(authTime)
	t.ExpiresAt = fromMillis(expiresAt)
	t.CreatedAt = fromMillis(createdAt)
	t.UpdatedAt = fromMillis(updatedAt)
	return t, nil
}

func (r *refreshTokensRepo) RevokeRefreshToken(ctx context.Context, hash string, at time.Time) error {
	return expectOne(r.q.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = 1, updated_at = ? WHERE token_hash = ? AND revoked = 0`,
		toMillis(at), hash))
}

func (r *refreshTokensRepo) RevokeRefreshTokenFamily(ctx context.Context, familyID string, at time.Time) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = 1, updated_at = ? WHERE family_id = ? AND revoked = 0`,
		toMillis(at), familyID)
	return err
}

func (r *refreshTokensRepo) DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE expires_at < ?`, toMillis(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
