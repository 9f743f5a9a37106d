package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/docsauth/internal/identity/domain"
)

type authorizationCodesRepo struct {
	q DBTX
}

const authorizationCodeColumns = `id, code_hash, client_id, subject, redirect_uri, scopes, nonce,
	code_challenge, code_challenge_method, amr, auth_time, expires_at, used_at, created_at`

func (r *authorizationCodesRepo) CreateAuthorizationCode(ctx context.Context, c domain.AuthorizationCode) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO authorization_codes (`+authorizationCodeColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.CodeHash, c.ClientID, c.Subject, c.RedirectURI, joinList(c.Scopes), c.Nonce,
		c.CodeChallenge, c.CodeChallengeMethod, joinList(c.AMR),
		toMillis(c.AuthTime), toMillis(c.ExpiresAt), toNullMillis(c.UsedAt), toMillis(c.CreatedAt),
	)
	return mapUniqueViolation(err)
}

func (r *authorizationCodesRepo) GetAuthorizationCodeByHash(
	ctx context.Context,
	hash string,
) (domain.AuthorizationCode, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+authorizationCodeColumns+` FROM authorization_codes WHERE code_hash = ?`, hash)

	var (
		c                              domain.AuthorizationCode
		scopes, amr                    string
		authTime, expiresAt, createdAt int64
		usedAt                         sql.NullInt64
	)
	err := row.Scan(&c.ID, &c.CodeHash, &c.ClientID, &c.Subject, &c.RedirectURI, &scopes, &c.Nonce,
		&c.CodeChallenge, &c.CodeChallengeMethod, &amr, &authTime, &expiresAt, &usedAt, &createdAt)
	if err != nil {
		return domain.AuthorizationCode{}, mapNotFound(err)
	}

	c.Scopes = splitAndFilter(scopes)
	c.AMR = splitAndFilter(amr)
	c.AuthTime = fromMillis(authTime)
	c.ExpiresAt = fromMillis(expiresAt)
	c.UsedAt = fromNullMillis(usedAt)
	c.CreatedAt = fromMillis(createdAt)
	return c, nil
}

func (r *authorizationCodesRepo) MarkAuthorizationCodeUsed(ctx context.Context, id string, at time.Time) error {
	return expectOne(r.q.ExecContext(ctx,
		`UPDATE authorization_codes SET used_at = ? WHERE id = ? AND used_at IS NULL`,
		toMillis(at), id))
}

func (r *authorizationCodesRepo) DeleteExpiredAuthorizationCodes(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM authorization_codes WHERE expires_at < ?`, toMillis(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
