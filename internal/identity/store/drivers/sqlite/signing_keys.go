package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/docsauth/internal/identity/domain"
)

type signingKeysRepo struct {
	q DBTX
}

func (r *signingKeysRepo) CreateSigningKey(ctx context.Context, k domain.SigningKey) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO signing_keys (kid, algorithm, private_key_encrypted, created_at, retired_at)
		 VALUES (?, ?, ?, ?, ?)`,
		k.Kid, k.Algorithm, k.PrivateKeyEncrypted, toMillis(k.CreatedAt), toNullMillis(k.RetiredAt))
	return mapUniqueViolation(err)
}

func (r *signingKeysRepo) ListSigningKeys(ctx context.Context) ([]domain.SigningKey, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT kid, algorithm, private_key_encrypted, created_at, retired_at
		 FROM signing_keys ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []domain.SigningKey
	for rows.Next() {
		var (
			k         domain.SigningKey
			createdAt int64
			retiredAt sql.NullInt64
		)
		if err := rows.Scan(&k.Kid, &k.Algorithm, &k.PrivateKeyEncrypted, &createdAt, &retiredAt); err != nil {
			return nil, err
		}
		k.CreatedAt = fromMillis(createdAt)
		k.RetiredAt = fromNullMillis(retiredAt)
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (r *signingKeysRepo) RetireSigningKey(ctx context.Context, kid string, at time.Time) error {
	return expectOne(r.q.ExecContext(ctx,
		`UPDATE signing_keys SET retired_at = COALESCE(retired_at, ?) WHERE kid = ?`,
		toMillis(at), kid))
}

func (r *signingKeysRepo) DeleteSigningKey(ctx context.Context, kid string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM signing_keys WHERE kid = ?`, kid)
	return err
}
