package sqlite

import (
	"context"
	"time"

	"github.com/trinityvault/trinity/internal/auth/domain"
)

type resetCodesRepo struct {
	db DBTX
}

func (r *resetCodesRepo) CreateResetCode(ctx context.Context, c domain.ResetCode) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reset_codes (id, user_id, code_hash, destination, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.CodeHash, c.Destination, c.ExpiresAt.UTC(), time.Now().UTC(),
	)
	return mapConstraint(err)
}

func (r *resetCodesRepo) GetResetCodeByHash(
	ctx context.Context,
	hash string,
) (domain.ResetCode, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, code_hash, destination, expires_at, created_at
		FROM reset_codes WHERE code_hash = ?`, hash)

	var c domain.ResetCode
	if err := row.Scan(&c.ID, &c.UserID, &c.CodeHash, &c.Destination, &c.ExpiresAt, &c.CreatedAt); err != nil {
		return domain.ResetCode{}, mapNotFound(err)
	}
	return c, nil
}

func (r *resetCodesRepo) DeleteResetCode(ctx context.Context, hash string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM reset_codes WHERE code_hash = ?`, hash)
	return mapNoRows(res, err)
}

func (r *resetCodesRepo) DeleteExpiredResetCodes(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM reset_codes WHERE expires_at <= ?`, time.Now().UTC())
	return err
}
