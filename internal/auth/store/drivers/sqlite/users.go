package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/trinityvault/trinity/internal/auth/domain"
)

type usersRepo struct {
	db DBTX
}

const userColumns = `id, username, email, phone, password_hash, role, status, frozen_at, created_at, updated_at`

func (r *usersRepo) scanUser(row interface{ Scan(...any) error }) (domain.User, error) {
	var u domain.User
	var role, status string
	var email, phone sql.NullString
	var frozenAt sql.NullTime

	err := row.Scan(
		&u.ID,
		&u.Username,
		&email,
		&phone,
		&u.PasswordHash,
		&role,
		&status,
		&frozenAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, err
	}

	u.Email = email.String
	u.Phone = phone.String
	u.Role = domain.Role(role)
	u.Status = domain.Status(status)
	if frozenAt.Valid {
		t := frozenAt.Time
		u.FrozenAt = &t
	}
	return u, nil
}

func (r *usersRepo) getBy(ctx context.Context, column, value string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+column+` = ?`, value)
	u, err := r.scanUser(row)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return r.getBy(ctx, "id", id)
}

func (r *usersRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	return r.getBy(ctx, "username", username)
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.getBy(ctx, "email", email)
}

func (r *usersRepo) GetUserByPhone(ctx context.Context, phone string) (domain.User, error) {
	return r.getBy(ctx, "phone", phone)
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, username, email, phone, password_hash, role, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, nullIfEmpty(u.Email), nullIfEmpty(u.Phone), u.PasswordHash,
		string(u.Role), string(u.Status), now, now,
	)
	return mapConstraint(err)
}

// nullIfEmpty stores optional contact fields as NULL so the partial unique
// indexes ignore accounts that never supplied one.
func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (r *usersRepo) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.User
	for rows.Next() {
		u, err := r.scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID string, newHash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		newHash, time.Now().UTC(), userID)
	return mapNoRows(res, err)
}

func (r *usersRepo) UpdateRole(ctx context.Context, userID string, role domain.Role) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET role = ?, updated_at = ? WHERE id = ?`,
		string(role), time.Now().UTC(), userID)
	return mapNoRows(res, err)
}

func (r *usersRepo) UpdateStatus(
	ctx context.Context,
	userID string,
	status domain.Status,
	frozenAt *time.Time,
) error {
	var ft sql.NullTime
	if frozenAt != nil {
		ft = sql.NullTime{Time: *frozenAt, Valid: true}
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET status = ?, frozen_at = ?, updated_at = ? WHERE id = ?`,
		string(status), ft, time.Now().UTC(), userID)
	return mapNoRows(res, err)
}

func (r *usersRepo) DeleteUser(ctx context.Context, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
	return mapNoRows(res, err)
}
