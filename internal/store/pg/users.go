package pg

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/kateeridumb/Library/internal/store/core"
)

const selectUser = `
	SELECT u.id, u.username, u.email, u.first_name, u.last_name, u.role_id, r.name,
	       u.password_hash, u.password_salt, u.is_blocked, u.is_two_factor_enabled, u.is_guest,
	       u.two_factor_code, u.two_factor_code_expiry,
	       u.password_reset_token, u.password_reset_token_expiry, u.created_at
	FROM users u JOIN roles r ON r.id = u.role_id`

func scanUser(row pgx.Row) (*core.User, error) {
	var u core.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName, &u.RoleID, &u.RoleName,
		&u.PasswordHash, &u.PasswordSalt, &u.IsBlocked, &u.IsTwoFactorEnabled, &u.IsGuest,
		&u.TwoFactorCode, &u.TwoFactorCodeExpiry,
		&u.PasswordResetToken, &u.PasswordResetTokenExpiry, &u.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// GetUserByUsername es case-sensitive.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*core.User, error) {
	return scanUser(s.pool.QueryRow(ctx, selectUser+` WHERE u.username = $1`, username))
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*core.User, error) {
	return scanUser(s.pool.QueryRow(ctx, selectUser+` WHERE LOWER(u.email) = LOWER($1) ORDER BY u.id LIMIT 1`, email))
}

func (s *Store) GetUserByID(ctx context.Context, id int64) (*core.User, error) {
	return scanUser(s.pool.QueryRow(ctx, selectUser+` WHERE u.id = $1`, id))
}

func (s *Store) CreateUser(ctx context.Context, u *core.User) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (username, email, first_name, last_name, role_id, password_hash, password_salt,
		                   is_blocked, is_two_factor_enabled, is_guest)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING id, created_at
	`, u.Username, u.Email, u.FirstName, u.LastName, u.RoleID, u.PasswordHash, u.PasswordSalt,
		u.IsBlocked, u.IsTwoFactorEnabled, u.IsGuest).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return core.ErrConflict
		}
		return err
	}
	return nil
}

func (s *Store) UpdatePassword(ctx context.Context, userID int64, hash, salt string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET password_hash = $2, password_salt = $3 WHERE id = $1`, userID, hash, salt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *Store) SetTwoFactorEnabled(ctx context.Context, userID int64, enabled bool) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE users SET is_two_factor_enabled = $2,
		       two_factor_code        = CASE WHEN $2 THEN two_factor_code ELSE NULL END,
		       two_factor_code_expiry = CASE WHEN $2 THEN two_factor_code_expiry ELSE NULL END
		WHERE id = $1`, userID, enabled)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *Store) SetTwoFactorCode(ctx context.Context, userID int64, code string, expiry time.Time) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET two_factor_code = $2, two_factor_code_expiry = $3 WHERE id = $1`,
		userID, code, expiry.UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *Store) ConsumeTwoFactorCode(ctx context.Context, userID int64, code string, now time.Time) (bool, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		UPDATE users SET two_factor_code = NULL, two_factor_code_expiry = NULL
		WHERE id = $1 AND is_two_factor_enabled
		  AND two_factor_code = $2 AND two_factor_code_expiry > $3
		RETURNING id`, userID, code, now.UTC()).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Store) ClearTwoFactorCode(ctx context.Context, userID int64) error {
	_, err := s.pool.Exec(ctx, `UPDATE users SET two_factor_code = NULL, two_factor_code_expiry = NULL WHERE id = $1`, userID)
	return err
}

func (s *Store) SetResetToken(ctx context.Context, userID int64, tokenHash string, expiry time.Time) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET password_reset_token = $2, password_reset_token_expiry = $3 WHERE id = $1`,
		userID, tokenHash, expiry.UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *Store) ResetTokenValid(ctx context.Context, tokenHash string, now time.Time) (bool, error) {
	var ok bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM users
		               WHERE password_reset_token = $1 AND password_reset_token_expiry > $2)`,
		tokenHash, now.UTC()).Scan(&ok)
	return ok, err
}

func (s *Store) ConsumeResetToken(ctx context.Context, tokenHash string, now time.Time, hash, salt string) (bool, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		UPDATE users SET password_hash = $3, password_salt = $4,
		       password_reset_token = NULL, password_reset_token_expiry = NULL
		WHERE password_reset_token = $1 AND password_reset_token_expiry > $2
		RETURNING id`, tokenHash, now.UTC(), hash, salt).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
