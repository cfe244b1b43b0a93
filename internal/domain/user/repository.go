package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const queryTimeout = 3 * time.Second

const userColumns = `id, email, social_id, login_type, device_type, device_id, fcm_token,
	credits, no_of_ads_watch, is_deleted, refresh_token_hash, created_at, updated_at, deleted_at`

// Repository defines user data access interface
type Repository interface {
	UpsertSocial(ctx context.Context, login *SocialLogin) (*User, bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	SetRefreshTokenHash(ctx context.Context, id uuid.UUID, hash string) error
	RotateRefreshTokenHash(ctx context.Context, id uuid.UUID, oldHash, newHash string) error
	ClearSession(ctx context.Context, id uuid.UUID) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates new user repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

// UpsertSocial creates the user on first login or refreshes device metadata
// on later ones. The bool reports whether the row was created. A soft-deleted
// account matches no row and yields ErrUserDeleted.
func (r *repository) UpsertSocial(ctx context.Context, login *SocialLogin) (*User, bool, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var fcm sql.NullString
	if login.FCMToken != "" {
		fcm = sql.NullString{String: login.FCMToken, Valid: true}
	}

	var row struct {
		User
		Created bool `db:"created"`
	}
	// A new account's starting credits get their ledger entry in the same
	// statement, so balance always equals the sum of history.
	err := r.db.GetContext(ctx2, &row, `
		WITH upserted AS (
			INSERT INTO users (email, social_id, login_type, device_type, device_id, fcm_token)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (email) DO UPDATE
			SET device_type = EXCLUDED.device_type,
			    device_id   = EXCLUDED.device_id,
			    fcm_token   = COALESCE(EXCLUDED.fcm_token, users.fcm_token),
			    updated_at  = NOW()
			WHERE users.is_deleted = FALSE
			RETURNING `+userColumns+`, (xmax = 0) AS created
		), opening AS (
			INSERT INTO credit_histories (user_id, amount, type)
			SELECT id, credits, 'SIGNUP_BONUS' FROM upserted WHERE created AND credits > 0
		)
		SELECT * FROM upserted
	`, login.Email, login.SocialID, login.LoginType, login.DeviceType, login.DeviceID, fcm)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, ErrUserDeleted
		}
		return nil, false, fmt.Errorf("%w: upsert user", ErrInternal)
	}

	return &row.User, row.Created, nil
}

// GetByID returns user by ID, including soft-deleted ones.
func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var u User
	err := r.db.GetContext(ctx2, &u, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: get user", ErrInternal)
	}
	return &u, nil
}

func (r *repository) SetRefreshTokenHash(ctx context.Context, id uuid.UUID, hash string) error {
	return r.execActive(ctx, "set refresh token", `
		UPDATE users SET refresh_token_hash = $2, updated_at = NOW()
		WHERE id = $1 AND is_deleted = FALSE
	`, id, hash)
}

// RotateRefreshTokenHash replaces oldHash with newHash. It returns
// ErrUserNotFound when the stored hash no longer matches, so only one of
// several concurrent refreshes with the same token wins.
func (r *repository) RotateRefreshTokenHash(ctx context.Context, id uuid.UUID, oldHash, newHash string) error {
	return r.execActive(ctx, "rotate refresh token", `
		UPDATE users SET refresh_token_hash = $3, updated_at = NOW()
		WHERE id = $1 AND is_deleted = FALSE AND refresh_token_hash = $2
	`, id, oldHash, newHash)
}

// ClearSession forgets the push token and refresh token of a user.
func (r *repository) ClearSession(ctx context.Context, id uuid.UUID) error {
	return r.execActive(ctx, "clear session", `
		UPDATE users SET fcm_token = NULL, refresh_token_hash = NULL, updated_at = NOW()
		WHERE id = $1 AND is_deleted = FALSE
	`, id)
}

func (r *repository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.execActive(ctx, "soft delete", `
		UPDATE users
		SET is_deleted = TRUE, deleted_at = NOW(), fcm_token = NULL, refresh_token_hash = NULL, updated_at = NOW()
		WHERE id = $1 AND is_deleted = FALSE
	`, id)
}

func (r *repository) execActive(ctx context.Context, op, query string, args ...interface{}) error {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := r.db.ExecContext(ctx2, query, args...)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInternal, op)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected", ErrInternal)
	}
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}
