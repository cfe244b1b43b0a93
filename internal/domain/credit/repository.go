package credit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/chitra-ai/chitra-api/internal/pkg/database"
)

const queryTimeout = 3 * time.Second

// Repository is the ledger and balance store.
type Repository interface {
	Apply(ctx context.Context, adj Adjustment) (int, error)
	ApplyTx(ctx context.Context, tx *sqlx.Tx, adj Adjustment) (int, error)
	GetAccount(ctx context.Context, userID uuid.UUID) (*Account, error)
	ListHistory(ctx context.Context, userID uuid.UUID) ([]HistoryEntry, error)
	ResetAdsWatched(ctx context.Context) (int64, error)
}

// LedgerRepository keeps users.credits and credit_histories in step.
type LedgerRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Apply runs ApplyTx in its own transaction.
func (r *LedgerRepository) Apply(ctx context.Context, adj Adjustment) (int, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx2, &sql.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("%w: begin tx", ErrInternal)
	}
	defer tx.Rollback()

	balance, err := r.ApplyTx(ctx2, tx, adj)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: commit tx", ErrInternal)
	}
	return balance, nil
}

// ApplyTx changes the balance and appends the history entry inside tx and
// returns the new balance. The update only matches when the result stays
// non-negative, so concurrent debits cannot overdraw. The caller owns tx.
func (r *LedgerRepository) ApplyTx(ctx context.Context, tx *sqlx.Tx, adj Adjustment) (int, error) {
	var balance int
	err := tx.QueryRowContext(ctx, `
		UPDATE users
		SET credits = credits + $2,
		    no_of_ads_watch = no_of_ads_watch + $3,
		    updated_at = NOW()
		WHERE id = $1 AND is_deleted = FALSE AND credits + $2 >= 0
		RETURNING credits
	`, adj.UserID, adj.Amount, adj.adsDelta()).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, r.explainMiss(ctx, tx, adj.UserID)
		}
		if database.PQCode(err) == database.CodeCheckViolation {
			return 0, ErrInsufficientCredits
		}
		return 0, fmt.Errorf("%w: update balance", ErrInternal)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO credit_histories (user_id, amount, type)
		VALUES ($1, $2, $3)
	`, adj.UserID, adj.Amount, string(adj.Reason))
	if err != nil {
		return 0, fmt.Errorf("%w: insert credit history", ErrInternal)
	}

	return balance, nil
}

// explainMiss tells apart the reasons the conditional update matched nothing.
func (r *LedgerRepository) explainMiss(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) error {
	var deleted bool
	err := tx.QueryRowContext(ctx, `SELECT is_deleted FROM users WHERE id = $1`, userID).Scan(&deleted)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return ErrUserNotFound
	case err != nil:
		return fmt.Errorf("%w: lookup user", ErrInternal)
	case deleted:
		return ErrUserDeleted
	}
	return ErrInsufficientCredits
}

func (r *LedgerRepository) GetAccount(ctx context.Context, userID uuid.UUID) (*Account, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var acc Account
	err := r.db.GetContext(ctx2, &acc, `
		SELECT id, credits, no_of_ads_watch, is_deleted
		FROM users
		WHERE id = $1
	`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: get account", ErrInternal)
	}
	return &acc, nil
}

// ListHistory returns every entry for userID, newest first.
func (r *LedgerRepository) ListHistory(ctx context.Context, userID uuid.UUID) ([]HistoryEntry, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	history := make([]HistoryEntry, 0)
	err := r.db.SelectContext(ctx2, &history, `
		SELECT id, user_id, amount, type, created_at
		FROM credit_histories
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: list credit history", ErrInternal)
	}
	return history, nil
}

// ResetAdsWatched zeroes the ads counter of every user.
func (r *LedgerRepository) ResetAdsWatched(ctx context.Context) (int64, error) {
	ctx2, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	result, err := r.db.ExecContext(ctx2, `UPDATE users SET no_of_ads_watch = 0 WHERE no_of_ads_watch <> 0`)
	if err != nil {
		return 0, fmt.Errorf("%w: reset ads watched", ErrInternal)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: rows affected", ErrInternal)
	}
	return rows, nil
}
