package purchase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/chitra-ai/chitra-api/internal/pkg/database"
)

const queryTimeout = 3 * time.Second

// CreditFunc grants credits inside the reconciliation transaction and
// returns the new balance.
type CreditFunc func(ctx context.Context, tx *sqlx.Tx) (int, error)

// Repository persists reconciled purchases.
type Repository interface {
	RecordPurchase(ctx context.Context, p *Purchase, grant CreditFunc) (int, error)
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

// RecordPurchase claims the transaction id and grants credits in one
// transaction. The insert is the duplicate check: when the id is already
// present nothing is granted and ErrDuplicateTransaction is returned.
func (r *repository) RecordPurchase(ctx context.Context, p *Purchase, grant CreditFunc) (int, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx2, &sql.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("%w: begin tx", ErrInternal)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx2, `
		INSERT INTO transactions (transaction_id, user_id, product_id, credits, platform, is_test, receipt, verified_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (transaction_id) DO NOTHING
		RETURNING id
	`, p.TransactionID, p.UserID, p.ProductID, p.Credits, string(p.Platform), p.IsTest, p.Receipt, p.VerifiedAt).Scan(&p.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || database.PQCode(err) == database.CodeUniqueViolation {
			return 0, ErrDuplicateTransaction
		}
		return 0, fmt.Errorf("%w: insert transaction", ErrInternal)
	}

	balance, err := grant(ctx2, tx)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		if database.PQCode(err) == database.CodeUniqueViolation {
			return 0, ErrDuplicateTransaction
		}
		return 0, fmt.Errorf("%w: commit tx", ErrInternal)
	}
	return balance, nil
}
