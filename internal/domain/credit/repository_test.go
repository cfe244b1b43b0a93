package credit

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

func newMockRepo(t *testing.T) (*LedgerRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewRepository(sqlx.NewDb(db, "sqlmock")), mock
}

func TestApplyCommitsBalanceAndHistory(t *testing.T) {
	repo, mock := newMockRepo(t)
	userID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE users`).
		WithArgs(userID, -5, 0).
		WillReturnRows(sqlmock.NewRows([]string{"credits"}).AddRow(5))
	mock.ExpectExec(`INSERT INTO credit_histories`).
		WithArgs(userID, -5, "IMAGE_GEN").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	balance, err := repo.Apply(context.Background(), Adjustment{UserID: userID, Amount: -5, Reason: ReasonImageGen})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if balance != 5 {
		t.Fatalf("balance = %d, want 5", balance)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestApplyAdsRewardBumpsCounter(t *testing.T) {
	repo, mock := newMockRepo(t)
	userID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE users`).
		WithArgs(userID, 4, 1).
		WillReturnRows(sqlmock.NewRows([]string{"credits"}).AddRow(9))
	mock.ExpectExec(`INSERT INTO credit_histories`).
		WithArgs(userID, 4, "ADS_REWARD").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	if _, err := repo.Apply(context.Background(), Adjustment{UserID: userID, Amount: 4, Reason: ReasonAdsReward}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestApplyRejectsOverdraw(t *testing.T) {
	repo, mock := newMockRepo(t)
	userID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE users`).
		WithArgs(userID, -5, 0).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`SELECT is_deleted FROM users`).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"is_deleted"}).AddRow(false))
	mock.ExpectRollback()

	_, err := repo.Apply(context.Background(), Adjustment{UserID: userID, Amount: -5, Reason: ReasonImageGen})
	if !errors.Is(err, ErrInsufficientCredits) {
		t.Fatalf("err = %v, want ErrInsufficientCredits", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestApplyExplainsMissingAndDeletedUsers(t *testing.T) {
	cases := []struct {
		name string
		rows *sqlmock.Rows
		want error
	}{
		{"missing", sqlmock.NewRows([]string{"is_deleted"}), ErrUserNotFound},
		{"deleted", sqlmock.NewRows([]string{"is_deleted"}).AddRow(true), ErrUserDeleted},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo, mock := newMockRepo(t)
			userID := uuid.New()

			mock.ExpectBegin()
			mock.ExpectQuery(`UPDATE users`).WillReturnError(sql.ErrNoRows)
			mock.ExpectQuery(`SELECT is_deleted FROM users`).WithArgs(userID).WillReturnRows(tc.rows)
			mock.ExpectRollback()

			_, err := repo.Apply(context.Background(), Adjustment{UserID: userID, Amount: 3, Reason: ReasonCreditPurchase})
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestApplyMapsCheckViolation(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE users`).WillReturnError(&pq.Error{Code: "23514"})
	mock.ExpectRollback()

	_, err := repo.Apply(context.Background(), Adjustment{UserID: uuid.New(), Amount: -3, Reason: ReasonImageGen})
	if !errors.Is(err, ErrInsufficientCredits) {
		t.Fatalf("err = %v, want ErrInsufficientCredits", err)
	}
}

func TestApplyRollsBackWhenHistoryInsertFails(t *testing.T) {
	repo, mock := newMockRepo(t)
	userID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE users`).
		WillReturnRows(sqlmock.NewRows([]string{"credits"}).AddRow(60))
	mock.ExpectExec(`INSERT INTO credit_histories`).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := repo.Apply(context.Background(), Adjustment{UserID: userID, Amount: 50, Reason: ReasonCreditPurchase})
	if !errors.Is(err, ErrInternal) {
		t.Fatalf("err = %v, want ErrInternal", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestListHistoryNewestFirst(t *testing.T) {
	repo, mock := newMockRepo(t)
	userID := uuid.New()

	mock.ExpectQuery(`SELECT id, user_id, amount, type, created_at FROM credit_histories`).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "amount", "type", "created_at"}).
			AddRow(int64(2), userID.String(), int64(-3), "IMAGE_GEN", time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)).
			AddRow(int64(1), userID.String(), int64(5), "ADS_REWARD", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))

	history, err := repo.ListHistory(context.Background(), userID)
	if err != nil {
		t.Fatalf("ListHistory: %v", err)
	}
	if len(history) != 2 || history[0].Type != ReasonImageGen || history[0].Amount != -3 {
		t.Fatalf("unexpected history: %+v", history)
	}
}

func TestResetAdsWatched(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`UPDATE users SET no_of_ads_watch = 0`).WillReturnResult(sqlmock.NewResult(0, 7))

	n, err := repo.ResetAdsWatched(context.Background())
	if err != nil {
		t.Fatalf("ResetAdsWatched: %v", err)
	}
	if n != 7 {
		t.Fatalf("rows = %d, want 7", n)
	}
}
