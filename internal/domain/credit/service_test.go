package credit

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// memRepo applies adjustments atomically under one lock, the way the
// conditional UPDATE does in Postgres.
type memRepo struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*Account
	history  []HistoryEntry
}

func newMemRepo() *memRepo {
	return &memRepo{accounts: map[uuid.UUID]*Account{}}
}

func (m *memRepo) add(credits int) uuid.UUID {
	id := uuid.New()
	m.accounts[id] = &Account{ID: id, Credits: credits}
	return id
}

func (m *memRepo) Apply(ctx context.Context, adj Adjustment) (int, error) {
	return m.ApplyTx(ctx, nil, adj)
}

func (m *memRepo) ApplyTx(_ context.Context, _ *sqlx.Tx, adj Adjustment) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[adj.UserID]
	if !ok {
		return 0, ErrUserNotFound
	}
	if acc.IsDeleted {
		return 0, ErrUserDeleted
	}
	if acc.Credits+adj.Amount < 0 {
		return 0, ErrInsufficientCredits
	}
	acc.Credits += adj.Amount
	acc.NoOfAdsWatch += adj.adsDelta()
	m.history = append(m.history, HistoryEntry{ID: int64(len(m.history) + 1), UserID: adj.UserID, Amount: adj.Amount, Type: adj.Reason})
	return acc.Credits, nil
}

func (m *memRepo) GetAccount(_ context.Context, userID uuid.UUID) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *acc
	return &cp, nil
}

func (m *memRepo) ListHistory(_ context.Context, userID uuid.UUID) ([]HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []HistoryEntry
	for i := len(m.history) - 1; i >= 0; i-- {
		if m.history[i].UserID == userID {
			out = append(out, m.history[i])
		}
	}
	return out, nil
}

func (m *memRepo) ResetAdsWatched(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, acc := range m.accounts {
		if acc.NoOfAdsWatch != 0 {
			acc.NoOfAdsWatch = 0
			n++
		}
	}
	return n, nil
}

type stubLimiter struct {
	allow    bool
	err      error
	taken    int
	released int
}

func (s *stubLimiter) Take(context.Context, uuid.UUID) (bool, error) {
	s.taken++
	return s.allow, s.err
}

func (s *stubLimiter) Release(context.Context, uuid.UUID) { s.released++ }

func TestAdjustmentValidate(t *testing.T) {
	id := uuid.New()
	cases := []struct {
		adj  Adjustment
		want error
	}{
		{Adjustment{UserID: id, Amount: 5, Reason: ReasonAdsReward}, nil},
		{Adjustment{UserID: id, Amount: 50, Reason: ReasonCreditPurchase}, nil},
		{Adjustment{UserID: id, Amount: -3, Reason: ReasonImageGen}, nil},
		{Adjustment{UserID: id, Amount: -5, Reason: ReasonHeadshotGen}, nil},
		{Adjustment{UserID: id, Amount: 0, Reason: ReasonAdsReward}, ErrInvalidAmount},
		{Adjustment{UserID: id, Amount: -5, Reason: ReasonCreditPurchase}, ErrInvalidAmount},
		{Adjustment{UserID: id, Amount: 5, Reason: ReasonImageGen}, ErrInvalidAmount},
		{Adjustment{UserID: id, Amount: 5, Reason: "BONUS"}, ErrInvalidReason},
		{Adjustment{Amount: 5, Reason: ReasonAdsReward}, ErrUserNotFound},
	}
	for _, tc := range cases {
		if err := tc.adj.Validate(); !errors.Is(err, tc.want) {
			t.Errorf("%+v: err = %v, want %v", tc.adj, err, tc.want)
		}
	}
}

func TestSummarizeCountsOpeningEntry(t *testing.T) {
	acc := &Account{ID: uuid.New(), Credits: 7}
	history := []HistoryEntry{
		{Amount: -3, Type: ReasonImageGen},
		{Amount: 5, Type: ReasonAdsReward},
		{Amount: 5, Type: ReasonSignupBonus},
	}

	s := Summarize(acc, history)
	if s.TotalEarned != 10 || s.TotalSpent != 3 {
		t.Fatalf("earned=%d spent=%d", s.TotalEarned, s.TotalSpent)
	}
	if s.TotalEarned-s.TotalSpent != s.Balance {
		t.Fatalf("history sums to %d, balance %d", s.TotalEarned-s.TotalSpent, s.Balance)
	}
}

func TestLedgerMatchesBalance(t *testing.T) {
	repo := newMemRepo()
	userID := repo.add(0)
	svc := NewService(repo, nil)
	ctx := context.Background()
	rng := rand.New(rand.NewPCG(7, 11))

	reasons := []Reason{ReasonAdsReward, ReasonCreditPurchase, ReasonImageGen, ReasonHeadshotGen}
	for i := 0; i < 500; i++ {
		reason := reasons[rng.IntN(len(reasons))]
		amount := 1 + rng.IntN(10)
		if !reason.Earns() {
			amount = -amount
		}
		_, err := svc.Adjust(ctx, Adjustment{UserID: userID, Amount: amount, Reason: reason})
		if err != nil && !errors.Is(err, ErrInsufficientCredits) {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	summary, err := svc.Summary(ctx, userID)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	sum := 0
	for _, h := range summary.History {
		sum += h.Amount
	}
	if sum != summary.Balance {
		t.Fatalf("history sum %d != balance %d", sum, summary.Balance)
	}
	if summary.Balance < 0 {
		t.Fatalf("negative balance %d", summary.Balance)
	}
	if summary.TotalEarned-summary.TotalSpent != summary.Balance {
		t.Fatalf("earned %d - spent %d != balance %d", summary.TotalEarned, summary.TotalSpent, summary.Balance)
	}
}

func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	repo := newMemRepo()
	userID := repo.add(5)
	svc := NewService(repo, nil)

	var wg sync.WaitGroup
	var mu sync.Mutex
	success := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Adjust(context.Background(), Adjustment{UserID: userID, Amount: -1, Reason: ReasonImageGen})
			if err == nil {
				mu.Lock()
				success++
				mu.Unlock()
				return
			}
			if !errors.Is(err, ErrInsufficientCredits) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if success != 5 {
		t.Fatalf("expected 5 successes, got %d", success)
	}
	if balance, _ := svc.Balance(context.Background(), userID); balance != 0 {
		t.Fatalf("expected balance 0, got %d", balance)
	}
}

func TestRewardAmountDistribution(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	const n = 20000
	low := 0
	for i := 0; i < n; i++ {
		v := RewardAmount(rng)
		if v < 1 || v > 7 {
			t.Fatalf("reward %d out of [1,7]", v)
		}
		if v <= 4 {
			low++
		}
	}
	// Values 1-4 only come from the 80% branch (4/5 of it).
	share := float64(low) / n
	if share < 0.60 || share > 0.68 {
		t.Fatalf("share of 1-4 = %.3f, want about 0.64", share)
	}
}

func TestClaimReward(t *testing.T) {
	repo := newMemRepo()
	userID := repo.add(10)
	svc := NewService(repo, nil)

	reward, err := svc.ClaimReward(context.Background(), userID)
	if err != nil {
		t.Fatalf("ClaimReward: %v", err)
	}
	if reward.Amount < 1 || reward.Amount > 7 || reward.Balance != 10+reward.Amount {
		t.Fatalf("unexpected reward: %+v", reward)
	}

	acc, _ := repo.GetAccount(context.Background(), userID)
	if acc.NoOfAdsWatch != 1 {
		t.Fatalf("ads watched = %d, want 1", acc.NoOfAdsWatch)
	}
	history, _ := repo.ListHistory(context.Background(), userID)
	if len(history) != 1 || history[0].Type != ReasonAdsReward || history[0].Amount != reward.Amount {
		t.Fatalf("unexpected history: %+v", history)
	}
}

func TestClaimRewardDeletedUser(t *testing.T) {
	repo := newMemRepo()
	userID := repo.add(10)
	repo.accounts[userID].IsDeleted = true

	_, err := NewService(repo, nil).ClaimReward(context.Background(), userID)
	if !errors.Is(err, ErrUserDeleted) {
		t.Fatalf("err = %v, want ErrUserDeleted", err)
	}
	if len(repo.history) != 0 {
		t.Fatal("history written for deleted user")
	}
}

func TestClaimRewardDailyLimit(t *testing.T) {
	repo := newMemRepo()
	userID := repo.add(10)
	limiter := &stubLimiter{allow: false}

	_, err := NewService(repo, limiter).ClaimReward(context.Background(), userID)
	if !errors.Is(err, ErrAdLimitReached) {
		t.Fatalf("err = %v, want ErrAdLimitReached", err)
	}
	if repo.accounts[userID].Credits != 10 || len(repo.history) != 0 {
		t.Fatal("state mutated past the daily limit")
	}
	if limiter.released != 1 {
		t.Fatalf("released = %d, want 1", limiter.released)
	}
}

func TestClaimRewardLimiterOutageStillGrants(t *testing.T) {
	repo := newMemRepo()
	userID := repo.add(0)
	limiter := &stubLimiter{err: errors.New("connection refused")}

	if _, err := NewService(repo, limiter).ClaimReward(context.Background(), userID); err != nil {
		t.Fatalf("ClaimReward: %v", err)
	}
}

func TestSummaryOfDeletedUser(t *testing.T) {
	repo := newMemRepo()
	userID := repo.add(10)
	repo.accounts[userID].IsDeleted = true

	if _, err := NewService(repo, nil).Summary(context.Background(), userID); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("err = %v, want ErrUserNotFound", err)
	}
}

func TestServiceResetAdsWatched(t *testing.T) {
	repo := newMemRepo()
	a := repo.add(0)
	repo.add(0)
	repo.accounts[a].NoOfAdsWatch = 3

	n, err := NewService(repo, nil).ResetAdsWatched(context.Background())
	if err != nil || n != 1 {
		t.Fatalf("reset = %d, %v", n, err)
	}
	if repo.accounts[a].NoOfAdsWatch != 0 {
		t.Fatal("counter not reset")
	}
}
