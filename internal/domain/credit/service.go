package credit

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/chitra-ai/chitra-api/internal/pkg/metrics"
)

// AdLimiter caps ad rewards per user per day. Take counts one claim and
// reports whether it is within the cap; Release gives it back.
type AdLimiter interface {
	Take(ctx context.Context, userID uuid.UUID) (bool, error)
	Release(ctx context.Context, userID uuid.UUID)
}

// Reward is the outcome of an ad-reward claim.
type Reward struct {
	Amount  int
	Balance int
}

// Service is the single entry point for balance mutations.
type Service struct {
	repo    Repository
	limiter AdLimiter

	mu  sync.Mutex
	rng *rand.Rand
}

// NewService creates a credit service. limiter may be nil.
func NewService(repo Repository, limiter AdLimiter) *Service {
	return &Service{
		repo:    repo,
		limiter: limiter,
		rng:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

// Adjust validates adj and applies it in its own transaction.
func (s *Service) Adjust(ctx context.Context, adj Adjustment) (int, error) {
	if err := adj.Validate(); err != nil {
		return 0, err
	}
	balance, err := s.repo.Apply(ctx, adj)
	s.record(adj, balance, err)
	return balance, err
}

// AdjustTx applies adj inside the caller's transaction.
func (s *Service) AdjustTx(ctx context.Context, tx *sqlx.Tx, adj Adjustment) (int, error) {
	if err := adj.Validate(); err != nil {
		return 0, err
	}
	balance, err := s.repo.ApplyTx(ctx, tx, adj)
	s.record(adj, balance, err)
	return balance, err
}

func (s *Service) record(adj Adjustment, balance int, err error) {
	metrics.RecordLedgerAdjustment(string(adj.Reason), adj.Amount, err)

	event := log.Info()
	if err != nil {
		event = log.Warn().Err(err)
	}
	event.
		Str("user_id", adj.UserID.String()).
		Int("amount", adj.Amount).
		Str("reason", string(adj.Reason)).
		Int("balance", balance).
		Msg("Ledger adjustment")
}

// Balance returns the current balance of an active user.
func (s *Service) Balance(ctx context.Context, userID uuid.UUID) (int, error) {
	acc, err := s.activeAccount(ctx, userID)
	if err != nil {
		return 0, err
	}
	return acc.Credits, nil
}

// Summary returns balance, totals and the full history of an active user.
func (s *Service) Summary(ctx context.Context, userID uuid.UUID) (*Summary, error) {
	acc, err := s.activeAccount(ctx, userID)
	if err != nil {
		return nil, err
	}
	history, err := s.repo.ListHistory(ctx, userID)
	if err != nil {
		return nil, err
	}
	return Summarize(acc, history), nil
}

func (s *Service) activeAccount(ctx context.Context, userID uuid.UUID) (*Account, error) {
	acc, err := s.repo.GetAccount(ctx, userID)
	if err != nil {
		return nil, err
	}
	if acc.IsDeleted {
		return nil, ErrUserNotFound
	}
	return acc, nil
}

// ClaimReward grants a random ad reward and bumps the ads-watched counter.
func (s *Service) ClaimReward(ctx context.Context, userID uuid.UUID) (*Reward, error) {
	acc, err := s.repo.GetAccount(ctx, userID)
	if err != nil {
		return nil, err
	}
	if acc.IsDeleted {
		return nil, ErrUserDeleted
	}

	if s.limiter != nil {
		ok, err := s.limiter.Take(ctx, userID)
		if err != nil {
			// Redis outage should not block rewards.
			log.Warn().Err(err).Str("user_id", userID.String()).Msg("Ad limiter unavailable")
		} else if !ok {
			s.limiter.Release(ctx, userID)
			return nil, ErrAdLimitReached
		}
	}

	amount := s.rewardAmount()
	balance, err := s.Adjust(ctx, Adjustment{UserID: userID, Amount: amount, Reason: ReasonAdsReward})
	if err != nil {
		if s.limiter != nil {
			s.limiter.Release(ctx, userID)
		}
		return nil, err
	}
	return &Reward{Amount: amount, Balance: balance}, nil
}

func (s *Service) rewardAmount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return RewardAmount(s.rng)
}

// RewardAmount draws 1-5 with 80% probability and 5-7 otherwise.
func RewardAmount(rng *rand.Rand) int {
	if rng.Float64() < 0.8 {
		return 1 + rng.IntN(5)
	}
	return 5 + rng.IntN(3)
}

// ResetAdsWatched zeroes every user's ads counter.
func (s *Service) ResetAdsWatched(ctx context.Context) (int64, error) {
	n, err := s.repo.ResetAdsWatched(ctx)
	if err != nil {
		return 0, err
	}
	log.Info().Int64("users", n).Msg("Ads watched counters reset")
	return n, nil
}

// IsBusinessError reports whether err is a known ledger rejection.
func IsBusinessError(err error) bool {
	return errors.Is(err, ErrInsufficientCredits) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidReason) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrUserDeleted) ||
		errors.Is(err, ErrAdLimitReached)
}
