package user

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/chitra-ai/chitra-api/internal/domain/credit"
)

// CreditSummarizer provides the ledger view shown on the profile.
type CreditSummarizer interface {
	Summary(ctx context.Context, userID uuid.UUID) (*credit.Summary, error)
}

// Service handles profile reads and account deletion.
type Service struct {
	repo    Repository
	credits CreditSummarizer
}

func NewService(repo Repository, credits CreditSummarizer) *Service {
	return &Service{repo: repo, credits: credits}
}

// Active returns the user unless missing or soft-deleted.
func (s *Service) Active(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.IsDeleted {
		return nil, ErrUserNotFound
	}
	return u, nil
}

// Profile returns the user together with the credit summary.
func (s *Service) Profile(ctx context.Context, id uuid.UUID) (*ProfileResponse, error) {
	u, err := s.Active(ctx, id)
	if err != nil {
		return nil, err
	}
	summary, err := s.credits.Summary(ctx, id)
	if err != nil {
		if errors.Is(err, credit.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &ProfileResponse{
		Response:        ResponseFrom(u),
		TotalsResponse: credit.TotalsResponseFrom(summary),
	}, nil
}

// Delete soft-deletes the account.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	log.Info().Str("user_id", id.String()).Msg("User soft-deleted")
	return nil
}
