package purchase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/chitra-ai/chitra-api/internal/domain/credit"
	"github.com/chitra-ai/chitra-api/internal/domain/user"
	"github.com/chitra-ai/chitra-api/internal/pkg/iap"
	"github.com/chitra-ai/chitra-api/internal/pkg/metrics"
	"github.com/chitra-ai/chitra-api/internal/pkg/push"
)

const (
	pushTitle = "New Creations Await!"
	pushBody  = "Unleash your creativity! Your new image generation credits are ready."
)

// Verifier checks receipts with the stores.
type Verifier interface {
	Verify(ctx context.Context, receipt iap.Receipt) iap.Result
	VerifyTest(receipt iap.Receipt) (iap.Result, error)
}

// Ledger grants credits.
type Ledger interface {
	Adjust(ctx context.Context, adj credit.Adjustment) (int, error)
	AdjustTx(ctx context.Context, tx *sqlx.Tx, adj credit.Adjustment) (int, error)
}

// Users resolves the caller.
type Users interface {
	Active(ctx context.Context, id uuid.UUID) (*user.User, error)
}

// Notifier delivers push messages without blocking.
type Notifier interface {
	Notify(msg *push.PushMessage)
}

// Service turns verified receipts into credit grants.
type Service struct {
	repo          Repository
	verifier      Verifier
	ledger        Ledger
	users         Users
	notifier      Notifier
	legacyEnabled bool
	now           func() time.Time
}

func NewService(repo Repository, verifier Verifier, ledger Ledger, users Users, notifier Notifier, legacyEnabled bool) *Service {
	return &Service{
		repo:          repo,
		verifier:      verifier,
		ledger:        ledger,
		users:         users,
		notifier:      notifier,
		legacyEnabled: legacyEnabled,
		now:           time.Now,
	}
}

// Plans lists the catalogue of platform.
func (s *Service) Plans(platform iap.Platform) ([]Plan, error) {
	if !platform.Valid() {
		return nil, ErrInvalidPlatform
	}
	return PlansFor(platform), nil
}

// DefaultPlatform returns the device platform of the caller.
func (s *Service) DefaultPlatform(ctx context.Context, userID uuid.UUID) (iap.Platform, error) {
	u, err := s.activeUser(ctx, userID)
	if err != nil {
		return "", err
	}
	return iap.Platform(u.DeviceType), nil
}

// VerifyPurchase validates a store receipt and grants its credits at most
// once per store transaction id.
func (s *Service) VerifyPurchase(ctx context.Context, userID uuid.UUID, req *VerifyPurchaseRequest) (*VerifyPurchaseResponse, error) {
	platform := iap.Platform(req.Platform)
	if !platform.Valid() {
		return nil, ErrInvalidPlatform
	}

	logger := log.With().
		Str("user_id", userID.String()).
		Str("platform", req.Platform).
		Str("product_id", req.ProductID).
		Str("claimed_transaction_id", req.TransactionID).
		Logger()

	plan, ok := PlanByProductID(req.ProductID)
	if !ok {
		metrics.RecordPurchase(req.Platform, "unknown_product")
		logger.Warn().Msg("Purchase for unknown product")
		return nil, ErrUnknownProduct
	}

	u, err := s.activeUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	receipt := iap.Receipt{
		Platform:             platform,
		ProductID:            req.ProductID,
		Data:                 req.Receipt,
		ClaimedTransactionID: req.TransactionID,
	}

	var res iap.Result
	if req.IsTestMode {
		res, err = s.verifier.VerifyTest(receipt)
		if err != nil {
			metrics.RecordPurchase(req.Platform, "test_disabled")
			logger.Warn().Msg("Test purchase attempted while disabled")
			return nil, ErrTestModeDisabled
		}
	} else {
		res = s.verifier.Verify(ctx, receipt)
	}

	if !res.IsValid {
		metrics.RecordPurchase(req.Platform, "invalid")
		logger.Warn().Str("failure", string(res.Failure)).Str("reason", res.Reason).Msg("Receipt verification failed")
		if res.Failure.Retryable() {
			return nil, ErrVerificationUnavailable
		}
		return nil, ErrInvalidReceipt
	}
	if res.ProductID != "" && res.ProductID != req.ProductID {
		metrics.RecordPurchase(req.Platform, "product_mismatch")
		logger.Warn().Str("verified_product_id", res.ProductID).Msg("Receipt product does not match request")
		return nil, ErrProductMismatch
	}

	txID := res.TransactionID
	if txID == "" {
		txID = req.TransactionID
	}

	p := &Purchase{
		TransactionID: txID,
		UserID:        userID,
		ProductID:     plan.ProductID,
		Credits:       plan.Credits,
		Platform:      platform,
		IsTest:        res.IsTestPurchase,
		Receipt:       truncateReceipt(req.Receipt),
		VerifiedAt:    s.now().UTC(),
	}

	balance, err := s.repo.RecordPurchase(ctx, p, func(ctx context.Context, tx *sqlx.Tx) (int, error) {
		return s.ledger.AdjustTx(ctx, tx, credit.Adjustment{
			UserID: userID,
			Amount: plan.Credits,
			Reason: credit.ReasonCreditPurchase,
		})
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateTransaction) {
			metrics.RecordPurchase(req.Platform, "duplicate")
			logger.Warn().Str("transaction_id", txID).Msg("Duplicate transaction")
			return nil, ErrDuplicateTransaction
		}
		if errors.Is(err, credit.ErrUserNotFound) || errors.Is(err, credit.ErrUserDeleted) {
			return nil, ErrUserNotFound
		}
		metrics.RecordPurchase(req.Platform, "error")
		return nil, fmt.Errorf("record purchase: %w", err)
	}

	metrics.RecordPurchase(req.Platform, "granted")
	logger.Info().
		Str("transaction_id", txID).
		Int("credits", plan.Credits).
		Int("balance", balance).
		Bool("test", res.IsTestPurchase).
		Msg("Credits granted for purchase")

	s.notify(u)

	msg := fmt.Sprintf("%d credits added successfully", plan.Credits)
	if res.IsTestPurchase {
		msg = fmt.Sprintf("TEST: %d credits added (StoreKit/Play simulator)", plan.Credits)
	}
	return &VerifyPurchaseResponse{
		Success:        true,
		Credits:        plan.Credits,
		NewBalance:     balance,
		IsTestPurchase: res.IsTestPurchase,
		Message:        msg,
	}, nil
}

// PurchasePlan grants a plan's credits without a receipt. Only available
// when explicitly enabled.
func (s *Service) PurchasePlan(ctx context.Context, userID uuid.UUID, productID string) (int, error) {
	if !s.legacyEnabled {
		return 0, ErrLegacyDisabled
	}

	u, err := s.activeUser(ctx, userID)
	if err != nil {
		return 0, err
	}

	plan, ok := PlanByProductID(productID)
	if !ok {
		return 0, ErrPlanNotFound
	}

	balance, err := s.ledger.Adjust(ctx, credit.Adjustment{UserID: userID, Amount: plan.Credits, Reason: credit.ReasonCreditPurchase})
	if err != nil {
		if errors.Is(err, credit.ErrUserNotFound) || errors.Is(err, credit.ErrUserDeleted) {
			return 0, ErrUserNotFound
		}
		return 0, err
	}

	metrics.RecordPurchase(string(plan.Platform), "legacy")
	log.Info().Str("user_id", userID.String()).Str("product_id", plan.ProductID).Int("credits", plan.Credits).Msg("Plan purchased")

	s.notify(u)
	return balance, nil
}

func (s *Service) activeUser(ctx context.Context, userID uuid.UUID) (*user.User, error) {
	u, err := s.users.Active(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

func (s *Service) notify(u *user.User) {
	if s.notifier == nil || !u.FCMToken.Valid {
		return
	}
	s.notifier.Notify(&push.PushMessage{Token: u.FCMToken.String, Title: pushTitle, Body: pushBody})
}
