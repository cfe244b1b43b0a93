package iap

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/androidpublisher/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// purchaseStatePurchased is ProductPurchase.PurchaseState for a completed purchase.
const purchaseStatePurchased = 0

// productFetcher reads a one-time product purchase from the Play Developer API.
type productFetcher interface {
	GetProduct(ctx context.Context, packageName, productID, token string) (*androidpublisher.ProductPurchase, error)
}

type publisherFetcher struct {
	svc *androidpublisher.Service
}

func (f publisherFetcher) GetProduct(ctx context.Context, packageName, productID, token string) (*androidpublisher.ProductPurchase, error) {
	return f.svc.Purchases.Products.Get(packageName, productID, token).Context(ctx).Do()
}

// GoogleConfig configures the Play purchase verifier.
type GoogleConfig struct {
	// ServiceAccountKey is the base64 encoded service account JSON.
	ServiceAccountKey string
	PackageName       string
	Timeout           time.Duration
}

// GoogleVerifier validates Play purchase tokens.
type GoogleVerifier struct {
	packageName string
	timeout     time.Duration
	fetcher     productFetcher
	initErr     error
}

// NewGoogleVerifier builds a verifier. A missing or unreadable key does not
// fail construction; every Verify call then reports FailureMisconfigured.
func NewGoogleVerifier(ctx context.Context, cfg GoogleConfig) *GoogleVerifier {
	v := &GoogleVerifier{packageName: cfg.PackageName, timeout: cfg.Timeout}
	if v.timeout <= 0 {
		v.timeout = 15 * time.Second
	}

	if cfg.ServiceAccountKey == "" {
		v.initErr = errors.New("google service account key missing")
		return v
	}

	keyJSON, err := base64.StdEncoding.DecodeString(cfg.ServiceAccountKey)
	if err != nil {
		v.initErr = fmt.Errorf("decode google service account key: %w", err)
		return v
	}

	jwtCfg, err := google.JWTConfigFromJSON(keyJSON, androidpublisher.AndroidpublisherScope)
	if err != nil {
		v.initErr = fmt.Errorf("parse google service account key: %w", err)
		return v
	}

	svc, err := androidpublisher.NewService(ctx, option.WithTokenSource(jwtCfg.TokenSource(ctx)))
	if err != nil {
		v.initErr = fmt.Errorf("create android publisher client: %w", err)
		return v
	}

	v.fetcher = publisherFetcher{svc: svc}
	return v
}

// Verify checks the purchase token for receipt.ProductID.
func (v *GoogleVerifier) Verify(ctx context.Context, receipt Receipt) Result {
	if v.fetcher == nil {
		log.Error().Err(v.initErr).Msg("Google Play verification is not configured")
		return invalid(FailureMisconfigured, "google verifier not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	purchase, err := v.fetcher.GetProduct(ctx, v.packageName, receipt.ProductID, receipt.Data)
	if err != nil {
		return invalid(googleFailure(ctx, err), err.Error())
	}
	if purchase == nil {
		return invalid(FailureMalformed, "empty purchase response")
	}

	if purchase.PurchaseState != purchaseStatePurchased {
		return invalid(FailureRejected, fmt.Sprintf("purchase state %d", purchase.PurchaseState))
	}

	txID := purchase.OrderId
	if txID == "" {
		// Orders without an id still need a stable identity for duplicate detection.
		txID = "google_" + tokenDigest(receipt.Data)
	}

	var purchasedAt time.Time
	if purchase.PurchaseTimeMillis > 0 {
		purchasedAt = time.UnixMilli(purchase.PurchaseTimeMillis).UTC()
	}

	return Result{
		IsValid:       true,
		TransactionID: txID,
		ProductID:     receipt.ProductID,
		PurchaseDate:  purchasedAt,
	}
}

func googleFailure(ctx context.Context, err error) Failure {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden:
			return FailureMisconfigured
		case apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500:
			return FailureUnavailable
		default:
			return FailureRejected
		}
	}
	if isTransient(ctx, err) {
		return FailureUnavailable
	}
	return FailureRejected
}

func tokenDigest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:16])
}
