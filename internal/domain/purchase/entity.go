package purchase

import (
	"time"

	"github.com/google/uuid"

	"github.com/chitra-ai/chitra-api/internal/pkg/iap"
)

// Plan maps a store product id to a credit grant.
type Plan struct {
	Name      string
	ProductID string
	Credits   int
	Platform  iap.Platform
}

var androidPlans = []Plan{
	{Name: "10 Credits", ProductID: "credits_10", Credits: 10, Platform: iap.PlatformAndroid},
	{Name: "50 Credits", ProductID: "credits_50", Credits: 50, Platform: iap.PlatformAndroid},
	{Name: "100 Credits", ProductID: "credits_100", Credits: 100, Platform: iap.PlatformAndroid},
	{Name: "1000 Credits", ProductID: "credits_1000", Credits: 1000, Platform: iap.PlatformAndroid},
}

var iosPlans = []Plan{
	{Name: "10 Credits", ProductID: "ios_credits_10", Credits: 10, Platform: iap.PlatformIOS},
	{Name: "50 Credits", ProductID: "ios_credits_50", Credits: 50, Platform: iap.PlatformIOS},
	{Name: "100 Credits", ProductID: "ios_credits_100", Credits: 100, Platform: iap.PlatformIOS},
	{Name: "1000 Credits", ProductID: "ios_credits_1000", Credits: 1000, Platform: iap.PlatformIOS},
}

// PlansFor returns the catalogue of a platform.
func PlansFor(p iap.Platform) []Plan {
	switch p {
	case iap.PlatformIOS:
		return iosPlans
	case iap.PlatformAndroid:
		return androidPlans
	}
	return nil
}

// PlanByProductID looks a product up across both catalogues.
func PlanByProductID(productID string) (Plan, bool) {
	for _, catalogue := range [][]Plan{androidPlans, iosPlans} {
		for _, p := range catalogue {
			if p.ProductID == productID {
				return p, true
			}
		}
	}
	return Plan{}, false
}

// Purchase is a reconciled store transaction (transactions table).
type Purchase struct {
	ID            int64        `db:"id"`
	TransactionID string       `db:"transaction_id"`
	UserID        uuid.UUID    `db:"user_id"`
	ProductID     string       `db:"product_id"`
	Credits       int          `db:"credits"`
	Platform      iap.Platform `db:"platform"`
	IsTest        bool         `db:"is_test"`
	Receipt       string       `db:"receipt"`
	VerifiedAt    time.Time    `db:"verified_at"`
}

const receiptPrefixLen = 100

// truncateReceipt keeps a short audit prefix of the receipt.
func truncateReceipt(receipt string) string {
	if len(receipt) <= receiptPrefixLen {
		return receipt + "..."
	}
	return receipt[:receiptPrefixLen] + "..."
}
