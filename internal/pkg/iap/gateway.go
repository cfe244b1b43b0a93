package iap

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/chitra-ai/chitra-api/internal/pkg/metrics"
)

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// Gateway dispatches receipts to the verifier for their platform.
type Gateway struct {
	apple     Verifier
	google    Verifier
	allowTest bool
	now       func() time.Time
}

// NewGateway creates a gateway. allowTest gates synthetic test purchases.
func NewGateway(apple, google Verifier, allowTest bool) *Gateway {
	return &Gateway{apple: apple, google: google, allowTest: allowTest, now: time.Now}
}

// TestModeAllowed reports whether synthetic test purchases are enabled.
func (g *Gateway) TestModeAllowed() bool { return g.allowTest }

// Verify checks a real receipt with its store.
func (g *Gateway) Verify(ctx context.Context, receipt Receipt) Result {
	var v Verifier
	switch receipt.Platform {
	case PlatformIOS:
		v = g.apple
	case PlatformAndroid:
		v = g.google
	}

	var res Result
	if v == nil {
		res = invalid(FailureMisconfigured, fmt.Sprintf("no verifier for platform %q", receipt.Platform))
	} else {
		res = v.Verify(ctx, receipt)
	}

	metrics.RecordVerification(string(receipt.Platform), res.Outcome())
	return res
}

// VerifyTest synthesises a test purchase without contacting any store.
func (g *Gateway) VerifyTest(receipt Receipt) (Result, error) {
	if !g.allowTest {
		metrics.RecordVerification(string(receipt.Platform), "test_disabled")
		return Result{}, ErrTestModeDisabled
	}

	now := g.now().UTC()
	metrics.RecordVerification(string(receipt.Platform), "test")
	return Result{
		IsValid:        true,
		TransactionID:  testTransactionID(now),
		ProductID:      receipt.ProductID,
		PurchaseDate:   now,
		IsTestPurchase: true,
	}, nil
}

// testTransactionID has the form test_<unix ms>_<7 base36 chars>.
func testTransactionID(now time.Time) string {
	var b strings.Builder
	b.WriteString("test_")
	b.WriteString(strconv.FormatInt(now.UnixMilli(), 10))
	b.WriteByte('_')
	for i := 0; i < 7; i++ {
		b.WriteByte(base36[rand.IntN(len(base36))])
	}
	return b.String()
}
