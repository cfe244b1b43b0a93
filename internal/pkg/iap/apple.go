package iap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

const (
	appleStatusValid          = 0
	appleStatusSandboxReceipt = 21007
	maxAppleResponseBytes     = 4 << 20
)

// AppleConfig configures the App Store verifyReceipt client.
type AppleConfig struct {
	SharedSecret  string
	ProductionURL string
	SandboxURL    string
	Timeout       time.Duration
}

// AppleVerifier validates receipts with the App Store verifyReceipt endpoint.
type AppleVerifier struct {
	cfg  AppleConfig
	http *http.Client
}

// NewAppleVerifier creates an App Store verifier.
func NewAppleVerifier(cfg AppleConfig) *AppleVerifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &AppleVerifier{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}
}

type appleRequest struct {
	ReceiptData            string `json:"receipt-data"`
	Password               string `json:"password,omitempty"`
	ExcludeOldTransactions bool   `json:"exclude-old-transactions"`
}

// Verify posts the receipt to production and retries once against the
// sandbox when Apple answers 21007.
func (v *AppleVerifier) Verify(ctx context.Context, receipt Receipt) Result {
	if v.cfg.SharedSecret == "" {
		log.Error().Msg("Apple shared secret is not configured")
		return invalid(FailureMisconfigured, "apple shared secret missing")
	}

	ctx, cancel := context.WithTimeout(ctx, v.cfg.Timeout)
	defer cancel()

	body, res, ok := v.post(ctx, v.cfg.ProductionURL, receipt.Data)
	if !ok {
		return res
	}

	status := gjson.GetBytes(body, "status").Int()
	if status == appleStatusSandboxReceipt {
		log.Debug().Msg("Sandbox receipt sent to production, retrying against sandbox")
		body, res, ok = v.post(ctx, v.cfg.SandboxURL, receipt.Data)
		if !ok {
			return res
		}
		status = gjson.GetBytes(body, "status").Int()
	}

	if status != appleStatusValid {
		return invalid(appleFailure(status), fmt.Sprintf("apple status %d", status))
	}

	entry, found := pickAppleTransaction(body, receipt.ClaimedTransactionID)
	if !found {
		return invalid(FailureRejected, "receipt has no in-app transactions")
	}

	txID := entry.Get("transaction_id").String()
	if txID == "" {
		return invalid(FailureMalformed, "transaction without id")
	}

	var purchasedAt time.Time
	if ms, err := strconv.ParseInt(entry.Get("purchase_date_ms").String(), 10, 64); err == nil {
		purchasedAt = time.UnixMilli(ms).UTC()
	}

	return Result{
		IsValid:       true,
		TransactionID: txID,
		ProductID:     entry.Get("product_id").String(),
		PurchaseDate:  purchasedAt,
	}
}

// post returns the response body, or ok=false with the invalid result to surface.
func (v *AppleVerifier) post(ctx context.Context, endpoint, receiptData string) ([]byte, Result, bool) {
	payload, err := json.Marshal(appleRequest{
		ReceiptData:            receiptData,
		Password:               v.cfg.SharedSecret,
		ExcludeOldTransactions: true,
	})
	if err != nil {
		return nil, invalid(FailureMalformed, err.Error()), false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, invalid(FailureMisconfigured, err.Error()), false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.http.Do(req)
	if err != nil {
		if isTransient(ctx, err) {
			return nil, invalid(FailureUnavailable, err.Error()), false
		}
		return nil, invalid(FailureRejected, err.Error()), false
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAppleResponseBytes))
	if err != nil {
		return nil, invalid(FailureUnavailable, err.Error()), false
	}
	if resp.StatusCode >= 500 {
		return nil, invalid(FailureUnavailable, fmt.Sprintf("apple http %d", resp.StatusCode)), false
	}
	if resp.StatusCode != http.StatusOK || !gjson.ValidBytes(body) || !gjson.GetBytes(body, "status").Exists() {
		return nil, invalid(FailureMalformed, fmt.Sprintf("apple http %d: unexpected body", resp.StatusCode)), false
	}
	return body, Result{}, true
}

// pickAppleTransaction prefers the entry matching the client's claimed id,
// falling back to the first entry of latest_receipt_info, then receipt.in_app.
func pickAppleTransaction(body []byte, claimed string) (gjson.Result, bool) {
	lists := []gjson.Result{
		gjson.GetBytes(body, "latest_receipt_info"),
		gjson.GetBytes(body, "receipt.in_app"),
	}

	if claimed != "" {
		for _, list := range lists {
			for _, entry := range list.Array() {
				if entry.Get("transaction_id").String() == claimed {
					return entry, true
				}
			}
		}
	}

	for _, list := range lists {
		if first := list.Get("0"); first.Exists() {
			return first, true
		}
	}
	return gjson.Result{}, false
}

// appleFailure maps a non-zero verifyReceipt status to a failure kind.
func appleFailure(status int64) Failure {
	switch {
	case status == 21005 || status == 21009 || (status >= 21100 && status <= 21199):
		return FailureUnavailable
	case status == 21004: // shared secret mismatch
		return FailureMisconfigured
	default:
		return FailureRejected
	}
}
