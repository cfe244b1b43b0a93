// Package iap verifies in-app purchase receipts against the Apple and Google
// stores and normalises every outcome into a Result. Verifiers never return
// errors: network, parsing and configuration problems become invalid results
// tagged with a Failure kind so callers can choose between rejecting and
// asking the client to retry.
package iap

import (
	"context"
	"errors"
	"time"
)

// Platform is the store a receipt was issued by.
type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
)

// Valid reports whether p is a supported store.
func (p Platform) Valid() bool {
	switch p {
	case PlatformIOS, PlatformAndroid:
		return true
	}
	return false
}

// Failure classifies why a receipt did not verify.
type Failure string

const (
	FailureNone          Failure = ""
	FailureRejected      Failure = "rejected"      // store says the receipt is not a completed purchase
	FailureMalformed     Failure = "malformed"     // store answer could not be parsed
	FailureUnavailable   Failure = "unavailable"   // timeout, network error or store-side outage
	FailureMisconfigured Failure = "misconfigured" // credentials missing or refused
)

// Retryable reports whether the client should retry the same receipt later.
func (f Failure) Retryable() bool {
	return f == FailureUnavailable
}

// Result is the normalised verification outcome.
type Result struct {
	IsValid        bool
	TransactionID  string
	ProductID      string
	PurchaseDate   time.Time
	IsTestPurchase bool
	Failure        Failure
	// Reason is operator-facing detail; never shown to clients.
	Reason string
}

// Outcome is a short label for logs and metrics.
func (r Result) Outcome() string {
	if r.IsValid {
		return "valid"
	}
	if r.Failure == FailureNone {
		return string(FailureRejected)
	}
	return string(r.Failure)
}

func invalid(f Failure, reason string) Result {
	return Result{Failure: f, Reason: reason}
}

// Receipt is one purchase proof submitted by a client.
type Receipt struct {
	Platform  Platform
	ProductID string
	// Data is the base64 App Store receipt or the Play purchase token.
	Data string
	// ClaimedTransactionID is the id the client reported; used to pick the
	// matching entry out of a multi-purchase Apple receipt.
	ClaimedTransactionID string
}

// Verifier checks a receipt with one store.
type Verifier interface {
	Verify(ctx context.Context, receipt Receipt) Result
}

// ErrTestModeDisabled is returned when a test purchase is requested but not allowed.
var ErrTestModeDisabled = errors.New("test purchases are disabled")
