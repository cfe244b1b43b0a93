package credit

import (
	"time"

	"github.com/google/uuid"
)

// Reason is the closed set of ledger reason codes persisted in credit_histories.type.
type Reason string

const (
	ReasonAdsReward      Reason = "ADS_REWARD"
	ReasonCreditPurchase Reason = "CREDIT_PURCHASE"
	ReasonImageGen       Reason = "IMAGE_GEN"
	ReasonHeadshotGen    Reason = "HEADSHOT_GEN"
	// ReasonSignupBonus is the opening entry written with a new account.
	ReasonSignupBonus Reason = "SIGNUP_BONUS"
)

// Valid reports whether r is a known reason code.
func (r Reason) Valid() bool {
	switch r {
	case ReasonAdsReward, ReasonCreditPurchase, ReasonImageGen, ReasonHeadshotGen, ReasonSignupBonus:
		return true
	}
	return false
}

// Earns reports whether entries with this reason add credits.
func (r Reason) Earns() bool {
	switch r {
	case ReasonAdsReward, ReasonCreditPurchase, ReasonSignupBonus:
		return true
	case ReasonImageGen, ReasonHeadshotGen:
		return false
	}
	return false
}

// Adjustment is one signed balance mutation.
type Adjustment struct {
	UserID uuid.UUID
	Amount int
	Reason Reason
}

// Validate checks amount and reason and that the sign matches the reason.
func (a Adjustment) Validate() error {
	if a.UserID == uuid.Nil {
		return ErrUserNotFound
	}
	if !a.Reason.Valid() {
		return ErrInvalidReason
	}
	if a.Amount == 0 || (a.Amount > 0) != a.Reason.Earns() {
		return ErrInvalidAmount
	}
	return nil
}

func (a Adjustment) adsDelta() int {
	if a.Reason == ReasonAdsReward {
		return 1
	}
	return 0
}

// Account is the balance side of a user row.
type Account struct {
	ID           uuid.UUID `db:"id"`
	Credits      int       `db:"credits"`
	NoOfAdsWatch int       `db:"no_of_ads_watch"`
	IsDeleted    bool      `db:"is_deleted"`
}

// HistoryEntry is an immutable ledger row.
type HistoryEntry struct {
	ID        int64     `db:"id"`
	UserID    uuid.UUID `db:"user_id"`
	Amount    int       `db:"amount"`
	Type      Reason    `db:"type"`
	CreatedAt time.Time `db:"created_at"`
}

// Summary is the derived view of a user's ledger.
type Summary struct {
	Balance     int
	TotalEarned int
	TotalSpent  int
	AdsWatched  int
	History     []HistoryEntry
}

// Summarize folds history into earned and spent totals.
func Summarize(acc *Account, history []HistoryEntry) *Summary {
	s := &Summary{
		Balance:    acc.Credits,
		AdsWatched: acc.NoOfAdsWatch,
		History:    history,
	}
	for _, h := range history {
		if h.Amount > 0 {
			s.TotalEarned += h.Amount
		} else {
			s.TotalSpent -= h.Amount
		}
	}
	return s
}
