package credit

import "errors"

var (
	// ErrInsufficientCredits is returned when user doesn't have enough credits
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrInvalidAmount is returned for a zero amount or one whose sign contradicts the reason
	ErrInvalidAmount = errors.New("invalid amount")

	ErrInvalidReason = errors.New("invalid reason code")

	// ErrUserNotFound is returned when user doesn't exist
	ErrUserNotFound = errors.New("user not found")

	ErrUserDeleted = errors.New("user has been deleted")

	ErrAdLimitReached = errors.New("daily ad reward limit reached")

	ErrInternal = errors.New("internal error")
)
