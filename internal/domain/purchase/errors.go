package purchase

import "errors"

var (
	ErrUnknownProduct          = errors.New("unknown product id")
	ErrInvalidPlatform         = errors.New("invalid platform")
	ErrInvalidReceipt          = errors.New("invalid receipt")
	ErrProductMismatch         = errors.New("receipt is for a different product")
	ErrDuplicateTransaction    = errors.New("receipt already used")
	ErrTestModeDisabled        = errors.New("test purchases are not allowed")
	ErrVerificationUnavailable = errors.New("store verification unavailable")
	ErrUserNotFound            = errors.New("user not found")
	ErrLegacyDisabled          = errors.New("direct plan purchase is disabled")
	ErrPlanNotFound            = errors.New("plan not found")
	ErrInternal                = errors.New("internal error")
)
