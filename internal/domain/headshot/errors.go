package headshot

import "errors"

var (
	ErrInvalidImageURL    = errors.New("invalid image url")
	ErrInvalidStyle       = errors.New("invalid headshot style")
	ErrInvalidAspectRatio = errors.New("invalid aspect ratio")
	ErrGenerationNotFound = errors.New("headshot generation not found")
	ErrInvalidAction      = errors.New("invalid batch action")
	ErrUserNotFound       = errors.New("user not found")
	ErrUnavailable        = errors.New("headshot generation unavailable")
	ErrGenerationFailed   = errors.New("headshot generation failed")
	ErrInternal           = errors.New("internal error")
)

// FailedError is a generation that was recorded as failed.
type FailedError struct {
	GenerationID int64
	Message      string
	Err          error
}

func (e *FailedError) Error() string { return e.Message }

func (e *FailedError) Unwrap() error { return e.Err }

// InvalidIDsError lists generation ids the caller does not own.
type InvalidIDsError struct {
	IDs []int64
}

func (e *InvalidIDsError) Error() string {
	return "some generations not found or not owned by user"
}
