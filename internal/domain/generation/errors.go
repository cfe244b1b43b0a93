package generation

import "errors"

var (
	ErrInvalidStyle        = errors.New("unsupported style")
	ErrInvalidAspectRatio  = errors.New("unsupported aspect ratio")
	ErrEmptyPrompt         = errors.New("prompt is required")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrInvalidImage        = errors.New("invalid image format or dimensions")
	ErrGenerationFailed    = errors.New("image generation failed")
	ErrUnavailable         = errors.New("image generation unavailable")
	ErrUserNotFound        = errors.New("user not found")
)

// ShortfallError reports how many credits a request is missing.
type ShortfallError struct {
	Required  int
	Available int
}

func (e *ShortfallError) Error() string { return ErrInsufficientCredits.Error() }

func (e *ShortfallError) Unwrap() error { return ErrInsufficientCredits }

// Shortfall is the number of missing credits.
func (e *ShortfallError) Shortfall() int { return e.Required - e.Available }
