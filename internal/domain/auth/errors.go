package auth

import "errors"

var (
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
	ErrUserNotFound        = errors.New("user not found")
	ErrAccountDeleted      = errors.New("account has been deleted")
)
