package user

import "errors"

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserDeleted  = errors.New("user has been deleted")
	ErrInternal     = errors.New("internal error")
)
