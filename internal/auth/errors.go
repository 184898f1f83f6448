package auth

import "errors"

var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("resource conflict")
	ErrInvalidToken   = errors.New("invalid token")
	ErrBadCredentials = errors.New("incorrect email or password")
	ErrRateLimited    = errors.New("too many failed login attempts")
	ErrForbidden      = errors.New("insufficient privileges")
)
