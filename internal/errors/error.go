package errors

import "errors"

var (
	ErrUserNotFound       = errors.New("user was not found")
	ErrDuplicateEmail     = errors.New("user already exists with this email")
	ErrDuplicateUsername  = errors.New("username is already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrPasswordTooLong    = errors.New("password must be at most 72 bytes")
	ErrTokenMissing       = errors.New("no token provided")
	ErrInvalidToken       = errors.New("token is not valid")
	ErrInvalidActivity    = errors.New("activity item is not valid")
	ErrStorageUnavailable = errors.New("storage is unavailable")
	ErrInternal           = errors.New("internal error")
)
