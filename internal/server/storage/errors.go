package storage

import "errors"

// Common storage errors
var (
	// ErrUserNotFound indicates that user was not found in storage
	ErrUserNotFound = errors.New("user not found")

	// ErrUserAlreadyExists indicates that user with this email already exists
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrTokenNotFound indicates that no active refresh token matched
	ErrTokenNotFound = errors.New("refresh token not found")

	// ErrTokenAlreadyExists indicates an insert of a token value that is already stored
	ErrTokenAlreadyExists = errors.New("refresh token already exists")
)
