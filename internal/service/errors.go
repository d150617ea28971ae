// Package service provides business logic services for Bodleian.
package service

import "errors"

// Common service errors.
var (
	// Validation errors
	ErrInvalidUsername  = errors.New("invalid username: must be 3-255 characters")
	ErrInvalidEmail     = errors.New("invalid email format")
	ErrInvalidPhone     = errors.New("invalid phone: must not be empty")
	ErrInvalidPassword  = errors.New("invalid password: must be at least 8 characters")
	ErrInvalidTitle     = errors.New("invalid title: must not be empty")
	ErrInvalidAuthor    = errors.New("invalid author: must not be empty")
	ErrInvalidISBN      = errors.New("invalid isbn: must not be empty")
	ErrInvalidCopyCount = errors.New("invalid copy count: must be at least 1")

	// General errors
	ErrInternalError = errors.New("internal server error")
)
