package vault

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is the parent of every request validation error
	ErrInvalidInput = errors.New("invalid input")

	ErrInvalidPin         = fmt.Errorf("%w: invalid vault pin", ErrInvalidInput)
	ErrInvalidName        = fmt.Errorf("%w: invalid access card name", ErrInvalidInput)
	ErrMissingCredentials = fmt.Errorf("%w: missing access card id and/or access card secret", ErrInvalidInput)

	// ErrNotAuthenticated is returned for every credential failure. It never
	// says which part of the credentials was wrong.
	ErrNotAuthenticated = errors.New("invalid login credentials")

	ErrAlreadyInitialized = errors.New("vault already initialized")
	ErrCannotRevokeLast   = errors.New("there must be at least 1 access card configured for the vault")
	ErrNotFound           = errors.New("not found")
)
