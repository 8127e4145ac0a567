package services

import "errors"

var (
	// ErrUnauthorized covers bad credentials and unknown or expired sessions.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidInput is wrapped by validation failures.
	ErrInvalidInput = errors.New("invalid input")
	// ErrConflict reports content another run already posted or is posting.
	ErrConflict = errors.New("conflict")
)
