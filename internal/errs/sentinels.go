// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across backend/controller layers.
var (
	// ErrNotFound indicates the requested ticket does not exist server-side.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized indicates a missing or rejected session token.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNoSession indicates no stored session token (login required).
	ErrNoSession = errors.New("no valid session (login required)")

	// ErrEmptyMessage indicates blank input rejected at the controller boundary.
	ErrEmptyMessage = errors.New("empty message")
)
