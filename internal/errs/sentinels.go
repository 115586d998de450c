// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across client layers.
var (
	// ErrNotAuthenticated indicates there is no usable session; callers treat
	// this as an empty state, not a failure.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrNoActiveChat indicates an operation that requires a selected chat.
	ErrNoActiveChat = errors.New("no active chat")

	// ErrEmptyMessage indicates a send attempt with blank text.
	ErrEmptyMessage = errors.New("empty message")

	// ErrMarkAllInFlight indicates a mark-all-read call while one is pending.
	ErrMarkAllInFlight = errors.New("mark-all already in flight")

	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")
)
