package domain

import "errors"

var (
	// ErrNotFound is returned when a quiz or comment context does not exist.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates malformed input, rejected locally or by the backend.
	ErrValidation = errors.New("validation failed")
	// ErrAuthExpired is returned on 401/419 responses during an authenticated flow.
	ErrAuthExpired = errors.New("authentication expired")
	// ErrTransient covers network failures and unexpected server errors; retry is manual.
	ErrTransient = errors.New("transient network failure")
	// ErrMaintenance signals the backend is in maintenance mode. It supersedes every other error.
	ErrMaintenance = errors.New("backend in maintenance mode")

	// ErrSubmitInFlight is returned when a second submission is attempted while one is pending.
	ErrSubmitInFlight = errors.New("submission already in flight")
	// ErrInvalidTransition is returned when an operation is not allowed in the current session state.
	ErrInvalidTransition = errors.New("operation not allowed in current state")
	// ErrSessionClosed is returned for operations on a terminal session.
	ErrSessionClosed = errors.New("quiz session closed")
)
