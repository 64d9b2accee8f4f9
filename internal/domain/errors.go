package domain

import "errors"

// Domain errors represent error conditions in the hostlink domain.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrAlreadyRunning is returned when Start() is called on a running instance.
	ErrAlreadyRunning = errors.New("hostlink: already running")

	// ErrNotRunning is returned when an operation needs the dispatcher
	// but the instance is not running.
	ErrNotRunning = errors.New("hostlink: not running")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("hostlink: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("hostlink: invalid configuration")

	// ErrTimeout is returned when no correlated response (or notification)
	// arrived before the deadline.
	ErrTimeout = errors.New("hostlink: timeout")

	// ErrUnknownSequence is returned by WaitFor for ids that were never
	// submitted or have already been released.
	ErrUnknownSequence = errors.New("hostlink: unknown sequence")

	// ErrUnknownOperation is returned when an operation name is not registered.
	ErrUnknownOperation = errors.New("hostlink: unknown operation")
)
