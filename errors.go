package dtcinitium

import "errors"

var (
	// ErrConfigNil indicates that a nil ConnectionConfig was provided.
	ErrConfigNil = errors.New("connection config is nil")

	// ErrInvalidTable indicates a setup table id outside the hardware range [1, 5].
	ErrInvalidTable = errors.New("setup table id outside [1, 5]")

	// ErrTableNotConfigured indicates that an acquisition was requested
	// against a setup table id that has not been configured.
	ErrTableNotConfigured = errors.New("setup table not configured")

	// ErrAcquiring indicates that an operation was attempted while an
	// acquisition session is active on the connection.
	ErrAcquiring = errors.New("acquisition in progress")

	// ErrNotAcquiring indicates that an operation requiring an active
	// acquisition session was attempted while none is running.
	ErrNotAcquiring = errors.New("no acquisition in progress")

	// ErrClosed indicates that the device connection has been closed.
	ErrClosed = errors.New("device connection closed")
)
