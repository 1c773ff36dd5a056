package domain

import "errors"

// Domain-specific errors for event projection.
var (
	// Projection errors. Handlers return these when an event cannot be applied;
	// the router logs and skips them without stopping the stream.
	ErrMissingParent     = errors.New("referenced entity does not exist")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrDuplicateCreation = errors.New("entity already exists")

	// Decoding errors
	ErrInvalidAddress = errors.New("invalid address")
	ErrUnknownKind    = errors.New("unknown task kind")
	ErrInvalidEvent   = errors.New("invalid event")

	// Query errors
	ErrInvalidStatus    = errors.New("invalid status")
	ErrInvalidDirection = errors.New("invalid order direction")
)

// IsSkippable reports whether err is a data-consistency guard that should be
// logged and skipped rather than propagated to the caller.
func IsSkippable(err error) bool {
	return errors.Is(err, ErrMissingParent) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrDuplicateCreation)
}
