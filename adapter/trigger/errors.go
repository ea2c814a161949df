package trigger

import (
	"errors"
	"fmt"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrDuplicateHandler matches any DuplicateHandlerError.
	ErrDuplicateHandler = errors.New("trigger handler already registered")

	// ErrRegistrationClosed is returned when registering after the factory
	// served its first trigger.
	ErrRegistrationClosed = errors.New("trigger registration closed")

	// ErrUnsupportedRouter is returned by RegistrarFor for unknown router types.
	ErrUnsupportedRouter = errors.New("unsupported router")

	// ErrInvalidRegistration is returned for an empty source, empty id or nil handler.
	ErrInvalidRegistration = errors.New("invalid trigger registration")
)

// DuplicateHandlerError is returned when an id is registered twice for one event source.
type DuplicateHandlerError struct {
	EventSource string
	ID          string
}

func (e *DuplicateHandlerError) Error() string {
	return fmt.Sprintf("route id %q already exists for event source %q", e.ID, e.EventSource)
}

func (e *DuplicateHandlerError) Is(target error) bool {
	return target == ErrDuplicateHandler
}

// NewDuplicateHandlerError creates a new DuplicateHandlerError.
func NewDuplicateHandlerError(eventSource, id string) *DuplicateHandlerError {
	return &DuplicateHandlerError{EventSource: eventSource, ID: id}
}

// HandlerResultError is returned when a handler declared a JSON response but
// wrote something that is not JSON.
type HandlerResultError struct {
	EventSource string
	ID          string
	Cause       error
}

func (e *HandlerResultError) Error() string {
	return fmt.Sprintf("trigger handler %s/%s: %v", e.EventSource, e.ID, e.Cause)
}

func (e *HandlerResultError) Unwrap() error {
	return e.Cause
}
