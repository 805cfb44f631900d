package csp

import "fmt"

// TypeError reports a nil value where one is forbidden, an invalid
// constructor combination, or a transducer producing a nil value —
// mirrors spec §7's type-error category and eventloop/errors.go's
// TypeError.
type TypeError struct {
	Message string
	Cause   error
}

func (e *TypeError) Error() string {
	if e.Message == "" {
		return "csp: type error"
	}
	return "csp: " + e.Message
}

func (e *TypeError) Unwrap() error { return e.Cause }

// ValueError reports a non-positive buffer size, a duplicate channel
// passed to Alt, an empty Alt call, or a non-positive transducer
// parameter — mirrors spec §7's value-error category.
type ValueError struct {
	Message string
	Cause   error
}

func (e *ValueError) Error() string {
	if e.Message == "" {
		return "csp: value error"
	}
	return "csp: " + e.Message
}

func (e *ValueError) Unwrap() error { return e.Cause }

// QueueKind distinguishes which of a Chan's two internal FIFOs triggered
// a QueueSizeExceededError.
type QueueKind int

const (
	// TakesQueue is the FIFO of parked Get handlers.
	TakesQueue QueueKind = iota
	// PutsQueue is the FIFO of parked (Handler, value) put pairs.
	PutsQueue
)

func (k QueueKind) String() string {
	if k == TakesQueue {
		return "takes"
	}
	return "puts"
}

// QueueSizeExceededError is raised when a Chan's takes or puts queue
// would grow past MaxQueueSize — spec §3/§7's "fails loudly" guard
// against unbounded parking.
type QueueSizeExceededError struct {
	Kind QueueKind
}

func (e *QueueSizeExceededError) Error() string {
	return fmt.Sprintf("csp: %s queue exceeded MaxQueueSize (%d)", e.Kind, MaxQueueSize)
}

// WrapError wraps an error with a message, matching eventloop/errors.go's
// WrapError convenience helper.
func WrapError(message string, cause error) error {
	return fmt.Errorf("%s: %w", message, cause)
}
