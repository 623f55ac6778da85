package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrRequestFailed signals a non-2xx response or a transport-level failure.
	ErrRequestFailed = errors.New("search request failed")
	// ErrCancelled signals an operation superseded by a newer one.
	ErrCancelled = errors.New("search cancelled")
	// ErrStreamUnsupported signals a streaming response without a readable body.
	ErrStreamUnsupported = errors.New("streaming not supported")
	// ErrDecodeSkipped signals a malformed SSE frame that was dropped.
	ErrDecodeSkipped = errors.New("sse frame skipped")
	// ErrExecutionFailed signals an execution_error reported by the server.
	ErrExecutionFailed = errors.New("execution failed")
	// ErrInvalidRequest signals an invalid search request.
	ErrInvalidRequest = errors.New("invalid search request")
	// ErrInvalidConfig signals a malformed client configuration (e.g. base URL).
	ErrInvalidConfig = errors.New("invalid configuration")
)

// RequestError carries the best available server-provided message for a failed request.
// It always matches ErrRequestFailed; Err adds a more specific cause when known.
type RequestError struct {
	Status  int // 0 for transport-level failures
	Message string
	Err     error
}

func (e *RequestError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Status > 0 {
		return fmt.Sprintf("%s (%d)", ErrRequestFailed.Error(), e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", ErrRequestFailed.Error(), e.Err.Error())
	}
	return ErrRequestFailed.Error()
}

func (e *RequestError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrRequestFailed}
	}
	return []error{ErrRequestFailed, e.Err}
}

// NewStatusError creates a RequestError for a non-2xx response.
// An empty message falls back to the generic "status N" text.
func NewStatusError(status int, message string) error {
	return &RequestError{Status: status, Message: message}
}

// ExecutionError is an authoritative pipeline failure reported in-stream.
type ExecutionError struct {
	ExecutionID string
	Message     string
}

func (e *ExecutionError) Error() string {
	if e.Message == "" {
		return "Execution failed"
	}
	return e.Message
}

func (e *ExecutionError) Unwrap() error { return ErrExecutionFailed }
