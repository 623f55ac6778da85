package searchkit

import "github.com/mixpeek/searchkit/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrRequestFailed     = domain.ErrRequestFailed
	ErrCancelled         = domain.ErrCancelled
	ErrStreamUnsupported = domain.ErrStreamUnsupported
	ErrDecodeSkipped     = domain.ErrDecodeSkipped
	ErrExecutionFailed   = domain.ErrExecutionFailed
	ErrInvalidRequest    = domain.ErrInvalidRequest
	ErrInvalidConfig     = domain.ErrInvalidConfig
)

// RequestError carries the server-provided message of a failed request.
type RequestError = domain.RequestError

// ExecutionError is a pipeline failure reported by the retriever.
type ExecutionError = domain.ExecutionError
