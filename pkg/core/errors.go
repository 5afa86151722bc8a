package core

import (
	"fmt"
)

// ErrorCategory classifies the type of error for better debugging and reporting
type ErrorCategory int

const (
	ErrCategoryNone     ErrorCategory = iota // No error
	ErrCategoryLocator                       // Malformed/ambiguous locator, unsupported strategy
	ErrCategoryElement                       // Element not found, stale beyond recovery
	ErrCategoryTimeout                       // Explicit wait condition never became true
	ErrCategoryContext                       // Frame/webview/backend switch failed
	ErrCategoryQuery                         // EQL parse or type failure
)

// String returns the string representation of ErrorCategory
func (c ErrorCategory) String() string {
	switch c {
	case ErrCategoryNone:
		return "none"
	case ErrCategoryLocator:
		return "locator"
	case ErrCategoryElement:
		return "element"
	case ErrCategoryTimeout:
		return "timeout"
	case ErrCategoryContext:
		return "context"
	case ErrCategoryQuery:
		return "query"
	default:
		return "unknown"
	}
}

// Retryable reports whether errors of this category may be absorbed by the
// retry engine. Context and query failures are structural: retrying them
// spends the timeout budget on a failure mode retries cannot fix.
func (c ErrorCategory) Retryable() bool {
	return c == ErrCategoryElement || c == ErrCategoryTimeout
}

// ExecutionError represents a structured error with category and details
type ExecutionError struct {
	Category ErrorCategory
	Code     string                 // Machine-readable code: no_such_element, stale_element, etc.
	Message  string                 // Human-readable message
	Details  map[string]interface{} // Additional context (selector, dimensions, attempts)
	Cause    error                  // Underlying error
}

// Error implements the error interface
func (e *ExecutionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// Is matches two ExecutionErrors by code, so errors.Is works against the
// predefined values even after WithCause/WithDetails copies.
func (e *ExecutionError) Is(target error) bool {
	t, ok := target.(*ExecutionError)
	return ok && e.Code == t.Code
}

// WithCause returns a copy of the error with the given cause
func (e *ExecutionError) WithCause(cause error) *ExecutionError {
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Message,
		Details:  e.Details,
		Cause:    cause,
	}
}

// WithMessage returns a copy of the error with a custom message
func (e *ExecutionError) WithMessage(msg string) *ExecutionError {
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  msg,
		Details:  e.Details,
		Cause:    e.Cause,
	}
}

// WithDetails returns a copy of the error with additional details
func (e *ExecutionError) WithDetails(details map[string]interface{}) *ExecutionError {
	merged := make(map[string]interface{})
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Message,
		Details:  merged,
		Cause:    e.Cause,
	}
}

// Predefined errors
var (
	// Locator errors
	ErrIncorrectLocator = &ExecutionError{
		Category: ErrCategoryLocator,
		Code:     "incorrect_locator",
		Message:  "locator tree has no branch for the current dimensions",
	}
	ErrUnsupportedLocator = &ExecutionError{
		Category: ErrCategoryLocator,
		Code:     "unsupported_locator",
		Message:  "selector strategy not supported by the active backend",
	}

	// Element errors
	ErrNoSuchElement = &ExecutionError{
		Category: ErrCategoryElement,
		Code:     "no_such_element",
		Message:  "element not found",
	}
	ErrStaleElement = &ExecutionError{
		Category: ErrCategoryElement,
		Code:     "stale_element",
		Message:  "element reference is stale and recovery is exhausted",
	}

	// Timeout errors
	ErrTimeout = &ExecutionError{
		Category: ErrCategoryTimeout,
		Code:     "timeout",
		Message:  "wait condition timed out",
	}

	// Context errors
	ErrContextSwitch = &ExecutionError{
		Category: ErrCategoryContext,
		Code:     "context_switch",
		Message:  "frame enter/exit failed",
	}
	ErrContentSwitch = &ExecutionError{
		Category: ErrCategoryContext,
		Code:     "content_switch",
		Message:  "native/web content switch failed",
	}

	// Query errors
	ErrQuerySyntax = &ExecutionError{
		Category: ErrCategoryQuery,
		Code:     "query_syntax",
		Message:  "malformed query expression",
	}
	ErrQueryType = &ExecutionError{
		Category: ErrCategoryQuery,
		Code:     "query_type",
		Message:  "query comparison is not valid for the operand types",
	}
)

// NewExecutionError creates a new ExecutionError with the given parameters
func NewExecutionError(category ErrorCategory, code, message string) *ExecutionError {
	return &ExecutionError{
		Category: category,
		Code:     code,
		Message:  message,
	}
}
