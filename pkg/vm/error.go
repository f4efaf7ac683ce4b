package vm

import (
	"fmt"
)

// ErrorType represents the type of runtime error.
type ErrorType string

const (
	// Fatal errors - the sandbox stops the script
	ErrorStackOverflow ErrorType = "STACK_OVERFLOW"
	ErrorStepLimit     ErrorType = "STEP_LIMIT"
	ErrorCancelled     ErrorType = "CANCELLED"

	// Script errors
	ErrorSyntax       ErrorType = "SYNTAX_ERROR"
	ErrorReference    ErrorType = "REFERENCE_ERROR"
	ErrorTypeMismatch ErrorType = "TYPE_ERROR"
	ErrorRange        ErrorType = "RANGE_ERROR"
)

// RuntimeError represents an error raised while evaluating a script.
type RuntimeError struct {
	Type    ErrorType
	Message string
	Line    int // 1-based line number if available, -1 otherwise
	Err     error
}

// Error returns the message, with the line when one is known.
func (e *RuntimeError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s (line %d)", e.Message, e.Line)
	}
	return e.Message
}

// Unwrap returns the cause, if any.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether the error came from a sandbox limit rather than
// from the script's own logic.
func (e *RuntimeError) IsFatal() bool {
	switch e.Type {
	case ErrorStackOverflow, ErrorStepLimit, ErrorCancelled:
		return true
	default:
		return false
	}
}

// NewRuntimeError creates a new RuntimeError.
func NewRuntimeError(errType ErrorType, message string) *RuntimeError {
	return &RuntimeError{
		Type:    errType,
		Message: message,
		Line:    -1,
	}
}

// NewRuntimeErrorWithLine creates a new RuntimeError with line information.
func NewRuntimeErrorWithLine(errType ErrorType, message string, line int) *RuntimeError {
	return &RuntimeError{
		Type:    errType,
		Message: message,
		Line:    line,
	}
}

// NewReferenceError reports use of an undeclared name.
func NewReferenceError(name string) *RuntimeError {
	return NewRuntimeError(ErrorReference, fmt.Sprintf("%s is not defined", name))
}

// NewStackOverflowError creates a stack overflow error.
func NewStackOverflowError(depth, limit int) *RuntimeError {
	return NewRuntimeError(ErrorStackOverflow, fmt.Sprintf("Maximum call stack size exceeded: depth %d exceeds maximum %d", depth, limit))
}

// NewStepLimitError reports a script that ran for too long.
func NewStepLimitError(limit int) *RuntimeError {
	return NewRuntimeError(ErrorStepLimit, fmt.Sprintf("ritual exceeded %d evaluation steps", limit))
}
