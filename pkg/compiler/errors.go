package compiler

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoCommands is reported when restricted-grammar text yields no
// instructions at all.
var ErrNoCommands = errors.New("No valid commands found. Check your syntax.")

// CompileError represents a structured compilation error with location information.
type CompileError struct {
	// Phase indicates which compilation phase generated the error.
	// Valid values: "lexer", "parser", "compiler"
	Phase string

	// Message is the human-readable error description.
	Message string

	// Line is the 1-indexed line number where the error occurred.
	// Zero means the error is not tied to a line.
	Line int

	// Column is the 1-indexed column number where the error occurred.
	Column int

	// Context contains the source code around the error location,
	// with a pointer (^) indicating the error column.
	Context string

	// Err is the underlying sentinel, if any.
	Err error
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	if e.Line <= 0 {
		return e.Message
	}
	if e.Context != "" {
		return fmt.Sprintf("%s error at line %d, column %d: %s\n%s",
			e.Phase, e.Line, e.Column, e.Message, e.Context)
	}
	return fmt.Sprintf("%s error at line %d, column %d: %s",
		e.Phase, e.Line, e.Column, e.Message)
}

// Unwrap returns the underlying sentinel.
func (e *CompileError) Unwrap() error {
	return e.Err
}

// NewParserErrorWithContext creates a new CompileError for parser phase errors with source context.
func NewParserErrorWithContext(message string, line, column int, source string) *CompileError {
	return &CompileError{
		Phase:   "parser",
		Message: message,
		Line:    line,
		Column:  column,
		Context: GenerateErrorContext(source, line, column),
	}
}

// NewCompilerErrorWithContext creates a new CompileError for compiler phase errors with source context.
func NewCompilerErrorWithContext(message string, line, column int, source string) *CompileError {
	return &CompileError{
		Phase:   "compiler",
		Message: message,
		Line:    line,
		Column:  column,
		Context: GenerateErrorContext(source, line, column),
	}
}

// GenerateErrorContext generates source code context around an error location.
// It includes 2 lines before and 2 lines after the error line, with line numbers
// and a pointer (^) indicating the error column.
//
// Example output:
//
//	  2 | summon(100);
//	  3 | twist(90);
//	> 4 | summon(;
//	    |        ^
//	  5 | banish(50);
func GenerateErrorContext(source string, line, column int) string {
	if source == "" || line <= 0 {
		return ""
	}

	lines := strings.Split(source, "\n")
	if line > len(lines) {
		return ""
	}

	start := line - 3
	if start < 0 {
		start = 0
	}
	end := line + 2
	if end > len(lines) {
		end = len(lines)
	}

	var buf strings.Builder
	lineNumWidth := len(fmt.Sprintf("%d", end))

	for i := start; i < end; i++ {
		lineNum := i + 1
		if lineNum == line {
			buf.WriteString(fmt.Sprintf("> %*d | %s\n", lineNumWidth, lineNum, lines[i]))
			pointerIndent := 2 + lineNumWidth + 3 // "> " + width + " | "
			if column > 0 {
				pointerIndent += column - 1
			}
			buf.WriteString(strings.Repeat(" ", pointerIndent) + "^\n")
		} else {
			buf.WriteString(fmt.Sprintf("  %*d | %s\n", lineNumWidth, lineNum, lines[i]))
		}
	}

	return buf.String()
}

// IsCompileError reports whether err is or wraps a *CompileError.
func IsCompileError(err error) bool {
	var ce *CompileError
	return errors.As(err, &ce)
}
