package durfmt

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes compile errors.
type ErrorCode string

const (
	// ErrCodeUnterminatedBlock indicates a %js{ or [ block without its closing bracket.
	ErrCodeUnterminatedBlock ErrorCode = "UNTERMINATED_BLOCK"

	// ErrCodeNestingTooDeep indicates blocks nested beyond Options.MaxDepth.
	ErrCodeNestingTooDeep ErrorCode = "NESTING_TOO_DEEP"
)

const maxFragmentLen = 24

// CompileError reports a template that cannot be turned into a pipeline.
type CompileError struct {
	Code    ErrorCode
	Message string

	// Fragment is the template text where the problem starts.
	Fragment string
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	if e.Fragment != "" {
		return fmt.Sprintf("%s: %s (near %q)", e.Code, e.Message, e.Fragment)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsCompileError reports whether err is or wraps a *CompileError.
func IsCompileError(err error) bool {
	var ce *CompileError
	return errors.As(err, &ce)
}

func newUnterminatedError(open string, fragment string) *CompileError {
	return &CompileError{
		Code:     ErrCodeUnterminatedBlock,
		Message:  fmt.Sprintf("block opened with %q is never closed", open),
		Fragment: truncateFragment(fragment),
	}
}

func newNestingError(limit int, fragment string) *CompileError {
	return &CompileError{
		Code:     ErrCodeNestingTooDeep,
		Message:  fmt.Sprintf("blocks nested deeper than %d levels", limit),
		Fragment: truncateFragment(fragment),
	}
}

func truncateFragment(s string) string {
	r := []rune(s)
	if len(r) <= maxFragmentLen {
		return s
	}
	return string(r[:maxFragmentLen]) + "..."
}
