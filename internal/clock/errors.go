package clock

import (
	"errors"
	"fmt"
)

// Configuration errors reported by Start and Validate.
var (
	ErrMissingFormat     = errors.New("format is required")
	ErrMissingTarget     = errors.New("either a target or a direction must be set")
	ErrDirectionMismatch = errors.New("direction does not lead from start to target")
)

// ErrClosed is returned by Start after Close.
var ErrClosed = errors.New("clock is closed")

// ConfigError reports which setting made a clock unable to start.
type ConfigError struct {
	Field string
	Err   error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid clock %s: %v", e.Field, e.Err)
}

// Unwrap returns the underlying sentinel so errors.Is works.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// IsConfigError reports whether err is or wraps a *ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
