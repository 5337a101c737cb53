package ioerr

import (
	"errors"
	"fmt"
)

// ErrClosed is returned when a connection is requested from a module that
// has already been shut down.
var ErrClosed = errors.New("ioclient: module closed")

// ConfigurationError reports bad or missing client configuration. It is
// fatal for the registration it belongs to.
type ConfigurationError struct {
	Field string
	Err   error
}

// NewConfigurationError wraps err as a ConfigurationError for the given field.
// Field may be empty when the error is not tied to a single setting.
func NewConfigurationError(field string, err error) *ConfigurationError {
	return &ConfigurationError{Field: field, Err: err}
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid client configuration: %v", e.Err)
	}
	return fmt.Sprintf("invalid client configuration (%s): %v", e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// ConnectionError reports that the initial connect attempt failed, timed out
// or was cancelled.
type ConnectionError struct {
	URI string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to %s: %v", e.URI, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// BindingError reports a tagged handler that could not be bound to the
// connection. Binding errors are logged and skipped, never fatal.
type BindingError struct {
	Component string
	Method    string
	Event     string
	Err       error
}

func (e *BindingError) Error() string {
	return fmt.Sprintf("cannot bind %s.%s to event '%s': %v", e.Component, e.Method, e.Event, e.Err)
}

func (e *BindingError) Unwrap() error { return e.Err }
