package domain

import (
	"errors"
	"fmt"
)

// ErrEmptyPrompt is returned when there is no user text to send.
var ErrEmptyPrompt = errors.New("empty prompt")

// ErrRoleNotFound is returned when a role selector names no known role.
var ErrRoleNotFound = errors.New("role not found")

// ConfigError reports a configuration value of the wrong type or shape. It is
// raised before any network call.
type ConfigError struct {
	Key   string
	Value string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("config %s: %v", e.Key, e.Err)
	}
	return fmt.Sprintf("config %s=%q: %v", e.Key, e.Value, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// TransientError is a retryable backend or network fault.
type TransientError struct {
	Backend string
	Err     error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: transient: %v", e.Backend, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// FatalError is an unretryable backend fault (auth, quota, malformed
// request) or a transient fault that exhausted its attempts.
type FatalError struct {
	Backend  string
	Attempts int
	Err      error
}

func (e *FatalError) Error() string {
	if e.Attempts > 1 {
		return fmt.Sprintf("%s: giving up after %d attempts: %v", e.Backend, e.Attempts, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Backend, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// ExecutionError reports that a mediated shell command failed. It is shown to
// the user and never aborts the assistant.
type ExecutionError struct {
	Command  string
	ExitCode int
	Err      error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("command %q exited with %d: %v", e.Command, e.ExitCode, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// IsTransient reports whether err is retryable.
func IsTransient(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}

// IsFatal reports whether err is an unretryable backend fault.
func IsFatal(err error) bool {
	var fatal *FatalError
	return errors.As(err, &fatal)
}

// IsConfigError reports whether err stems from bad configuration.
func IsConfigError(err error) bool {
	var cfgErr *ConfigError
	return errors.As(err, &cfgErr)
}
