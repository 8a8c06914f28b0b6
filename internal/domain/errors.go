package domain

import (
	"errors"
	"fmt"
)

// ErrProcessNotFound means the target process is not running. Recoverable:
// the watch loop keeps retrying resolution.
var ErrProcessNotFound = errors.New("target process not found")

// ErrAlreadyRunning means another agent instance holds the run registry.
var ErrAlreadyRunning = errors.New("another agent instance is already running")

// EnumerationError is a transient window-system query failure. Recoverable:
// the cycle is abandoned and retried on the next tick.
type EnumerationError struct {
	Err error
}

func (e *EnumerationError) Error() string {
	return fmt.Sprintf("window enumeration failed: %v", e.Err)
}

func (e *EnumerationError) Unwrap() error { return e.Err }

// ActuationError means a suppression call failed for one specific window,
// typically because the handle went stale between enumeration and actuation.
// Recoverable: skip the window and continue the cycle.
type ActuationError struct {
	Window WindowID
	Kind   ActionKind
	Err    error
}

func (e *ActuationError) Error() string {
	return fmt.Sprintf("%s failed for window 0x%x: %v", e.Kind, uint32(e.Window), e.Err)
}

func (e *ActuationError) Unwrap() error { return e.Err }

// ConfigurationError indicates a malformed signature table or config file.
// Fatal at startup only; it never occurs at runtime.
type ConfigurationError struct {
	Detail string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Detail
}
