// Package errors provides the error taxonomy shared by the bridge and the
// session runner, along with classification helpers.
//
// # Error Types
//
// Three kinds of failure can occur around an external agent invocation:
//   - TimeoutError: the invocation exceeded its time budget
//   - ProcessError: the agent exited non-zero or could not be started
//   - MalformedStateError: a channel or status file is missing or unparseable
//
// Timeouts are retryable; the session runner retries them, while the bridge
// surfaces them immediately. Process errors are never retried automatically.
// Malformed state is read as "absent" by the ledger and channel and is only
// returned by the strict parsing helpers.
//
// # Usage
//
//	err := errors.NewTimeoutError("codex exec", 300*time.Second)
//	if errors.IsRetryable(err) { ... }
//
//	var procErr *errors.ProcessError
//	if errors.As(err, &procErr) {
//	    fmt.Println(procErr.ExitCode)
//	}
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityWarning is for errors that degrade a single exchange.
	SeverityWarning Severity = iota
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that stop a run.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

var (
	// ErrTimeout indicates that an agent invocation timed out.
	ErrTimeout = New("operation timed out")
	// ErrAgentNotFound indicates that the agent executable is not on PATH.
	ErrAgentNotFound = New("agent executable not found")
	// ErrAgentFailed indicates that the agent exited with a non-zero status.
	ErrAgentFailed = New("agent exited with non-zero status")
	// ErrMalformedState indicates a channel or status file could not be parsed.
	ErrMalformedState = New("malformed channel state")
	// ErrPromptsNotFound indicates that the prompt list file does not exist.
	ErrPromptsNotFound = New("prompt file not found")
	// ErrNoPrompts indicates that the prompt list contained no numbered prompts.
	ErrNoPrompts = New("no prompts found")
	// ErrUnknownBackend indicates an unsupported agent backend name.
	ErrUnknownBackend = New("unknown agent backend")
)

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

// BridgeError is implemented by every error type in this package.
type BridgeError interface {
	error
	Unwrap() error
	Severity() Severity
	IsRetryable() bool
}

type baseError struct {
	message   string
	cause     error
	severity  Severity
	retryable bool
}

func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

func (e *baseError) Unwrap() error { return e.cause }

func (e *baseError) Severity() Severity { return e.severity }

func (e *baseError) IsRetryable() bool { return e.retryable }

// -----------------------------------------------------------------------------
// TimeoutError
// -----------------------------------------------------------------------------

// TimeoutError represents an agent invocation that exceeded its budget.
//
// Example:
//
//	err := errors.NewTimeoutError("codex exec", 120*time.Second)
//	fmt.Println(err) // "timeout error: codex exec (timeout: 2m0s)"
type TimeoutError struct {
	baseError
	Operation string
	Duration  time.Duration
}

// NewTimeoutError creates a new TimeoutError.
func NewTimeoutError(operation string, duration time.Duration) *TimeoutError {
	return &TimeoutError{
		baseError: baseError{
			message:   operation,
			severity:  SeverityWarning,
			retryable: true,
		},
		Operation: operation,
		Duration:  duration,
	}
}

// WithCause adds a cause to the error.
func (e *TimeoutError) WithCause(cause error) *TimeoutError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *TimeoutError) Error() string {
	base := fmt.Sprintf("timeout error: %s (timeout: %s)", e.Operation, e.Duration)
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", base, e.cause)
	}
	return base
}

// Is checks if this error matches the target.
func (e *TimeoutError) Is(target error) bool {
	if _, ok := target.(*TimeoutError); ok {
		return true
	}
	if target == ErrTimeout {
		return true
	}
	return e.cause != nil && errors.Is(e.cause, target)
}

// Seconds returns the budget in whole seconds, as shown to operators.
func (e *TimeoutError) Seconds() int {
	return int(e.Duration / time.Second)
}

// -----------------------------------------------------------------------------
// ProcessError
// -----------------------------------------------------------------------------

// ProcessError represents an agent process that exited non-zero or could not
// be started at all. ExitCode is -1 when the process never ran.
//
// Example:
//
//	err := errors.NewProcessError("codex", 2).WithStderr("bad flag")
//	fmt.Println(err) // "process error [command=codex, exit=2]: agent exited with non-zero status: bad flag"
type ProcessError struct {
	baseError
	Command  string
	ExitCode int
	Stderr   string
}

// NewProcessError creates a ProcessError for a process that ran and exited
// with the given non-zero code.
func NewProcessError(command string, exitCode int) *ProcessError {
	return &ProcessError{
		baseError: baseError{
			message:  ErrAgentFailed.Error(),
			cause:    ErrAgentFailed,
			severity: SeverityError,
		},
		Command:  command,
		ExitCode: exitCode,
	}
}

// NewStartError creates a ProcessError for a process that failed to start.
func NewStartError(command string, cause error) *ProcessError {
	return &ProcessError{
		baseError: baseError{
			message:  "failed to start agent",
			cause:    cause,
			severity: SeverityError,
		},
		Command:  command,
		ExitCode: -1,
	}
}

// WithStderr attaches captured stderr to the error.
func (e *ProcessError) WithStderr(stderr string) *ProcessError {
	e.Stderr = strings.TrimSpace(stderr)
	return e
}

// Error returns the formatted error message.
func (e *ProcessError) Error() string {
	var parts []string
	if e.Command != "" {
		parts = append(parts, fmt.Sprintf("command=%s", e.Command))
	}
	parts = append(parts, fmt.Sprintf("exit=%d", e.ExitCode))
	prefix := fmt.Sprintf("process error [%s]", strings.Join(parts, ", "))

	msg := e.message
	if e.cause != nil && e.cause != ErrAgentFailed {
		msg = fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	if e.Stderr != "" {
		return fmt.Sprintf("%s: %s: %s", prefix, msg, e.Stderr)
	}
	return fmt.Sprintf("%s: %s", prefix, msg)
}

// Is checks if this error matches the target.
func (e *ProcessError) Is(target error) bool {
	if _, ok := target.(*ProcessError); ok {
		return true
	}
	return e.cause != nil && errors.Is(e.cause, target)
}

// -----------------------------------------------------------------------------
// MalformedStateError
// -----------------------------------------------------------------------------

// MalformedStateError represents a status or channel file that is missing or
// cannot be parsed. Readers treat it as "not yet ready".
type MalformedStateError struct {
	baseError
	Path string
}

// NewMalformedStateError creates a MalformedStateError for path.
func NewMalformedStateError(path string, cause error) *MalformedStateError {
	return &MalformedStateError{
		baseError: baseError{
			message:  ErrMalformedState.Error(),
			cause:    cause,
			severity: SeverityWarning,
		},
		Path: path,
	}
}

// Error returns the formatted error message.
func (e *MalformedStateError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("malformed state [path=%s]: %v", e.Path, e.cause)
	}
	return fmt.Sprintf("malformed state [path=%s]", e.Path)
}

// Is checks if this error matches the target.
func (e *MalformedStateError) Is(target error) bool {
	if _, ok := target.(*MalformedStateError); ok {
		return true
	}
	if target == ErrMalformedState {
		return true
	}
	return e.cause != nil && errors.Is(e.cause, target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable returns true if the error represents a transient condition
// that may succeed on retry. Only timeouts qualify.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var bridgeErr BridgeError
	if As(err, &bridgeErr) {
		return bridgeErr.IsRetryable()
	}

	return Is(err, ErrTimeout)
}

// IsTimeout reports whether err is or wraps a timeout.
func IsTimeout(err error) bool {
	return err != nil && Is(err, ErrTimeout)
}

// ExitCode extracts the agent exit code from err. It returns 0 for nil, the
// recorded code for a ProcessError and -1 for anything else.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var procErr *ProcessError
	if As(err, &procErr) {
		return procErr.ExitCode
	}
	return -1
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement BridgeError.
func GetSeverity(err error) Severity {
	var bridgeErr BridgeError
	if As(err, &bridgeErr) {
		return bridgeErr.Severity()
	}
	return SeverityError
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
