package errors

import (
	"errors"
	"fmt"
)

// Domain error types for business logic

var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyExists indicates a resource already exists
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrInvalidInput indicates invalid input parameters
	ErrInvalidInput = errors.New("invalid input")

	// ErrInternal indicates an internal error
	ErrInternal = errors.New("internal error")

	// ErrTimeout indicates an operation timeout
	ErrTimeout = errors.New("operation timeout")

	// ErrUnavailable indicates a service is unavailable
	ErrUnavailable = errors.New("service unavailable")
)

// Graph structure errors, detected at validation time. These abort the whole
// execution before any step runs and are never retried.

var (
	// ErrDuplicateStep indicates a step id is already present in the graph
	ErrDuplicateStep = errors.New("duplicate step id")

	// ErrUnknownDependency indicates a depends_on entry references a step id
	// that does not exist in the graph
	ErrUnknownDependency = errors.New("unknown dependency")

	// ErrCyclicDependency indicates the graph contains a dependency cycle
	ErrCyclicDependency = errors.New("cyclic dependency")
)

// Template errors

var (
	// ErrUnresolvedReference indicates a placeholder references a step whose
	// result is missing or not yet terminal. This can only happen when
	// dependency ordering was violated, so it aborts the run.
	ErrUnresolvedReference = errors.New("unresolved template reference")

	// ErrMalformedPlaceholder indicates a placeholder references an unknown
	// field or a value with no textual form. Recorded on the step only.
	ErrMalformedPlaceholder = errors.New("malformed template placeholder")
)

// Capability errors, recorded as per-step failures after retry exhaustion

var (
	// ErrCapabilityNotFound indicates no capability is registered under the
	// requested name
	ErrCapabilityNotFound = errors.New("capability not found")

	// ErrCapabilityPanic indicates a capability panicked during invocation
	ErrCapabilityPanic = errors.New("capability panicked")

	// ErrAttemptTimeout indicates a single invocation attempt exceeded the
	// step timeout and was abandoned
	ErrAttemptTimeout = errors.New("attempt timed out")

	// ErrExecutionCancelled indicates the workflow cancellation signal fired
	// while the step was in flight
	ErrExecutionCancelled = errors.New("execution cancelled")
)

// DomainError wraps an error with additional context
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ValidationError represents a validation error with field-specific details
type ValidationError struct {
	Field   string
	Message string
	Value   interface{}
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: field '%s': %s (value: %v)", e.Field, e.Message, e.Value)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// MultiError wraps multiple errors
type MultiError struct {
	Errors []error
}

// Error implements the error interface
func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}
	return fmt.Sprintf("multiple errors (%d): %v", len(m.Errors), m.Errors[0])
}

// Add adds an error to the list
func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// HasErrors returns true if there are any errors
func (m *MultiError) HasErrors() bool {
	return len(m.Errors) > 0
}

// ToError returns the MultiError as an error, or nil if no errors
func (m *MultiError) ToError() error {
	if !m.HasErrors() {
		return nil
	}
	return m
}

// Helper functions

// Is checks if err is or wraps target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target type
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

func New(message string) error {
	return errors.New(message)
}

func Newf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
