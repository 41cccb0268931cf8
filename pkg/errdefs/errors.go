// Package errdefs defines the classified error type shared by the engine, the
// naming resolver, the confirmation gate, and the credential resolver. It has
// no dependencies inside the module so any package can report errors through
// it.
package errdefs

import (
	"errors"
	"fmt"
	"time"
)

// ErrorClass classifies an orchestrator error for propagation policy.
type ErrorClass string

const (
	// ErrorClassConfiguration indicates a missing credential or prerequisite.
	// Raised before any provider call is made.
	ErrorClassConfiguration ErrorClass = "configuration"

	// ErrorClassConflict indicates a resource name already exists at a
	// provider while the fail strategy is in effect.
	ErrorClassConflict ErrorClass = "conflict"

	// ErrorClassProvider indicates a specific provider call failed. Always
	// tagged with which provider and which step.
	ErrorClassProvider ErrorClass = "provider"

	// ErrorClassTimeout indicates a polling loop exceeded its bound.
	ErrorClassTimeout ErrorClass = "timeout"

	// ErrorClassAuthorization indicates a confirmation was missing, invalid,
	// expired, or presented before its minimum age.
	ErrorClassAuthorization ErrorClass = "authorization"

	// ErrorClassNotFound indicates a record was absent in a local store.
	ErrorClassNotFound ErrorClass = "not_found"
)

// OrchestratorError is a classified error with provider and step context.
type OrchestratorError struct {
	// Class is the error classification.
	Class ErrorClass `json:"class"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Provider names the external provider involved, if any.
	Provider string `json:"provider,omitempty"`

	// Step names the pipeline or lifecycle step that failed, if any.
	Step string `json:"step,omitempty"`

	// Hint is the literal manual command to finish or undo the job, when
	// automatic recovery is not possible.
	Hint string `json:"hint,omitempty"`

	// Err is the underlying error.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *OrchestratorError) Error() string {
	switch {
	case e.Provider != "" && e.Step != "":
		return fmt.Sprintf("[%s] %s (provider=%s, step=%s)%s", e.Class, e.Message, e.Provider, e.Step, e.unwrapSuffix())
	case e.Provider != "":
		return fmt.Sprintf("[%s] %s (provider=%s)%s", e.Class, e.Message, e.Provider, e.unwrapSuffix())
	default:
		return fmt.Sprintf("[%s] %s%s", e.Class, e.Message, e.unwrapSuffix())
	}
}

// Unwrap returns the underlying error for error chain inspection.
func (e *OrchestratorError) Unwrap() error {
	return e.Err
}

func (e *OrchestratorError) unwrapSuffix() string {
	if e.Err != nil {
		return ": " + e.Err.Error()
	}
	return ""
}

// Is implements error equality for errors.Is, matching on class.
func (e *OrchestratorError) Is(target error) bool {
	t, ok := target.(*OrchestratorError)
	if !ok {
		return false
	}
	return e.Class == t.Class
}

// NewConfigurationError creates a configuration error.
func NewConfigurationError(message string, err error) *OrchestratorError {
	return &OrchestratorError{Class: ErrorClassConfiguration, Message: message, Err: err}
}

// NewConflictError creates a naming conflict error.
func NewConflictError(message string, err error) *OrchestratorError {
	return &OrchestratorError{Class: ErrorClassConflict, Message: message, Err: err}
}

// NewProviderError creates a provider failure error.
func NewProviderError(message string, err error) *OrchestratorError {
	return &OrchestratorError{Class: ErrorClassProvider, Message: message, Err: err}
}

// NewTimeoutError creates a timeout error naming the resource that was being
// polled and the elapsed bound.
func NewTimeoutError(resource string, elapsed time.Duration) *OrchestratorError {
	return &OrchestratorError{
		Class:   ErrorClassTimeout,
		Message: fmt.Sprintf("timed out waiting for %s after %s", resource, elapsed),
	}
}

// NewAuthorizationError creates an authorization error.
func NewAuthorizationError(message string, err error) *OrchestratorError {
	return &OrchestratorError{Class: ErrorClassAuthorization, Message: message, Err: err}
}

// NewNotFoundError creates a not-found error for a local record.
func NewNotFoundError(message string) *OrchestratorError {
	return &OrchestratorError{Class: ErrorClassNotFound, Message: message}
}

// WithProvider tags the error with the provider involved.
func (e *OrchestratorError) WithProvider(provider string) *OrchestratorError {
	e.Provider = provider
	return e
}

// WithStep tags the error with the pipeline step that failed.
func (e *OrchestratorError) WithStep(step string) *OrchestratorError {
	e.Step = step
	return e
}

// WithHint attaches a literal remediation command to the error.
func (e *OrchestratorError) WithHint(hint string) *OrchestratorError {
	e.Hint = hint
	return e
}

// IsConfiguration returns true if the error is a configuration error.
func IsConfiguration(err error) bool { return hasClass(err, ErrorClassConfiguration) }

// IsConflict returns true if the error is a naming conflict.
func IsConflict(err error) bool { return hasClass(err, ErrorClassConflict) }

// IsProviderFailure returns true if the error is a provider failure.
func IsProviderFailure(err error) bool { return hasClass(err, ErrorClassProvider) }

// IsTimeout returns true if the error is a polling timeout.
func IsTimeout(err error) bool { return hasClass(err, ErrorClassTimeout) }

// IsAuthorization returns true if the error is an authorization failure.
func IsAuthorization(err error) bool { return hasClass(err, ErrorClassAuthorization) }

// IsNotFound returns true if the error is a missing local record.
func IsNotFound(err error) bool { return hasClass(err, ErrorClassNotFound) }

func hasClass(err error, class ErrorClass) bool {
	var e *OrchestratorError
	if errors.As(err, &e) {
		return e.Class == class
	}
	return false
}

// Hint extracts the remediation hint from an error chain, if any.
func Hint(err error) string {
	var e *OrchestratorError
	if errors.As(err, &e) {
		return e.Hint
	}
	return ""
}
