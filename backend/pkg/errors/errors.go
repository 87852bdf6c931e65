package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeConfig represents missing credentials or invalid settings
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeCatalog represents unreadable asset directories or malformed catalog documents
	ErrorTypeCatalog ErrorType = "catalog"
	// ErrorTypeInput represents a rejected enhancement request
	ErrorTypeInput ErrorType = "input"
	// ErrorTypeNetwork represents connection, timeout and HTTP status failures
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeResponse represents a backend reply without the expected fields
	ErrorTypeResponse ErrorType = "response"
	// ErrorTypePersistence represents output log write failures
	ErrorTypePersistence ErrorType = "persistence"
	// ErrorTypeSession represents submission control errors
	ErrorTypeSession ErrorType = "session"
)

// BaseError is the base error type with common fields
type BaseError struct {
	Type      ErrorType
	Message   string
	Timestamp time.Time
	Err       error // Wrapped error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *BaseError) Unwrap() error {
	return e.Err
}

// Category reports the error type; embedding errors inherit it
func (e *BaseError) Category() ErrorType {
	return e.Type
}

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// Config Errors

// ErrConfigValidationFailed is returned when configuration validation fails
type ErrConfigValidationFailed struct {
	*BaseError
	Field  string
	Reason string
}

func NewConfigValidationFailed(field, reason string) *ErrConfigValidationFailed {
	return &ErrConfigValidationFailed{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("config validation failed: %s - %s", field, reason), nil),
		Field:     field,
		Reason:    reason,
	}
}

// ErrConfigMissingRequired is returned when a required config value is missing
type ErrConfigMissingRequired struct {
	*BaseError
	Field string
}

func NewConfigMissingRequired(field string) *ErrConfigMissingRequired {
	return &ErrConfigMissingRequired{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("missing required config: %s", field), nil),
		Field:     field,
	}
}

// Catalog Errors

// ErrCatalogLoadFailed is returned when a directory or catalog document cannot be read.
// It is always a warning: callers keep whatever was loaded.
type ErrCatalogLoadFailed struct {
	*BaseError
	Path string
}

func NewCatalogLoadFailed(path string, err error) *ErrCatalogLoadFailed {
	return &ErrCatalogLoadFailed{
		BaseError: NewBaseError(ErrorTypeCatalog, fmt.Sprintf("failed to load catalog: %s", path), err),
		Path:      path,
	}
}

// Input Errors

// ErrInvalidInput is returned when a request field is rejected before any network call
type ErrInvalidInput struct {
	*BaseError
	Field  string
	Reason string
}

func NewInvalidInput(field, reason string) *ErrInvalidInput {
	return &ErrInvalidInput{
		BaseError: NewBaseError(ErrorTypeInput, fmt.Sprintf("invalid %s: %s", field, reason), nil),
		Field:     field,
		Reason:    reason,
	}
}

// Network Errors

// ErrConnectionFailed is returned when the backend cannot be reached
type ErrConnectionFailed struct {
	*BaseError
	Endpoint string
}

func NewConnectionFailed(endpoint string, err error) *ErrConnectionFailed {
	return &ErrConnectionFailed{
		BaseError: NewBaseError(ErrorTypeNetwork, fmt.Sprintf("could not connect to %s", endpoint), err),
		Endpoint:  endpoint,
	}
}

// ErrTimeout is returned when the backend does not answer within the fixed bound
type ErrTimeout struct {
	*BaseError
	Endpoint string
	Timeout  time.Duration
}

func NewTimeout(endpoint string, timeout time.Duration, err error) *ErrTimeout {
	return &ErrTimeout{
		BaseError: NewBaseError(ErrorTypeNetwork, fmt.Sprintf("request to %s timed out after %v", endpoint, timeout), err),
		Endpoint:  endpoint,
		Timeout:   timeout,
	}
}

// ErrStatus is returned when the backend answers with a non-2xx status
type ErrStatus struct {
	*BaseError
	Endpoint   string
	StatusCode int
	Body       string
}

func NewStatusError(endpoint string, statusCode int, body string, err error) *ErrStatus {
	return &ErrStatus{
		BaseError:  NewBaseError(ErrorTypeNetwork, fmt.Sprintf("%s returned status %d", endpoint, statusCode), err),
		Endpoint:   endpoint,
		StatusCode: statusCode,
		Body:       body,
	}
}

// Response Errors

// ErrResponseShape is returned when the reply lacks choices[0].message.content
type ErrResponseShape struct {
	*BaseError
	Reason string
}

func NewResponseShape(reason string, err error) *ErrResponseShape {
	return &ErrResponseShape{
		BaseError: NewBaseError(ErrorTypeResponse, fmt.Sprintf("unexpected response format: %s", reason), err),
		Reason:    reason,
	}
}

// Persistence Errors

// ErrPersistenceFailed is returned when the output log cannot be opened or written
type ErrPersistenceFailed struct {
	*BaseError
	Path string
}

func NewPersistenceFailed(path string, err error) *ErrPersistenceFailed {
	return &ErrPersistenceFailed{
		BaseError: NewBaseError(ErrorTypePersistence, fmt.Sprintf("failed to save to %s", path), err),
		Path:      path,
	}
}

// Session Errors

// ErrSessionBusy is returned when a submission is already outstanding for the session
var ErrSessionBusy = NewBaseError(ErrorTypeSession, "an enhancement is already in progress", nil)

// ErrSubmissionDisabled is returned when startup configuration left submission disabled
var ErrSubmissionDisabled = NewBaseError(ErrorTypeConfig, "submission disabled by configuration error", nil)

// Helper functions

type categorized interface {
	error
	Category() ErrorType
}

// IsErrorType checks if an error, or any error it wraps, is of a specific type
func IsErrorType(err error, errType ErrorType) bool {
	for err != nil {
		var c categorized
		if !stderrors.As(err, &c) {
			return false
		}
		if c.Category() == errType {
			return true
		}
		err = stderrors.Unwrap(c)
	}
	return false
}

// TypeOf returns the category of the outermost categorized error in the chain, or "unknown"
func TypeOf(err error) ErrorType {
	var c categorized
	if stderrors.As(err, &c) {
		return c.Category()
	}
	return "unknown"
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	var status *ErrStatus
	if stderrors.As(err, &status) {
		return status.StatusCode == 429 || status.StatusCode >= 500
	}
	return IsErrorType(err, ErrorTypeNetwork) || IsErrorType(err, ErrorTypeSession)
}

// UserMessage converts an error into the message shown to the person using the form.
// Each category, and each kind of network failure, gets its own wording.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var (
		input   *ErrInvalidInput
		conn    *ErrConnectionFailed
		timeout *ErrTimeout
		status  *ErrStatus
		shape   *ErrResponseShape
		persist *ErrPersistenceFailed
		missing *ErrConfigMissingRequired
		catalog *ErrCatalogLoadFailed
	)

	switch {
	case stderrors.As(err, &input):
		return fmt.Sprintf("Input Error: %s", input.Reason)
	case stderrors.As(err, &conn):
		return fmt.Sprintf("Connection Error: could not connect to %s. Is the backend running?", conn.Endpoint)
	case stderrors.As(err, &timeout):
		return fmt.Sprintf("Timeout Error: no reply from %s within %v.", timeout.Endpoint, timeout.Timeout)
	case stderrors.As(err, &status):
		if status.Body != "" {
			return fmt.Sprintf("Request Error: backend returned status %d.\nResponse: %s", status.StatusCode, status.Body)
		}
		return fmt.Sprintf("Request Error: backend returned status %d.", status.StatusCode)
	case stderrors.As(err, &shape):
		return fmt.Sprintf("Response Error: could not parse backend response (%s).", shape.Reason)
	case stderrors.As(err, &persist):
		return fmt.Sprintf("Save Error: failed to save to %s.", persist.Path)
	case stderrors.As(err, &missing):
		return fmt.Sprintf("Configuration Error: %s is not set. Submission is disabled.", missing.Field)
	case stderrors.As(err, &catalog):
		return fmt.Sprintf("Warning: could not load %s.", catalog.Path)
	case stderrors.Is(err, ErrSessionBusy):
		return "Busy: an enhancement is already in progress."
	case stderrors.Is(err, ErrSubmissionDisabled):
		return "Configuration Error: submission is disabled."
	}
	return fmt.Sprintf("An unexpected error occurred: %v", err)
}
