package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeNotFound represents a required node or edge pattern that did not match
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeAuthorization represents an actor lacking the required kind or relationship
	ErrorTypeAuthorization ErrorType = "authorization"
	// ErrorTypeValidation represents rejected input or an illegal state transition
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeStore represents graph store failures
	ErrorTypeStore ErrorType = "store"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
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

// Is reports whether target is a BaseError of the same type, so that
// errors.Is(err, ErrNotFound) matches every not-found error.
func (e *BaseError) Is(target error) bool {
	t, ok := target.(*BaseError)
	if !ok {
		return false
	}
	return e.Type == t.Type
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

// Outcome Errors

// ErrNotFound is returned when a required actor, post, comment or edge does not exist
var ErrNotFound = NewBaseError(ErrorTypeNotFound, "not found", nil)

// ErrNotAuthorized is returned when the actor exists but lacks the required kind or relationship
var ErrNotAuthorized = NewBaseError(ErrorTypeAuthorization, "actor is not allowed to perform this operation", nil)

// ErrNotFoundEntity carries which entity was missing
type ErrNotFoundEntity struct {
	*BaseError
	Entity string
	ID     string
}

func NewNotFound(entity, id string) *ErrNotFoundEntity {
	return &ErrNotFoundEntity{
		BaseError: NewBaseError(ErrorTypeNotFound, fmt.Sprintf("%s not found: %s", entity, id), nil),
		Entity:    entity,
		ID:        id,
	}
}

// ErrAuthorizationMismatch carries the actor and the operation it was refused
type ErrAuthorizationMismatch struct {
	*BaseError
	ActorID   string
	Operation string
}

func NewAuthorizationMismatch(actorID, operation string) *ErrAuthorizationMismatch {
	return &ErrAuthorizationMismatch{
		BaseError: NewBaseError(ErrorTypeAuthorization, fmt.Sprintf("actor %s is not allowed to %s", actorID, operation), nil),
		ActorID:   actorID,
		Operation: operation,
	}
}

// Validation Errors

// ErrValidationFailed is returned when input or a requested transition is rejected
type ErrValidationFailed struct {
	*BaseError
	Field  string
	Reason string
}

func NewValidationFailed(field, reason string) *ErrValidationFailed {
	return &ErrValidationFailed{
		BaseError: NewBaseError(ErrorTypeValidation, fmt.Sprintf("invalid %s: %s", field, reason), nil),
		Field:     field,
		Reason:    reason,
	}
}

// Store Errors

// ErrStoreFailure is returned when a statement fails to execute. Message is
// the static text shown to callers; the driver error stays in Err.
type ErrStoreFailure struct {
	*BaseError
	Operation string
}

func NewStoreFailure(operation, message string, err error) *ErrStoreFailure {
	return &ErrStoreFailure{
		BaseError: NewBaseError(ErrorTypeStore, message, err),
		Operation: operation,
	}
}

// ErrGraphConnectionFailed is returned when Neo4j connection fails
type ErrGraphConnectionFailed struct {
	*BaseError
	URI string
}

func NewGraphConnectionFailed(uri string, err error) *ErrGraphConnectionFailed {
	return &ErrGraphConnectionFailed{
		BaseError: NewBaseError(ErrorTypeStore, fmt.Sprintf("failed to connect to Neo4j: %s", uri), err),
		URI:       uri,
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

// Helper functions

// Classified is implemented by BaseError and, through embedding, by every
// error type in this package.
type Classified interface {
	error
	Kind() ErrorType
	PublicText() string
}

// Kind returns the error category
func (e *BaseError) Kind() ErrorType {
	return e.Type
}

// PublicText returns the caller-facing message without the wrapped cause
func (e *BaseError) PublicText() string {
	return e.Message
}

// IsErrorType checks if an error is of a specific type
func IsErrorType(err error, errType ErrorType) bool {
	var classified Classified
	if stderrors.As(err, &classified) {
		return classified.Kind() == errType
	}
	return false
}

// IsNotFound reports whether err is a not-found outcome
func IsNotFound(err error) bool {
	return IsErrorType(err, ErrorTypeNotFound)
}

// IsNotAuthorized reports whether err is an authorization mismatch
func IsNotAuthorized(err error) bool {
	return IsErrorType(err, ErrorTypeAuthorization)
}

// PublicMessage returns the text that may be shown to callers. Store
// failures expose only their static message, never the driver cause.
func PublicMessage(err error) string {
	var classified Classified
	if stderrors.As(err, &classified) {
		return classified.PublicText()
	}
	return "internal error"
}
