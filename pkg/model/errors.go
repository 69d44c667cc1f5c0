package model

import "fmt"

// ErrorCode represents a structured API error code.
type ErrorCode string

const (
	ErrValidation    ErrorCode = "VALIDATION_ERROR"
	ErrNotFound      ErrorCode = "NOT_FOUND"
	ErrConflict      ErrorCode = "CONFLICT"
	ErrConfiguration ErrorCode = "CONFIGURATION_ERROR"
	ErrPrecondition  ErrorCode = "PRECONDITION_FAILED"
	ErrInternal      ErrorCode = "INTERNAL_ERROR"
)

// APIError is a structured error returned by the wfkit API.
type APIError struct {
	Code    ErrorCode    `json:"code"`
	Message string       `json:"message"`
	Details []FieldError `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// FieldError describes a validation error at a document path.
type FieldError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// NewValidationError creates an APIError with validation details.
func NewValidationError(msg string, details ...FieldError) *APIError {
	return &APIError{Code: ErrValidation, Message: msg, Details: details}
}

// NewNotFoundError creates a NOT_FOUND APIError.
func NewNotFoundError(resource, id string) *APIError {
	return &APIError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s '%s' not found", resource, id),
	}
}

// InvalidTransitionError is returned when a run state change is not allowed.
type InvalidTransitionError struct {
	ID   string
	From RunState
	To   RunState
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid run state transition: %s → %s (run %s)", e.From, e.To, e.ID)
}
