package sessions

import "fmt"

// Auth error types
const (
	ErrorTypeValidationFailed = "validation_failed"
	ErrorTypeConflict         = "conflict"
	ErrorTypeUnauthorized     = "unauthorized"
	ErrorTypeStorageFailed    = "storage_failed"
	ErrorTypeUnexpected       = "unexpected"
)

// AuthError represents errors raised by session operations
type AuthError struct {
	Type    string
	Field   string
	Message string
	Cause   error
}

func (e *AuthError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("auth error [%s]: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("auth error [%s]: %s", e.Type, e.Message)
}

func (e *AuthError) Unwrap() error {
	return e.Cause
}

// NewValidationError creates an error for a failed input check
func NewValidationError(field, message string) *AuthError {
	return &AuthError{
		Type:    ErrorTypeValidationFailed,
		Field:   field,
		Message: message,
	}
}

// NewConflictError creates an error for an email that is already registered
func NewConflictError() *AuthError {
	return &AuthError{
		Type:    ErrorTypeConflict,
		Field:   "email",
		Message: "an account with this email already exists",
	}
}

// NewUnauthorizedError creates an error for operations requiring an active session
func NewUnauthorizedError(message string) *AuthError {
	return &AuthError{
		Type:    ErrorTypeUnauthorized,
		Message: message,
	}
}

// NewStorageError creates an error for a failed session store operation
func NewStorageError(operation string, cause error) *AuthError {
	return &AuthError{
		Type:    ErrorTypeStorageFailed,
		Message: fmt.Sprintf("session storage %s failed", operation),
		Cause:   cause,
	}
}

// NewUnexpectedError creates an error carrying a generic user-facing message;
// the original cause is logged, never shown
func NewUnexpectedError(cause error) *AuthError {
	return &AuthError{
		Type:    ErrorTypeUnexpected,
		Message: "something went wrong, please try again",
		Cause:   cause,
	}
}
