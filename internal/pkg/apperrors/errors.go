package apperrors

import (
	"errors"
	"fmt"
)

// Common errors
var (
	// Resource errors
	ErrResourceNotFound      = errors.New("resource not found")
	ErrResourceAlreadyExists = errors.New("resource already exists")
	ErrConflict              = errors.New("conflict")

	// Business rule errors
	ErrCapacityExceeded = errors.New("capacity exceeded")
	ErrImmutableState   = errors.New("resource is in an immutable state")

	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrTooManyRequests    = errors.New("too many requests")

	// Authorization errors
	ErrPermissionDenied = errors.New("permission denied")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
)

// User errors
var (
	ErrUserNotFound     = NewCustomError(ErrResourceNotFound, "User not found")
	ErrUsernameTaken    = NewCustomError(ErrResourceAlreadyExists, "Username already exists")
	ErrInvalidLoginPair = NewCustomError(ErrInvalidCredentials, "Invalid username or password")
)

// Student errors
var (
	ErrStudentNotFound        = NewCustomError(ErrResourceNotFound, "Student not found")
	ErrStudentIDAlreadyExists = NewCustomError(ErrResourceAlreadyExists, "Student ID already exists")
	ErrStudentHasRecords      = NewCustomError(ErrConflict, "Student has vaccination records and cannot be deleted")
)

// Vaccination drive errors
var (
	ErrDriveNotFound        = NewCustomError(ErrResourceNotFound, "Vaccination drive not found")
	ErrDriveIDAlreadyExists = NewCustomError(ErrResourceAlreadyExists, "Drive ID already exists")
	ErrDriveImmutable       = NewCustomError(ErrImmutableState, "Cannot edit past vaccination drives")
	ErrDriveHasRecords      = NewCustomError(ErrConflict, "Vaccination drive has vaccination records and cannot be deleted")
)

// Vaccination record errors
var (
	ErrRecordNotFound    = NewCustomError(ErrResourceNotFound, "Vaccination record not found")
	ErrNoDosesAvailable  = NewCustomError(ErrCapacityExceeded, "No more doses available for this drive")
	ErrAlreadyVaccinated = NewCustomError(ErrResourceAlreadyExists, "Student has already been vaccinated in this drive")
)

// NewDriveTooSoonError reports a drive date inside the scheduling lead window
func NewDriveTooSoonError(leadDays int) *CustomError {
	return NewValidationError(fmt.Sprintf("Vaccination drive must be scheduled at least %d days in advance", leadDays))
}

// NewResourceNotFoundError creates a new custom error for resource not found with a message
func NewResourceNotFoundError(message string) error {
	return &CustomError{
		Err:     ErrResourceNotFound,
		Message: message,
	}
}

// NewForbiddenError creates a new custom error for permission denied with a message
func NewForbiddenError(message string) error {
	return &CustomError{
		Err:     ErrPermissionDenied,
		Message: message,
	}
}

// NewValidationError creates a validation failure carrying a human-readable message
func NewValidationError(message string) *CustomError {
	return &CustomError{
		Err:     ErrValidationFailed,
		Message: message,
	}
}

// Message returns the user-facing message of the first CustomError in err's chain
func Message(err error) (string, bool) {
	var ce *CustomError
	if errors.As(err, &ce) && ce.Message != "" {
		return ce.Message, true
	}
	return "", false
}

// CustomError represents application-specific errors with additional context
type CustomError struct {
	Err     error
	Message string
	Details map[string]interface{}
}

// Error implements error interface
func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap implements errors.Unwrap interface
func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewCustomError creates a CustomError with underlying error
func NewCustomError(err error, message string) *CustomError {
	return &CustomError{
		Err:     err,
		Message: message,
	}
}

// WithDetails returns a copy of the error carrying context details
func (e *CustomError) WithDetails(details map[string]interface{}) *CustomError {
	cp := *e
	cp.Details = details
	return &cp
}

