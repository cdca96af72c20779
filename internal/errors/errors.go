package errors

import (
	"fmt"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:    appErr.Code,
			Message: message,
			Cause:   appErr,
		}
	}
	return &AppError{
		Code:    CodeInternalError,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// IsCode checks whether an error carries the given code
func IsCode(err error, code string) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code == code
	}
	return false
}

// GetCode returns the error code if it's an AppError, otherwise returns "UNKNOWN"
func GetCode(err error) string {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return "UNKNOWN"
}

// Predefined error codes
const (
	CodeQueryInput       = "QUERY_INPUT_ERROR"
	CodeLearning         = "LEARNING_ERROR"
	CodeInvalidFilesPath = "INVALID_FILES_PATH"
	CodeInvalidFile      = "INVALID_FILE"
	CodeStarAttribute    = "STAR_ATTRIBUTE_ERROR"
	CodeNoConnection     = "NO_CONNECTION"
	CodeTimeout          = "TIMEOUT"
	CodeDatabaseError    = "DATABASE_ERROR"
	CodeConfigInvalid    = "CONFIG_INVALID"
	CodeInternalError    = "INTERNAL_ERROR"
)

// Common error constructors

// QueryInput reports malformed caller-supplied queries or configuration.
func QueryInput(message string) *AppError {
	return New(CodeQueryInput, message)
}

func QueryInputf(format string, args ...interface{}) *AppError {
	return New(CodeQueryInput, fmt.Sprintf(format, args...))
}

// Learning reports a decider that could not train on the provided data.
func Learning(message string) *AppError {
	return New(CodeLearning, message)
}

// InvalidFilesPath reports a file location that does not exist.
func InvalidFilesPath(path string, cause error) *AppError {
	return &AppError{
		Code:    CodeInvalidFilesPath,
		Message: fmt.Sprintf("invalid files path %q", path),
		Cause:   cause,
	}
}

// InvalidFile reports file contents that violate the expected format.
func InvalidFile(message string) *AppError {
	return New(CodeInvalidFile, message)
}

// StarAttribute reports inconsistent light curve construction input.
func StarAttribute(message string) *AppError {
	return New(CodeStarAttribute, message)
}

// NoConnection reports a connector that exhausted its retry budget.
func NoConnection(service string, cause error) *AppError {
	return &AppError{
		Code:    CodeNoConnection,
		Message: fmt.Sprintf("%s is unreachable", service),
		Cause:   cause,
	}
}

// Timeout reports a wait that exceeded its budget.
func Timeout(message string) *AppError {
	return New(CodeTimeout, message)
}

// ConfigInvalid reports invalid environment configuration.
func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

// DatabaseError reports a failed broker or repository operation.
func DatabaseError(message string) *AppError {
	return New(CodeDatabaseError, message)
}
