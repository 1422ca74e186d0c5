// Package errortypes provides error types and handling for chatcycle.
package errortypes

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
)

// ErrorType represents the type of error that occurred
type ErrorType string

// Error types
const (
	ErrorTypeNetwork      ErrorType = "network"
	ErrorTypeRemoteStatus ErrorType = "remote_status"
	ErrorTypePayloadShape ErrorType = "payload_shape"
	ErrorTypeEmptyInput   ErrorType = "empty_input"
	ErrorTypeChunkFailure ErrorType = "chunk_failure"
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeDatabase     ErrorType = "database"
	ErrorTypeConfig       ErrorType = "config"
	ErrorTypeInternal     ErrorType = "internal"
	ErrorTypeUnknown      ErrorType = "unknown"
)

// Field keys attached to errors by the helpers below.
const (
	FieldStatusCode = "status_code"
	FieldBody       = "body"
	FieldChunkIndex = "chunk_index"
	FieldChunkCount = "chunk_count"
)

// Sentinels wrapped by the typed constructors so callers can use errors.Is.
var (
	ErrEmptyInput   = errors.New("input is empty")
	ErrBadStatus    = errors.New("non-success status")
	ErrMissingField = errors.New("expected field missing from response")
)

// AppError represents an application error with context
type AppError struct {
	Err       error
	Type      ErrorType
	Message   string
	StackInfo string
	Fields    map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Err.Error()
}

// Unwrap unwraps the error to support errors.Is and errors.As
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithField adds a field to the error for additional context
func (e *AppError) WithField(key string, value interface{}) *AppError {
	if e.Fields == nil {
		e.Fields = make(map[string]interface{})
	}
	e.Fields[key] = value
	return e
}

// WithFields adds multiple fields to the error for additional context
func (e *AppError) WithFields(fields map[string]interface{}) *AppError {
	if e.Fields == nil {
		e.Fields = make(map[string]interface{})
	}
	for k, v := range fields {
		e.Fields[k] = v
	}
	return e
}

// captureStack captures the stack trace at the call site
func captureStack() string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(4, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	var builder strings.Builder
	for {
		frame, more := frames.Next()
		// Skip testing and standard library frames
		if !strings.Contains(frame.File, "testing/") && !strings.Contains(frame.File, "/go/src/") {
			fmt.Fprintf(&builder, "%s:%d %s\n", frame.File, frame.Line, frame.Function)
		}
		if !more {
			break
		}
	}
	return builder.String()
}

// newAppError creates a new AppError with the given type, underlying error, and message
func newAppError(errType ErrorType, err error, message string) *AppError {
	if err == nil {
		err = errors.New("unknown error")
	}

	return &AppError{
		Err:       err,
		Type:      errType,
		Message:   message,
		StackInfo: captureStack(),
		Fields:    make(map[string]interface{}),
	}
}

// NetworkError creates a new network error. The endpoint was unreachable or
// the call timed out.
func NetworkError(err error, message string) *AppError {
	return newAppError(ErrorTypeNetwork, err, message)
}

// RemoteStatusError records a non-success HTTP status together with the raw
// response body.
func RemoteStatusError(statusCode int, body string, message string) *AppError {
	err := fmt.Errorf("%w %d: %s", ErrBadStatus, statusCode, body)
	return newAppError(ErrorTypeRemoteStatus, err, message).
		WithField(FieldStatusCode, statusCode).
		WithField(FieldBody, body)
}

// PayloadShapeError creates an error for a response that was received but
// could not be parsed or lacked the expected text field.
func PayloadShapeError(err error, message string) *AppError {
	return newAppError(ErrorTypePayloadShape, err, message)
}

// EmptyInputError creates an error for blank or whitespace-only input.
func EmptyInputError(message string) *AppError {
	return newAppError(ErrorTypeEmptyInput, ErrEmptyInput, message)
}

// ChunkFailureError wraps the failure of one chunk during piecewise
// summarization. index is 1-based.
func ChunkFailureError(err error, index, count int) *AppError {
	return newAppError(ErrorTypeChunkFailure, err, fmt.Sprintf("chunk %d of %d failed", index, count)).
		WithField(FieldChunkIndex, index).
		WithField(FieldChunkCount, count)
}

// ValidationError creates a new validation error
func ValidationError(err error, message string) *AppError {
	return newAppError(ErrorTypeValidation, err, message)
}

// DatabaseError creates a new database error
func DatabaseError(err error, message string) *AppError {
	return newAppError(ErrorTypeDatabase, err, message)
}

// ConfigError creates a new configuration error
func ConfigError(err error, message string) *AppError {
	return newAppError(ErrorTypeConfig, err, message)
}

// InternalError creates a new internal error
func InternalError(err error, message string) *AppError {
	return newAppError(ErrorTypeInternal, err, message)
}

// LogError logs an AppError using the provided slog.Logger or the default slog logger.
// It logs the error message, type, stack trace, and any associated fields.
func LogError(logger *slog.Logger, err error) {
	if logger == nil {
		logger = slog.Default()
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		args := []any{
			"type", string(appErr.Type),
			"original_error", appErr.Err.Error(),
		}
		if appErr.StackInfo != "" {
			args = append(args, "stack", appErr.StackInfo)
		}
		for k, v := range appErr.Fields {
			args = append(args, k, v)
		}
		logger.Error(appErr.Message, args...)
	} else {
		logger.Error(err.Error(), "error", err)
	}
}

// TypeOf returns the type of the outermost AppError in err's chain, or
// ErrorTypeUnknown.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeUnknown
}

// CauseType returns the type of the innermost AppError in err's chain. For a
// chunk failure this is the reason the chunk failed.
func CauseType(err error) ErrorType {
	found := ErrorTypeUnknown
	for err != nil {
		if appErr, ok := err.(*AppError); ok {
			found = appErr.Type
		}
		err = errors.Unwrap(err)
	}
	return found
}

// StatusCode returns the HTTP status recorded on a remote status error.
func StatusCode(err error) (int, bool) {
	return intField(err, FieldStatusCode)
}

// ChunkIndex returns the 1-based index of the chunk that failed.
func ChunkIndex(err error) (int, bool) {
	return intField(err, FieldChunkIndex)
}

func intField(err error, key string) (int, bool) {
	for err != nil {
		if appErr, ok := err.(*AppError); ok {
			if v, ok := appErr.Fields[key].(int); ok {
				return v, true
			}
		}
		err = errors.Unwrap(err)
	}
	return 0, false
}

// IsNetworkError checks if an error is a network error
func IsNetworkError(err error) bool {
	return TypeOf(err) == ErrorTypeNetwork
}

// IsRemoteStatusError checks if an error is a remote status error
func IsRemoteStatusError(err error) bool {
	return TypeOf(err) == ErrorTypeRemoteStatus
}

// IsPayloadShapeError checks if an error is a payload shape error
func IsPayloadShapeError(err error) bool {
	return TypeOf(err) == ErrorTypePayloadShape
}

// IsEmptyInputError checks if an error is an empty input error
func IsEmptyInputError(err error) bool {
	return TypeOf(err) == ErrorTypeEmptyInput
}

// IsChunkFailureError checks if an error is a chunk failure error
func IsChunkFailureError(err error) bool {
	return TypeOf(err) == ErrorTypeChunkFailure
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return TypeOf(err) == ErrorTypeValidation
}

// IsDatabaseError checks if an error is a database error
func IsDatabaseError(err error) bool {
	return TypeOf(err) == ErrorTypeDatabase
}
