package models

import (
	"errors"
	"fmt"
)

type ErrorType string

const (
	ErrorTypeNetwork             ErrorType = "network"
	ErrorTypeTimeout             ErrorType = "timeout"
	ErrorTypeContentType         ErrorType = "content_type"
	ErrorTypeEmptyContent        ErrorType = "empty_content"
	ErrorTypeInsufficientContent ErrorType = "insufficient_content"
	ErrorTypeModel               ErrorType = "model"
	ErrorTypeParse               ErrorType = "parse"
	ErrorTypeValidation          ErrorType = "validation"
	ErrorTypeExternal            ErrorType = "external"
	ErrorTypeInternal            ErrorType = "internal"
)

// AppError is the typed error carried between services. The tool results
// (ExtractionResult, LogoResult) never expose it directly; they flatten the
// message into their Error field instead.
type AppError struct {
	Code     string                 `json:"code"`
	Message  string                 `json:"message"`
	Type     ErrorType              `json:"type"`
	Cause    error                  `json:"-"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches on error type so callers can probe with errors.Is against a
// bare &AppError{Type: ...} sentinel.
func (e *AppError) Is(target error) bool {
	other, ok := target.(*AppError)
	if !ok {
		return false
	}
	if other.Code != "" && other.Code != e.Code {
		return false
	}
	return other.Type == e.Type
}

func (e *AppError) WithCause(cause error) *AppError {
	clone := *e
	clone.Cause = cause
	return &clone
}

func (e *AppError) WithMetadata(key string, value interface{}) *AppError {
	clone := *e
	clone.Metadata = make(map[string]interface{}, len(e.Metadata)+1)
	for k, v := range e.Metadata {
		clone.Metadata[k] = v
	}
	clone.Metadata[key] = value
	return &clone
}

func newError(errType ErrorType, code, message string) *AppError {
	return &AppError{Code: code, Message: message, Type: errType}
}

func NewNetworkError(code, message string) *AppError {
	return newError(ErrorTypeNetwork, code, message)
}

func NewTimeoutError(code, message string) *AppError {
	return newError(ErrorTypeTimeout, code, message)
}

func NewContentTypeError(code, message string) *AppError {
	return newError(ErrorTypeContentType, code, message)
}

func NewModelError(code, message string) *AppError {
	return newError(ErrorTypeModel, code, message)
}

func NewParseError(code, message string) *AppError {
	return newError(ErrorTypeParse, code, message)
}

func NewValidationError(code, message string) *AppError {
	return newError(ErrorTypeValidation, code, message)
}

func NewExternalError(code, message string) *AppError {
	return newError(ErrorTypeExternal, code, message)
}

func NewInternalError(code, message string) *AppError {
	return newError(ErrorTypeInternal, code, message)
}

// ErrSnapshotNotFound is returned by the session store when no conversation
// snapshot exists for a session.
var ErrSnapshotNotFound = NewExternalError("SNAPSHOT_NOT_FOUND", "conversation snapshot not found")

// IsErrorType reports whether err is, or wraps, an AppError of the given type.
func IsErrorType(err error, errType ErrorType) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Type == errType
}
