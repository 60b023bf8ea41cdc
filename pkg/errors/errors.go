package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorCode represents an error code
type ErrorCode string

const (
	ErrCodeBadRequest          ErrorCode = "BAD_REQUEST"
	ErrCodeMethodNotAllowed    ErrorCode = "METHOD_NOT_ALLOWED"
	ErrCodeUnauthorized        ErrorCode = "UNAUTHORIZED"
	ErrCodeInternalError       ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation          ErrorCode = "VALIDATION_ERROR"
	ErrCodeStorageUnavailable  ErrorCode = "STORAGE_UNAVAILABLE"
	ErrCodeNotificationFailure ErrorCode = "NOTIFICATION_FAILURE"
)

// AppError represents an application error
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with an AppError
func Wrap(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// StorageUnavailable wraps a persistence failure.
func StorageUnavailable(err error) *AppError {
	return Wrap(ErrCodeStorageUnavailable, "inquiry storage unavailable", err)
}

// NotificationFailure wraps a failed email delivery.
func NotificationFailure(err error) *AppError {
	return Wrap(ErrCodeNotificationFailure, "notification delivery failed", err)
}

// FieldErrors maps a submitted field name to a human-readable message.
// It is the validation error of the inquiry form.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	fields := make([]string, 0, len(fe))
	for field := range fe {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, fe[field]))
	}
	return fmt.Sprintf("%s: %s", ErrCodeValidation, strings.Join(parts, "; "))
}

// Fields returns the invalid field names in sorted order.
func (fe FieldErrors) Fields() []string {
	fields := make([]string, 0, len(fe))
	for field := range fe {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

// CodeOf returns the code carried by err, or ErrCodeInternalError.
func CodeOf(err error) ErrorCode {
	var fe FieldErrors
	if errors.As(err, &fe) {
		return ErrCodeValidation
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternalError
}

// IsValidation checks if error is a field validation error
func IsValidation(err error) bool {
	return CodeOf(err) == ErrCodeValidation
}

// IsStorageUnavailable checks if error is StorageUnavailable
func IsStorageUnavailable(err error) bool {
	return CodeOf(err) == ErrCodeStorageUnavailable
}

// IsNotificationFailure checks if error is NotificationFailure
func IsNotificationFailure(err error) bool {
	return CodeOf(err) == ErrCodeNotificationFailure
}

// IsUnauthorized checks if error is Unauthorized
func IsUnauthorized(err error) bool {
	return CodeOf(err) == ErrCodeUnauthorized
}
