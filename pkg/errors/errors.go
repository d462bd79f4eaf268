package errors

import (
	"errors"
	"fmt"
)

// ErrorType defines different categories of errors
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "VALIDATION"
	ErrorTypeNotFound   ErrorType = "NOT_FOUND"
	ErrorTypeConflict   ErrorType = "CONFLICT"
	ErrorTypeTransient  ErrorType = "TRANSIENT"
	ErrorTypeInternal   ErrorType = "INTERNAL"
)

// ErrorCode refines a category with a machine-readable reason
type ErrorCode string

const (
	CodeAlreadyMember  ErrorCode = "ALREADY_MEMBER"
	CodeNotMember      ErrorCode = "NOT_MEMBER"
	CodeNotParticipant ErrorCode = "NOT_PARTICIPANT"
)

// AppError is the custom error type for the application
type AppError struct {
	Type    ErrorType
	Code    ErrorCode
	Message string
	Err     error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work
func (e *AppError) Unwrap() error {
	return e.Err
}

// Constructor functions for different error types

// NewValidation creates a validation error
func NewValidation(message string) error {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: message,
	}
}

// NewNotFound creates a not found error
func NewNotFound(message string) error {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// NewAlreadyMember signals that a (conversation, user) pair already exists
func NewAlreadyMember(message string) error {
	return &AppError{
		Type:    ErrorTypeConflict,
		Code:    CodeAlreadyMember,
		Message: message,
	}
}

// NewNotMember signals that a (conversation, user) pair does not exist
func NewNotMember(message string) error {
	return &AppError{
		Type:    ErrorTypeConflict,
		Code:    CodeNotMember,
		Message: message,
	}
}

// NewNotParticipant signals that a sender is not a member of the
// conversation it is writing to
func NewNotParticipant(message string) error {
	return &AppError{
		Type:    ErrorTypeConflict,
		Code:    CodeNotParticipant,
		Message: message,
	}
}

// NewTransient creates a retryable infrastructure error
func NewTransient(message string, err error) error {
	return &AppError{
		Type:    ErrorTypeTransient,
		Message: message,
		Err:     err,
	}
}

// NewInternal creates an internal error
func NewInternal(message string, err error) error {
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Err:     err,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	// If it's already an AppError, preserve the type and code
	var appErr *AppError
	if errors.As(err, &appErr) {
		return &AppError{
			Type:    appErr.Type,
			Code:    appErr.Code,
			Message: fmt.Sprintf("%s: %s", message, appErr.Message),
			Err:     appErr.Err,
		}
	}

	// Otherwise, create an internal error
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Err:     err,
	}
}

// Type checking functions

func isType(err error, t ErrorType) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == t
}

func isCode(err error, c ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == c
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return isType(err, ErrorTypeValidation)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return isType(err, ErrorTypeNotFound)
}

// IsConflict checks if an error is any membership/state conflict
func IsConflict(err error) bool {
	return isType(err, ErrorTypeConflict)
}

// IsTransient checks if an error is a retryable infrastructure fault
func IsTransient(err error) bool {
	return isType(err, ErrorTypeTransient)
}

// IsInternal checks if an error is an internal error
func IsInternal(err error) bool {
	return isType(err, ErrorTypeInternal)
}

// IsAlreadyMember checks for the duplicate-membership conflict
func IsAlreadyMember(err error) bool {
	return isCode(err, CodeAlreadyMember)
}

// IsNotMember checks for the missing-membership conflict
func IsNotMember(err error) bool {
	return isCode(err, CodeNotMember)
}

// IsNotParticipant checks for the sender-not-a-member conflict
func IsNotParticipant(err error) bool {
	return isCode(err, CodeNotParticipant)
}
