package common

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
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

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrDatabase     = errors.New("database error")
	// ErrSetup marks failures that abort a run: missing or undecodable
	// image, OCR engine not installed, invalid configuration.
	ErrSetup = errors.New("setup error")
)

// Codes carried by setup errors.
const (
	CodeConfig           = "CONFIG_ERROR"
	CodeImageNotFound    = "IMAGE_NOT_FOUND"
	CodeImageUndecodable = "IMAGE_UNDECODABLE"
	CodeOCRUnavailable   = "OCR_UNAVAILABLE"
)

func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewSetupError builds an AppError that matches ErrSetup as well as cause.
func NewSetupError(code, message string, cause error) *AppError {
	if cause == nil {
		cause = ErrSetup
	} else {
		cause = errors.Join(ErrSetup, cause)
	}
	return NewAppError(code, message, cause)
}

func IsSetupError(err error) bool {
	return errors.Is(err, ErrSetup)
}

// ErrorCode returns the AppError code in err's chain, or "".
func ErrorCode(err error) string {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// gRPC error helpers
func InvalidArgumentError(message string) error {
	return status.Error(codes.InvalidArgument, message)
}

func NotFoundError(message string) error {
	return status.Error(codes.NotFound, message)
}

func InternalError(message string) error {
	return status.Error(codes.Internal, message)
}

func InvalidArgumentErrorf(format string, args ...interface{}) error {
	return InvalidArgumentError(fmt.Sprintf(format, args...))
}

func InternalErrorf(format string, args ...interface{}) error {
	return InternalError(fmt.Sprintf(format, args...))
}

// ToStatus maps a processing error onto a gRPC status.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	switch ErrorCode(err) {
	case CodeImageNotFound:
		return status.Error(codes.NotFound, err.Error())
	case CodeImageUndecodable:
		return status.Error(codes.InvalidArgument, err.Error())
	case CodeOCRUnavailable, CodeConfig:
		return status.Error(codes.FailedPrecondition, err.Error())
	}
	if errors.Is(err, ErrNotFound) {
		return NotFoundError(err.Error())
	}
	if errors.Is(err, ErrInvalidInput) {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}
