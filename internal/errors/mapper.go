package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorMapper maps external errors to the tabi error taxonomy
type ErrorMapper interface {
	MapError(err error) error
	IsRetryable(err error) bool
	Category(err error) string
}

// DefaultErrorMapper implements tabi error taxonomy mapping
type DefaultErrorMapper struct{}

// NewDefaultErrorMapper creates a new error mapper
func NewDefaultErrorMapper() *DefaultErrorMapper {
	return &DefaultErrorMapper{}
}

// MapError maps external (SDK, transport) errors to tabi error categories
func (m *DefaultErrorMapper) MapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timeout: %w", ErrTimeout)
	}

	if category(err) != nil {
		return err
	}

	errStr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errStr, "not found"), strings.Contains(errStr, "does not exist"):
		return fmt.Errorf("resource not found: %w", ErrNotFound)

	case strings.Contains(errStr, "invalid input"), strings.Contains(errStr, "invalid request"), strings.Contains(errStr, "bad request"):
		return fmt.Errorf("invalid request: %w", ErrInvalidInput)

	case strings.Contains(errStr, "timeout"), strings.Contains(errStr, "deadline exceeded"):
		return fmt.Errorf("request timeout: %w", ErrTimeout)

	case strings.Contains(errStr, "rate limit"), strings.Contains(errStr, "quota"), strings.Contains(errStr, "too many requests"),
		strings.Contains(errStr, "unauthorized"), strings.Contains(errStr, "api key"),
		strings.Contains(errStr, "network"), strings.Contains(errStr, "connection"), strings.Contains(errStr, "unreachable"):
		return fmt.Errorf("model unavailable: %w", ErrModelCommunication)

	case strings.Contains(errStr, "conflict"), strings.Contains(errStr, "already exists"):
		return fmt.Errorf("conflict: %w", ErrConflict)

	default:
		return fmt.Errorf("internal error: %w", ErrInternal)
	}
}

// IsRetryable determines if an error should trigger a retry
func (m *DefaultErrorMapper) IsRetryable(err error) bool {
	return IsRetryable(err)
}

// Category returns the tabi error category name for an error
func (m *DefaultErrorMapper) Category(err error) string {
	if err == nil {
		return ""
	}
	switch category(err) {
	case ErrProviderUnavailable:
		return "ErrProviderUnavailable"
	case ErrMalformedPayload:
		return "ErrMalformedPayload"
	case ErrModelCommunication:
		return "ErrModelCommunication"
	case ErrTimeout:
		return "ErrTimeout"
	case ErrMalformedWidget:
		return "ErrMalformedWidget"
	case ErrUnknownTool:
		return "ErrUnknownTool"
	case ErrInvalidInput:
		return "ErrInvalidInput"
	case ErrNotFound:
		return "ErrNotFound"
	case ErrConflict:
		return "ErrConflict"
	case ErrInternal:
		return "ErrInternal"
	default:
		return "Unknown"
	}
}

func category(err error) error {
	for _, c := range []error{
		ErrTimeout,
		ErrConflict,
		ErrNotFound,
		ErrInvalidInput,
		ErrUnknownTool,
		ErrMalformedWidget,
		ErrModelCommunication,
		ErrProviderUnavailable,
		ErrMalformedPayload,
		ErrInternal,
	} {
		if errors.Is(err, c) {
			return c
		}
	}
	return nil
}

// Code returns the machine-readable code sent as "details" in error responses.
func Code(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	switch category(err) {
	case ErrTimeout:
		return "timeout"
	case ErrConflict:
		return "turn_in_progress"
	case ErrNotFound:
		return "not_found"
	case ErrInvalidInput:
		return "invalid_request"
	case ErrModelCommunication:
		return "model_unavailable"
	default:
		return "internal"
	}
}

// HTTPStatus maps an error to the status code of the response carrying it.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	switch category(err) {
	case ErrTimeout:
		return http.StatusGatewayTimeout
	case ErrConflict:
		return http.StatusConflict
	case ErrNotFound:
		return http.StatusNotFound
	case ErrInvalidInput:
		return http.StatusBadRequest
	case ErrModelCommunication:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Wrap wraps an error with context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%s: %w", message, err)
}

// WrapWithCategory wraps an error with a specific category, keeping the cause in the chain
func WrapWithCategory(err error, message string, category error) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%s: %w: %w", message, category, err)
}

// IsCategory checks if error belongs to specific category
func IsCategory(err error, category error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, category)
}

// NotFound wraps error as not found
func NotFound(message string) error {
	return fmt.Errorf("%s: %w", message, ErrNotFound)
}

// InvalidInput wraps error as invalid input
func InvalidInput(message string) error {
	return fmt.Errorf("%s: %w", message, ErrInvalidInput)
}

// Conflict wraps error as conflict
func Conflict(message string) error {
	return fmt.Errorf("%s: %w", message, ErrConflict)
}

// Internal wraps error as internal
func Internal(message string) error {
	return fmt.Errorf("%s: %w", message, ErrInternal)
}

// ProviderUnavailable wraps error as provider unavailable
func ProviderUnavailable(message string) error {
	return fmt.Errorf("%s: %w", message, ErrProviderUnavailable)
}

// MalformedPayload wraps error as malformed provider payload
func MalformedPayload(message string) error {
	return fmt.Errorf("%s: %w", message, ErrMalformedPayload)
}

// ModelCommunication wraps error as model communication failure
func ModelCommunication(message string) error {
	return fmt.Errorf("%s: %w", message, ErrModelCommunication)
}

// IsRetryable reports whether an upstream call may be retried
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return errors.Is(err, ErrProviderUnavailable) || errors.Is(err, ErrTimeout)
}
