package cards

import (
	"fmt"
	"net/http"

	"binforge/internal/models"
)

// ServiceError represents errors from the card service with HTTP context
type ServiceError struct {
	Code       string
	Message    string
	StatusCode int
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Error constructors for common service errors

func NewBinNotFoundError(bin string) *ServiceError {
	return &ServiceError{
		Code:       models.ErrorCodeBinNotFound,
		Message:    fmt.Sprintf("bin '%s' not found", bin),
		StatusCode: http.StatusNotFound,
	}
}

func NewBinBlockedError(bin, reason string) *ServiceError {
	return &ServiceError{
		Code:       models.ErrorCodeBinBlocked,
		Message:    fmt.Sprintf("bin '%s' is blocked: %s", bin, reason),
		StatusCode: http.StatusUnprocessableEntity,
	}
}

func NewInvalidRequestError(message string, err error) *ServiceError {
	return &ServiceError{
		Code:       models.ErrorCodeInvalidRequest,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Err:        err,
	}
}

func NewValidationError(message string, err error) *ServiceError {
	return &ServiceError{
		Code:       models.ErrorCodeValidation,
		Message:    message,
		StatusCode: http.StatusUnprocessableEntity,
		Err:        err,
	}
}

func NewGenerationFailedError(err error) *ServiceError {
	return &ServiceError{
		Code:       models.ErrorCodeGenerationFailed,
		Message:    "number generation failed",
		StatusCode: http.StatusInternalServerError,
		Err:        err,
	}
}

func NewProviderUnavailableError(err error) *ServiceError {
	return &ServiceError{
		Code:       models.ErrorCodeServiceUnavailable,
		Message:    "bin dataset provider unavailable",
		StatusCode: http.StatusServiceUnavailable,
		Err:        err,
	}
}

func NewInternalError(message string, err error) *ServiceError {
	return &ServiceError{
		Code:       models.ErrorCodeInternalError,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Err:        err,
	}
}
