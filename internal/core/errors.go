package core

import (
	"errors"
	"fmt"
)

// Validation errors. They are returned before any store mutation.
var (
	ErrValidation      = errors.New("validation failed")
	ErrInvalidAmount   = fmt.Errorf("%w: amount must be a positive number", ErrValidation)
	ErrEmptyTitle      = fmt.Errorf("%w: title cannot be empty", ErrValidation)
	ErrEmptyName       = fmt.Errorf("%w: name cannot be empty", ErrValidation)
	ErrNoCategory      = fmt.Errorf("%w: no category selected", ErrValidation)
	ErrInvalidDate     = fmt.Errorf("%w: date cannot be zero", ErrValidation)
	ErrInvalidPeriod   = fmt.Errorf("%w: invalid budget period", ErrValidation)
	ErrUnknownCategory = fmt.Errorf("%w: category does not exist", ErrValidation)
)

// Storage and lifecycle errors.
var (
	ErrNotFound           = errors.New("not found")
	ErrPredefinedCategory = errors.New("predefined categories cannot be deleted")
	ErrLastCategory       = errors.New("the only remaining category cannot be deleted")
	ErrNoDrafts           = errors.New("nothing to commit")
	ErrAlreadyCommitted   = errors.New("import already committed")
)

// ServiceError is returned by clients of third-party services (OCR, market data,
// remote config). It carries a message suitable for display and is retryable by
// re-invoking the user action.
type ServiceError struct {
	Service    string
	StatusCode int
	Message    string
	Err        error
}

func (e *ServiceError) Error() string {
	msg := e.Service + ": " + e.Message
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError builds a ServiceError.
func NewServiceError(service string, status int, message string, err error) error {
	return &ServiceError{Service: service, StatusCode: status, Message: message, Err: err}
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// AsServiceError extracts a ServiceError from err.
func AsServiceError(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
