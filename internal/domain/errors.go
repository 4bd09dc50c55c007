package domain

import (
	"errors"
	"fmt"
)

// Error types for consistent error handling across the service.

// ErrNoTrainingData is returned when a retrain request carries no examples.
var ErrNoTrainingData = errors.New("No training data provided")

// ErrValidation indicates a validation error (bad input).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrUnauthorized indicates a missing or invalid token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// ErrModelUnavailable indicates the classifier could not be fitted on the
// supplied examples (e.g. every description normalized to nothing).
type ErrModelUnavailable struct {
	Reason string
	Err    error
}

func (e *ErrModelUnavailable) Error() string {
	return fmt.Sprintf("model unavailable: %s: %v", e.Reason, e.Err)
}

func (e *ErrModelUnavailable) Unwrap() error {
	return e.Err
}

// ErrExternalService indicates a failure in a remote call (used by the client).
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrStorage indicates the corpus store failed.
type ErrStorage struct {
	Operation string
	Err       error
}

func (e *ErrStorage) Error() string {
	return fmt.Sprintf("storage error [%s]: %v", e.Operation, e.Err)
}

func (e *ErrStorage) Unwrap() error {
	return e.Err
}
