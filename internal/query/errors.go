package query

import (
	"errors"
	"fmt"
)

// ErrInvalidQuestion is returned for an empty or whitespace-only question, before any service call.
var ErrInvalidQuestion = errors.New("Question cannot be empty.")

// ErrServiceUnavailable matches any ServiceError via errors.Is.
var ErrServiceUnavailable = errors.New("service unavailable")

// ServiceError reports a failure of the embedding, retrieval or generation service.
// It is not retried.
type ServiceError struct {
	Service string
	Err     error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s service: %v", e.Service, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Is reports ServiceError as ErrServiceUnavailable.
func (e *ServiceError) Is(target error) bool {
	return target == ErrServiceUnavailable
}
