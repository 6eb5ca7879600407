package rag

import (
	"errors"
	"fmt"
)

// ErrInvalidQuery is returned when a query is empty or whitespace-only.
var ErrInvalidQuery = errors.New("invalid query: query text is empty")

// ServiceError wraps a failure from an external collaborator (embedding model,
// vector store, language model). Op names the step that failed.
type ServiceError struct {
	Op  string
	Err error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// IsServiceError reports whether err wraps a *ServiceError.
func IsServiceError(err error) bool {
	var se *ServiceError
	return errors.As(err, &se)
}
