package api

import (
	"fmt"
	"strings"
)

// AuthError is returned when an operation requires API credentials that were
// not supplied. It is never retried.
type AuthError struct {
	Operation string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: API credentials required for this operation", e.Operation)
}

// ErrorDetail is a single structured error entry returned by the service.
type ErrorDetail struct {
	Message string `json:"message"`
}

// ServiceError is a non-transient failure reported by the service itself:
// either an HTTP 4xx/5xx status or an application-level error payload.
// It is never retried and carries the service's error detail for diagnostics.
type ServiceError struct {
	Operation string
	Status    int // HTTP status; 0 for application-level errors
	Details   []ErrorDetail
}

func (e *ServiceError) Error() string {
	if len(e.Details) > 0 {
		msgs := make([]string, len(e.Details))
		for i, d := range e.Details {
			msgs[i] = d.Message
		}
		return fmt.Sprintf("%s: service error: %s", e.Operation, strings.Join(msgs, "; "))
	}
	return fmt.Sprintf("%s: service returned HTTP %d", e.Operation, e.Status)
}

// RetryError is returned when the retry schedule for transient failures has
// been exhausted. It wraps the last transport error observed.
type RetryError struct {
	Operation string
	Attempts  int
	Last      error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("%s: giving up after %d attempts: %v", e.Operation, e.Attempts, e.Last)
}

func (e *RetryError) Unwrap() error { return e.Last }
