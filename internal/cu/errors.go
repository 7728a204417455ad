package cu

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ServiceError is a non-2xx response from the Content Understanding service,
// surfaced verbatim with the HTTP status and the service's error code.
type ServiceError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *ServiceError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("service returned %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("service returned %d: %s", e.StatusCode, e.Message)
}

// Guidance returns the likely cause for the common failure statuses, matching
// the troubleshooting table in the migration docs.
func (e *ServiceError) Guidance() string {
	switch e.StatusCode {
	case http.StatusBadRequest:
		return "the analyzer ID or field schema failed validation; check naming constraints and field types"
	case http.StatusUnauthorized:
		return "the subscription key is wrong or missing, or the endpoint does not match the resource"
	case http.StatusNotFound:
		return "the analyzer does not exist; check the analyzer ID or create it first"
	case http.StatusConflict:
		return "an analyzer with this ID already exists; delete it or choose a different ID"
	default:
		return ""
	}
}

// IsConflict reports whether err is a 409 from the service.
func IsConflict(err error) bool { return hasStatus(err, http.StatusConflict) }

// IsNotFound reports whether err is a 404 from the service.
func IsNotFound(err error) bool { return hasStatus(err, http.StatusNotFound) }

// IsUnauthorized reports whether err is a 401 from the service.
func IsUnauthorized(err error) bool { return hasStatus(err, http.StatusUnauthorized) }

// IsBadRequest reports whether err is a 400 from the service.
func IsBadRequest(err error) bool { return hasStatus(err, http.StatusBadRequest) }

func hasStatus(err error, status int) bool {
	var se *ServiceError
	return errors.As(err, &se) && se.StatusCode == status
}

// TimeoutError is returned when a long-running operation does not reach a
// terminal state within the bounded polling attempts.
type TimeoutError struct {
	Operation string
	Attempts  int
	Interval  time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("operation %s did not complete after %d polls at %s intervals",
		e.Operation, e.Attempts, e.Interval)
}

// OperationFailedError is a long-running operation that reached the Failed
// terminal state. Raw carries the service's final status document.
type OperationFailedError struct {
	Operation string
	Message   string
	Raw       []byte
}

func (e *OperationFailedError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("operation %s failed: %s", e.Operation, e.Message)
	}
	return fmt.Sprintf("operation %s failed", e.Operation)
}

// ValidationError is a client-side naming violation caught before any
// request is issued.
type ValidationError struct {
	Name   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid name %q: %s", e.Name, e.Reason)
}
