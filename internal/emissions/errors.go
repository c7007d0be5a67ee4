package emissions

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidDateFormat is returned when a date string cannot be parsed
	ErrInvalidDateFormat = errors.New("invalid date format, expected YYYY-MM-DD or ISO-8601 timestamp")

	// ErrInvalidDateRange is returned when the start date is not before the end date
	ErrInvalidDateRange = errors.New("start date must be before end date")
)

// APIRequestError is a failed call to the metering or identity service.
// StatusCode is zero for transport-level failures.
type APIRequestError struct {
	StatusCode   int
	OpcRequestID string
	ServiceCode  string
	Message      string
	Err          error
}

func (e *APIRequestError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("api request failed: %v", e.Err)
	}
	if e.OpcRequestID != "" {
		return fmt.Sprintf("api request failed: status=%d code=%s message=%q opc-request-id=%s",
			e.StatusCode, e.ServiceCode, e.Message, e.OpcRequestID)
	}
	return fmt.Sprintf("api request failed: status=%d code=%s message=%q", e.StatusCode, e.ServiceCode, e.Message)
}

func (e *APIRequestError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure is transient. Transport errors,
// throttling and server-side failures qualify, client errors do not.
func (e *APIRequestError) Retryable() bool {
	if e.StatusCode == 0 {
		return true
	}
	return e.StatusCode == 429 || e.StatusCode >= 500
}
