package fetch

import (
	"errors"
	"fmt"
)

// Common errors returned by the fetch client.
var (
	// ErrInvalidInput is returned for malformed call parameters
	// (page or pageSize below 1). Never silently coerced.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnknownEnvelope is returned when a response body matches none of
	// the known envelope shapes.
	ErrUnknownEnvelope = errors.New("unknown response envelope")

	// ErrBlocked is returned when the backend error budget is critical
	// and the request was not issued.
	ErrBlocked = errors.New("request blocked: backend error budget critical")
)

// ErrorClass represents a classification of fetch errors.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassEnvelope represents malformed or unrecognized payloads.
	ErrorClassEnvelope ErrorClass = "envelope"
)

// APIError represents a collection-API error with additional context.
type APIError struct {
	Collection string
	Page       int
	StatusCode int
	ErrorClass ErrorClass
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("collection %q page %d: %s error (status %d): %s: %v",
			e.Collection, e.Page, e.ErrorClass, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("collection %q page %d: %s error (status %d): %s",
		e.Collection, e.Page, e.ErrorClass, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// Retriable reports whether an error class is worth retrying.
// Client errors are deterministic and retrying them wastes the error budget.
func Retriable(class ErrorClass) bool {
	switch class {
	case ErrorClassServer, ErrorClassNetwork:
		return true
	default:
		return false
	}
}
