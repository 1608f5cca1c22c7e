package request

import (
	"errors"
	"fmt"
)

// FetchError is returned once the attempt budget is exhausted (transient upstream failure).
// Err holds the cause of the last attempt.
type FetchError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("upstream %s failed after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// StatusError is a non-2xx upstream response.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.StatusCode)
}

// MalformedError means the upstream answered but the payload broke the contract.
type MalformedError struct {
	URL string
	Err error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed response from %s: %v", e.URL, e.Err)
}

func (e *MalformedError) Unwrap() error { return e.Err }

// Malformed builds a *MalformedError for a shape validation failure.
func Malformed(url, format string, args ...any) error {
	return &MalformedError{URL: url, Err: fmt.Errorf(format, args...)}
}

// IsTransient reports whether err is an exhausted retry budget.
func IsTransient(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

// IsMalformed reports whether err, or the last attempt behind it, was a malformed payload.
func IsMalformed(err error) bool {
	var me *MalformedError
	return errors.As(err, &me)
}
