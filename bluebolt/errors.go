package bluebolt

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrAuthentication   = errors.New("authentication failed")
	ErrInvalidMethod    = errors.New("invalid request method")
	ErrRequestExhausted = errors.New("request retries exhausted")
)

// NetworkError is returned when a request could not be sent or its response not be read
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// DecodeError is returned when a response body is not valid JSON or does not match its schema
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode error: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// StatusError is returned for any response status other than 200 OK
type StatusError struct {
	StatusCode int
	Status     string
}

func newStatusError(resp *http.Response) *StatusError {
	return &StatusError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
	}
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %s", e.Status)
}
