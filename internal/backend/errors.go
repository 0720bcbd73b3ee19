package backend

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	gobreaker "github.com/sony/gobreaker/v2"
)

// ErrInvalidServerResponse means the backend answered 2xx with a body that
// does not satisfy the expected schema. No session is created from it.
var ErrInvalidServerResponse = errors.New("invalid server response")

// DomainError is a non-2xx backend answer. Message is already extracted
// and safe to show to the browser.
type DomainError struct {
	Status  int
	Message string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
}

// RequestBodyError means the call failed while reading the body supplied by
// the browser. It never counts against the circuit breaker.
type RequestBodyError struct {
	Err error
}

func (e *RequestBodyError) Error() string {
	return fmt.Sprintf("reading request body: %v", e.Err)
}

func (e *RequestBodyError) Unwrap() error {
	return e.Err
}

// TransportError wraps failures where no usable backend response exists:
// dial errors, timeouts, unreadable bodies or an open circuit breaker.
// Its text is for logs only.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("backend %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the outbound call exceeded its deadline.
func (e *TransportError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

// Unavailable reports whether the circuit breaker rejected the call
// without contacting the backend.
func (e *TransportError) Unavailable() bool {
	return errors.Is(e.Err, gobreaker.ErrOpenState) || errors.Is(e.Err, gobreaker.ErrTooManyRequests)
}

// BodyRejected reports whether the call failed on the browser's own body.
func (e *TransportError) BodyRejected() bool {
	var bodyErr *RequestBodyError
	return errors.As(e.Err, &bodyErr)
}

// TooLarge reports whether the browser's body exceeded its size limit.
func (e *TransportError) TooLarge() bool {
	var maxBytes *http.MaxBytesError
	return errors.As(e.Err, &maxBytes)
}
