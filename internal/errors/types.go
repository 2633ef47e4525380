// Package errors defines the client-side error taxonomy shared by the
// transport, the session orchestrator, and the retrieval client, plus the
// retry and circuit breaker helpers the HTTP layer is built on.
package errors

import (
	"errors"
	"fmt"
)

// NetworkError reports that no response was reachable at all (DNS failure,
// connection refused, timeout before headers).
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network unreachable: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// AuthError reports an expired or invalid credential (HTTP 401). The
// transport clears the credential and fires its auth hook when translating
// one; callers only ever observe the typed error.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "authentication required"
}

// ForbiddenError reports a valid credential without sufficient permission
// (HTTP 403).
type ForbiddenError struct {
	Message string
}

func (e *ForbiddenError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "access forbidden"
}

// NotFoundError reports a missing resource (HTTP 404).
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "resource not found"
}

// ValidationError carries the server-supplied detail for a rejected request
// (remaining 4xx).
type ValidationError struct {
	StatusCode int
	Detail     string
}

func (e *ValidationError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("request rejected with status %d", e.StatusCode)
}

// ServerError reports a 5xx response.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("server error %d", e.StatusCode)
}

// ResponseTooLargeError reports a response body that exceeded the
// transport's configured read limit.
type ResponseTooLargeError struct {
	Limit int64
}

func (e *ResponseTooLargeError) Error() string {
	return fmt.Sprintf("response body exceeds %d bytes", e.Limit)
}

// StreamError reports a push channel that closed or failed mid-turn. Any
// partial content received before the failure is preserved by the
// orchestrator, never rolled back.
type StreamError struct {
	Err error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("stream failed: %v", e.Err)
}

func (e *StreamError) Unwrap() error { return e.Err }

// ConflictError reports a client-side precondition violation, e.g. sending
// while a turn is already in flight. It never reaches the wire.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string { return e.Reason }

// IsAuth reports whether err is (or wraps) an AuthError.
func IsAuth(err error) bool {
	var target *AuthError
	return errors.As(err, &target)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsConflict reports whether err is (or wraps) a ConflictError.
func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}

// IsStream reports whether err is (or wraps) a StreamError.
func IsStream(err error) bool {
	var target *StreamError
	return errors.As(err, &target)
}

// IsTransient reports whether err is worth retrying: the request never
// reached the server or the server failed, as opposed to the server
// deliberately rejecting it.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return true
	}
	var srvErr *ServerError
	return errors.As(err, &srvErr)
}
