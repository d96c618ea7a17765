package client

import (
	"errors"
	"fmt"
)

// Error is the single error surface of the request-execution core. Every
// public entry point returns exactly one taxonomy member, never an
// unclassified fault.
type Error interface {
	error
	Type() ErrorType
}

// ErrorType defines the category of client error
type ErrorType string

const (
	// NetworkError is an unclassified transport fault.
	NetworkError ErrorType = "network"
	// InvalidRequestError means the descriptor could not be turned into a
	// request. Never retried.
	InvalidRequestError ErrorType = "invalid_request"
	// CancelledError means the invocation was cancelled cooperatively.
	// Never retried.
	CancelledError ErrorType = "cancelled"
	// TimeoutError is a transport-reported timeout. Retryable.
	TimeoutError ErrorType = "timeout"
	// ServerError is a response outside the descriptor's success range.
	ServerError ErrorType = "server"
	// DecodingError is a success-path decode failure. Never retried.
	DecodingError ErrorType = "decoding"
	// UnexpectedResponseError is a non-HTTP response shape, or retries
	// exhausted on repeated retry requests.
	UnexpectedResponseError ErrorType = "unexpected_response"
	// OfflineError is a connectivity-specific transport classification.
	OfflineError ErrorType = "offline"
)

type networkError struct {
	message string
	wrapped error
}

func (e *networkError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("network error: %s: %v", e.message, e.wrapped)
	}
	return fmt.Sprintf("network error: %s", e.message)
}

func (e *networkError) Type() ErrorType { return NetworkError }

func (e *networkError) Unwrap() error { return e.wrapped }

type invalidRequestError struct {
	reason string
}

func (e *invalidRequestError) Error() string {
	return fmt.Sprintf("invalid request: %s", e.reason)
}

func (e *invalidRequestError) Type() ErrorType { return InvalidRequestError }

type cancelledError struct {
	wrapped error
}

func (e *cancelledError) Error() string { return "request cancelled" }

func (e *cancelledError) Type() ErrorType { return CancelledError }

func (e *cancelledError) Unwrap() error { return e.wrapped }

type timeoutError struct {
	wrapped error
}

func (e *timeoutError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("request timed out: %v", e.wrapped)
	}
	return "request timed out"
}

func (e *timeoutError) Type() ErrorType { return TimeoutError }

func (e *timeoutError) Unwrap() error { return e.wrapped }

type serverError struct {
	statusCode  int
	failureBody any
	rawBody     []byte
}

func (e *serverError) Error() string {
	return fmt.Sprintf("server error: status %d", e.statusCode)
}

func (e *serverError) Type() ErrorType { return ServerError }

func (e *serverError) StatusCode() int { return e.statusCode }

type decodingError struct {
	cause   error
	rawBody []byte
}

func (e *decodingError) Error() string {
	return fmt.Sprintf("decoding error: %v", e.cause)
}

func (e *decodingError) Type() ErrorType { return DecodingError }

func (e *decodingError) Unwrap() error { return e.cause }

type unexpectedResponseError struct {
	message string
}

func (e *unexpectedResponseError) Error() string {
	return fmt.Sprintf("unexpected response: %s", e.message)
}

func (e *unexpectedResponseError) Type() ErrorType { return UnexpectedResponseError }

type offlineError struct {
	fault   TransportFault
	wrapped error
}

func (e *offlineError) Error() string {
	return fmt.Sprintf("offline: %s", e.fault)
}

func (e *offlineError) Type() ErrorType { return OfflineError }

func (e *offlineError) Unwrap() error { return e.wrapped }

// NewNetworkError creates a new network error
func NewNetworkError(message string, wrapped error) Error {
	return &networkError{message: message, wrapped: wrapped}
}

// NewInvalidRequestError creates a new invalid-request error
func NewInvalidRequestError(reason string) Error {
	return &invalidRequestError{reason: reason}
}

// NewCancelledError creates a new cancelled error
func NewCancelledError(wrapped error) Error {
	return &cancelledError{wrapped: wrapped}
}

// NewTimeoutError creates a new timeout error
func NewTimeoutError(wrapped error) Error {
	return &timeoutError{wrapped: wrapped}
}

// NewServerError creates a new server error. failureBody is the decoded
// typed failure body, or nil when the failure body could not be decoded.
func NewServerError(statusCode int, failureBody any, rawBody []byte) Error {
	return &serverError{statusCode: statusCode, failureBody: failureBody, rawBody: rawBody}
}

// NewDecodingError creates a new decoding error
func NewDecodingError(cause error, rawBody []byte) Error {
	return &decodingError{cause: cause, rawBody: rawBody}
}

// NewUnexpectedResponseError creates a new unexpected-response error
func NewUnexpectedResponseError(message string) Error {
	return &unexpectedResponseError{message: message}
}

// NewOfflineError creates a new offline error
func NewOfflineError(fault TransportFault, wrapped error) Error {
	return &offlineError{fault: fault, wrapped: wrapped}
}

// IsErrorType checks if an error is of a specific taxonomy type
func IsErrorType(err error, errorType ErrorType) bool {
	if err == nil {
		return false
	}
	var clientErr Error
	if errors.As(err, &clientErr) {
		return clientErr.Type() == errorType
	}
	return false
}

// IsRetryable reports whether the error is eligible for a retry. It is a
// pure function of the taxonomy tag and, for server errors, the status code:
// timeouts, network faults, offline faults, and server errors with status
// >= 500 or 429 are retryable.
func IsRetryable(err error) bool {
	var clientErr Error
	if !errors.As(err, &clientErr) {
		return false
	}
	switch clientErr.Type() {
	case TimeoutError, NetworkError, OfflineError:
		return true
	case ServerError:
		var se *serverError
		if errors.As(err, &se) {
			return se.statusCode >= 500 || se.statusCode == 429
		}
		return false
	default:
		return false
	}
}

// IsOffline reports whether the error is a connectivity classification.
func IsOffline(err error) bool {
	return IsErrorType(err, OfflineError)
}

// ErrorStatusCode returns the status code carried by a server error.
func ErrorStatusCode(err error) (int, bool) {
	var se *serverError
	if errors.As(err, &se) {
		return se.statusCode, true
	}
	return 0, false
}

// RawBody returns the raw response body captured by a server or decoding
// error, if any.
func RawBody(err error) ([]byte, bool) {
	var se *serverError
	if errors.As(err, &se) {
		return se.rawBody, se.rawBody != nil
	}
	var de *decodingError
	if errors.As(err, &de) {
		return de.rawBody, de.rawBody != nil
	}
	return nil, false
}

// FailureBody returns the decoded typed failure body carried by a server
// error, if one was decoded.
func FailureBody[F any](err error) (F, bool) {
	var zero F
	var se *serverError
	if !errors.As(err, &se) || se.failureBody == nil {
		return zero, false
	}
	f, ok := se.failureBody.(F)
	if !ok {
		return zero, false
	}
	return f, true
}
