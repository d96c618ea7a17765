package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
)

// Request is one prepared request attempt, ready for the transport.
// Request interceptors receive a Request and may return a replacement;
// a Request is never reused across attempts.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

// Clone returns a deep copy of the request. Interceptors that modify a
// request must clone it first; the orchestrator owns the original.
func (r *Request) Clone() *Request {
	headers := make(map[string]string, len(r.Headers))
	for k, v := range r.Headers {
		headers[k] = v
	}
	var body []byte
	if r.Body != nil {
		body = append([]byte(nil), r.Body...)
	}
	return &Request{
		Method:  r.Method,
		URL:     r.URL,
		Headers: headers,
		Body:    body,
	}
}

// ResponseMeta carries the non-body portion of a transport response.
type ResponseMeta struct {
	StatusCode int
	Headers    nethttp.Header
}

// Response is a fully buffered transport response.
type Response struct {
	Meta ResponseMeta
	Body []byte
}

// Transport sends prepared requests and returns raw responses. The core
// delegates all connection handling (pooling, DNS, TLS) to the transport.
//
// A transport reports failures as *TransportError so the orchestrator can
// classify them; any other error is treated as an unclassified network fault.
//
// Implementations must be safe for concurrent use by multiple goroutines.
type Transport interface {
	// Send transmits the request and returns the buffered response.
	Send(ctx context.Context, req *Request) (*Response, error)

	// SendStreaming transmits the request and returns the response metadata
	// together with the live body stream. The caller owns the stream and
	// must close it.
	SendStreaming(ctx context.Context, req *Request) (*ResponseMeta, io.ReadCloser, error)
}

// TransportFault identifies the fixed set of failures a transport may raise.
type TransportFault string

const (
	FaultCancelled       TransportFault = "cancelled"
	FaultTimedOut        TransportFault = "timed_out"
	FaultNoConnection    TransportFault = "no_connection"
	FaultConnectionLost  TransportFault = "connection_lost"
	FaultHostUnreachable TransportFault = "host_unreachable"
	FaultDNSFailure      TransportFault = "dns_failure"
	FaultOther           TransportFault = "other"
)

// TransportError is the error type transports raise on failure.
type TransportError struct {
	Fault TransportFault
	Cause error
}

func (e *TransportError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("transport fault %s: %v", e.Fault, e.Cause)
	}
	return fmt.Sprintf("transport fault %s", e.Fault)
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

// ErrRetryRequested is the reserved signal an interceptor returns to force
// the current attempt to be retried. It is not a terminal fault: the
// orchestrator reattempts while the retry policy allows, and reports
// an unexpected-response error once attempts are exhausted.
var ErrRetryRequested = errors.New("retry requested")

// RequestInterceptor observes or replaces a prepared request before it is
// sent. Returning a non-nil request substitutes it for the current one;
// returning nil keeps the request unchanged. Interceptors run strictly in
// registration order, each seeing the previous one's output.
type RequestInterceptor func(ctx context.Context, req *Request, attempt *AttemptContext) (*Request, error)

// ResponseInterceptor observes or replaces the response body and metadata
// after a successful transport exchange. Returning nil for either value
// keeps it unchanged. It may return ErrRetryRequested to force a retry.
type ResponseInterceptor func(ctx context.Context, body []byte, meta *ResponseMeta, attempt *AttemptContext) ([]byte, *ResponseMeta, error)
