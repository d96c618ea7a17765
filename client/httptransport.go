package client

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	nethttp "net/http"
	"syscall"
)

// HTTPTransport adapts net/http to the Transport interface, translating
// the standard library's errors into the fixed transport fault set.
// Connection handling (pooling, redirects, TLS) stays with the wrapped
// http.Client.
type HTTPTransport struct {
	client *nethttp.Client
}

var _ Transport = (*HTTPTransport)(nil)

// NewHTTPTransport wraps the given http.Client; nil means
// http.DefaultClient.
func NewHTTPTransport(hc *nethttp.Client) *HTTPTransport {
	if hc == nil {
		hc = nethttp.DefaultClient
	}
	return &HTTPTransport{client: hc}
}

// Send transmits the request and buffers the whole response body.
func (t *HTTPTransport) Send(ctx context.Context, req *Request) (*Response, error) {
	httpResp, err := t.roundTrip(ctx, req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &TransportError{Fault: FaultConnectionLost, Cause: err}
	}

	return &Response{
		Meta: ResponseMeta{
			StatusCode: httpResp.StatusCode,
			Headers:    httpResp.Header,
		},
		Body: body,
	}, nil
}

// SendStreaming transmits the request and hands back the live body.
func (t *HTTPTransport) SendStreaming(ctx context.Context, req *Request) (*ResponseMeta, io.ReadCloser, error) {
	httpResp, err := t.roundTrip(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	meta := &ResponseMeta{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
	}
	return meta, httpResp.Body, nil
}

func (t *HTTPTransport) roundTrip(ctx context.Context, req *Request) (*nethttp.Response, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := nethttp.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, &TransportError{Fault: FaultOther, Cause: err}
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	httpResp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, classifyNetError(err)
	}
	return httpResp, nil
}

// classifyNetError sorts a net/http failure into the transport fault set.
func classifyNetError(err error) *TransportError {
	fault := FaultOther
	var dnsErr *net.DNSError
	var netErr net.Error
	switch {
	case errors.Is(err, context.Canceled):
		fault = FaultCancelled
	case errors.Is(err, context.DeadlineExceeded):
		fault = FaultTimedOut
	case errors.As(err, &dnsErr):
		fault = FaultDNSFailure
	case errors.As(err, &netErr) && netErr.Timeout():
		fault = FaultTimedOut
	case errors.Is(err, syscall.ECONNREFUSED):
		fault = FaultNoConnection
	case errors.Is(err, syscall.EHOSTUNREACH), errors.Is(err, syscall.ENETUNREACH), errors.Is(err, syscall.ENETDOWN):
		fault = FaultHostUnreachable
	case errors.Is(err, syscall.ECONNRESET), errors.Is(err, syscall.EPIPE), errors.Is(err, io.ErrUnexpectedEOF):
		fault = FaultConnectionLost
	}
	return &TransportError{Fault: fault, Cause: err}
}
