package client

import (
	"context"
	"errors"
	"io"

	"github.com/reqwire/reqwire/stream"
)

// failureBodyCap bounds how much of a non-success streaming body is
// buffered for failure decoding.
const failureBodyCap = 1_000_000

// Stream is the client-facing view of a decoded byte stream. It wraps the
// raw decoder so that every terminal error surfaces as exactly one
// taxonomy member.
type Stream[T any] struct {
	inner *stream.Stream[T]
	err   error
}

// Next returns the next decoded element, io.EOF at normal exhaustion, or
// a terminal taxonomy error repeated on every subsequent call.
func (s *Stream[T]) Next() (T, error) {
	var zero T
	if s.err != nil {
		return zero, s.err
	}
	v, err := s.inner.Next()
	if err != nil && err != io.EOF {
		err = mapStreamError(err)
		s.err = err
	}
	if err != nil {
		return zero, err
	}
	return v, nil
}

// Close releases the underlying byte source early.
func (s *Stream[T]) Close() error {
	return s.inner.Close()
}

// DoStream performs a streaming invocation of the descriptor: the request
// is built and threaded through the request interceptors once, the
// transport hands back a live byte source, and the source is decoded
// lazily with the given strategy.
//
// If the response status falls outside the descriptor's success range, the
// body is buffered (capped) for failure decoding and a server error is
// returned; line decoding never starts.
//
// The descriptor's DecodeSuccess is not used; elements are produced by the
// strategy.
func DoStream[T, F any](ctx context.Context, c *Client, d *Descriptor[T, F], strategy stream.Strategy[T]) (*Stream[T], error) {
	if c.transport == nil {
		return nil, NewInvalidRequestError("client has no transport")
	}
	if err := ctxError(ctx); err != nil {
		return nil, err
	}

	attemptCtx := &AttemptContext{
		Path:          d.Path,
		Method:        d.Method,
		Attempt:       0,
		CorrelationID: EnsureCorrelationID(ctx),
	}

	req, err := d.request(c.defaultHeaders)
	if err != nil {
		return nil, err
	}
	c.logRequest(attemptCtx, req)

	req, ierr := c.runRequestInterceptors(ctx, req, attemptCtx)
	if ierr != nil {
		if errors.Is(ierr, ErrRetryRequested) {
			return nil, NewUnexpectedResponseError("retry requested on a streaming invocation")
		}
		return nil, mapInterceptorError(ierr)
	}

	meta, body, serr := c.transport.SendStreaming(ctx, req)
	if serr != nil {
		return nil, ClassifyTransportError(serr)
	}

	if !d.Success.Contains(meta.StatusCode) {
		defer body.Close()
		raw, rerr := io.ReadAll(io.LimitReader(body, failureBodyCap))
		if rerr != nil {
			return nil, NewNetworkError("failed to read failure body", rerr)
		}
		var failureBody any
		if f, ferr := d.decodeFailure()(raw, meta); ferr == nil {
			failureBody = f
		}
		srvErr := NewServerError(meta.StatusCode, failureBody, raw)
		c.logFailure(attemptCtx, srvErr)
		return nil, srvErr
	}

	c.logResponse(attemptCtx, meta.StatusCode, 0)
	return &Stream[T]{inner: stream.Decode(ctx, body, strategy)}, nil
}

// mapStreamError maps a raw stream failure onto the taxonomy.
func mapStreamError(err error) error {
	var de *stream.DecodeError
	if errors.As(err, &de) {
		return NewDecodingError(err, nil)
	}
	return ClassifyTransportError(err)
}
