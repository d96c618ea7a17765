// Package client implements the request-execution core: it drives one
// logical request through 1..N attempts, threading every attempt through
// the request and response interceptor chains, classifying the outcome
// against the error taxonomy, and sleeping between attempts per the
// retry policy. The actual byte transfer is delegated to a Transport.
package client

import (
	"context"
	"errors"
	"time"

	"github.com/reqwire/reqwire/logger"
)

// Client holds the pieces shared by all invocations: the transport, the
// default retry policy, default headers, and the interceptor chains.
// Client itself is stateless between invocations and safe for concurrent
// use by multiple goroutines.
type Client struct {
	transport            Transport
	logger               logger.Logger
	retry                RetryPolicy
	defaultHeaders       map[string]string
	requestInterceptors  []RequestInterceptor
	responseInterceptors []ResponseInterceptor
}

// NewClient creates a client with the default configuration.
func NewClient(transport Transport, log logger.Logger) *Client {
	return NewBuilder(log).WithTransport(transport).Build()
}

// Builder provides a fluent interface for configuring a Client
type Builder struct {
	client Client
}

// NewBuilder creates a new client builder
func NewBuilder(log logger.Logger) *Builder {
	return &Builder{
		client: Client{
			logger:         log,
			retry:          DefaultRetryPolicy,
			defaultHeaders: make(map[string]string),
		},
	}
}

// WithTransport sets the transport used to send requests
func (b *Builder) WithTransport(t Transport) *Builder {
	b.client.transport = t
	return b
}

// WithRetryPolicy sets the default retry policy; descriptors may override it
func (b *Builder) WithRetryPolicy(p RetryPolicy) *Builder {
	b.client.retry = p
	return b
}

// WithDefaultHeader adds a header sent with every request
func (b *Builder) WithDefaultHeader(key, value string) *Builder {
	b.client.defaultHeaders[key] = value
	return b
}

// WithRequestInterceptor appends a request interceptor; interceptors run
// in registration order
func (b *Builder) WithRequestInterceptor(i RequestInterceptor) *Builder {
	b.client.requestInterceptors = append(b.client.requestInterceptors, i)
	return b
}

// WithResponseInterceptor appends a response interceptor; interceptors run
// in registration order
func (b *Builder) WithResponseInterceptor(i ResponseInterceptor) *Builder {
	b.client.responseInterceptors = append(b.client.responseInterceptors, i)
	return b
}

// Build creates the configured client
func (b *Builder) Build() *Client {
	c := b.client
	return &c
}

// Do drives one logical invocation of the descriptor to completion,
// retrying per the effective retry policy. It returns the decoded success
// value or exactly one taxonomy error.
//
// Cancellation is cooperative: the context is consulted before every
// attempt, around every sleep, and by the transport during I/O. A
// cancelled invocation always reports CancelledError, never a partial
// success.
func Do[S, F any](ctx context.Context, c *Client, d *Descriptor[S, F]) (S, error) {
	var zero S
	if c.transport == nil {
		return zero, NewInvalidRequestError("client has no transport")
	}

	policy := c.retry
	if d.Retry != nil {
		policy = *d.Retry
	}
	correlationID := EnsureCorrelationID(ctx)

	for attempt := 0; ; attempt++ {
		if err := ctxError(ctx); err != nil {
			return zero, err
		}

		attemptCtx := &AttemptContext{
			Path:          d.Path,
			Method:        d.Method,
			Attempt:       attempt,
			CorrelationID: correlationID,
		}

		req, err := d.request(c.defaultHeaders)
		if err != nil {
			return zero, err
		}
		c.logRequest(attemptCtx, req)

		var attemptErr Error
		retryRequested := false

		req, ierr := c.runRequestInterceptors(ctx, req, attemptCtx)
		switch {
		case errors.Is(ierr, ErrRetryRequested):
			retryRequested = true
		case ierr != nil:
			return zero, mapInterceptorError(ierr)
		default:
			start := time.Now()
			resp, serr := c.transport.Send(ctx, req)
			if serr != nil {
				attemptErr = ClassifyTransportError(serr)
				break
			}
			attemptCtx.Elapsed = time.Since(start)

			body, meta, perr := c.runResponseInterceptors(ctx, resp.Body, &resp.Meta, attemptCtx)
			switch {
			case errors.Is(perr, ErrRetryRequested):
				retryRequested = true
			case perr != nil:
				return zero, mapInterceptorError(perr)
			case d.Success.Contains(meta.StatusCode):
				s, derr := d.decodeSuccess()(body, meta)
				if derr != nil {
					return zero, NewDecodingError(derr, body)
				}
				c.logResponse(attemptCtx, meta.StatusCode, len(body))
				return s, nil
			default:
				var failureBody any
				if f, ferr := d.decodeFailure()(body, meta); ferr == nil {
					failureBody = f
				}
				attemptErr = NewServerError(meta.StatusCode, failureBody, body)
			}
		}

		if attempt < policy.MaxRetries && (retryRequested || IsRetryable(attemptErr)) {
			c.logRetry(attemptCtx, attemptErr, policy.Delay(attempt))
			if err := sleep(ctx, policy.Delay(attempt)); err != nil {
				return zero, err
			}
			continue
		}
		if retryRequested {
			return zero, NewUnexpectedResponseError("retries exhausted while a retry was requested")
		}
		c.logFailure(attemptCtx, attemptErr)
		return zero, attemptErr
	}
}

// runRequestInterceptors executes the request interceptors in registration
// order, each seeing the previous one's output.
func (c *Client) runRequestInterceptors(ctx context.Context, req *Request, attempt *AttemptContext) (*Request, error) {
	for _, interceptor := range c.requestInterceptors {
		next, err := interceptor(ctx, req, attempt)
		if err != nil {
			return nil, err
		}
		if next != nil {
			req = next
		}
	}
	return req, nil
}

// runResponseInterceptors executes the response interceptors in
// registration order, each seeing the previous one's output.
func (c *Client) runResponseInterceptors(ctx context.Context, body []byte, meta *ResponseMeta, attempt *AttemptContext) ([]byte, *ResponseMeta, error) {
	for _, interceptor := range c.responseInterceptors {
		nextBody, nextMeta, err := interceptor(ctx, body, meta, attempt)
		if err != nil {
			return nil, nil, err
		}
		if nextBody != nil {
			body = nextBody
		}
		if nextMeta != nil {
			meta = nextMeta
		}
	}
	return body, meta, nil
}

// ctxError translates a context state into the taxonomy: a deadline is a
// timeout, any other cancellation is cancelled.
func ctxError(ctx context.Context) Error {
	switch ctx.Err() {
	case nil:
		return nil
	case context.DeadlineExceeded:
		return NewTimeoutError(ctx.Err())
	default:
		return NewCancelledError(ctx.Err())
	}
}

// ClassifyTransportError maps a transport failure onto the taxonomy via
// the fixed fault table.
func ClassifyTransportError(err error) Error {
	var te *TransportError
	if errors.As(err, &te) {
		switch te.Fault {
		case FaultCancelled:
			return NewCancelledError(err)
		case FaultTimedOut:
			return NewTimeoutError(err)
		case FaultNoConnection, FaultHostUnreachable, FaultDNSFailure:
			return NewOfflineError(te.Fault, err)
		default:
			return NewNetworkError("request execution failed", err)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError(err)
	}
	if errors.Is(err, context.Canceled) {
		return NewCancelledError(err)
	}
	return NewNetworkError("request execution failed", err)
}

// mapInterceptorError maps a terminal interceptor fault onto the taxonomy.
// Taxonomy members pass through; cancellations stay cancellations;
// everything else is an unclassified network fault.
func mapInterceptorError(err error) error {
	var clientErr Error
	if errors.As(err, &clientErr) {
		return clientErr
	}
	if errors.Is(err, context.Canceled) {
		return NewCancelledError(err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError(err)
	}
	return NewNetworkError("interceptor failed", err)
}

// sleep blocks for the backoff delay, re-checking cancellation immediately
// before and after the wait.
func sleep(ctx context.Context, d time.Duration) Error {
	if err := ctxError(ctx); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		return ctxError(ctx)
	}
	return ctxError(ctx)
}

func (c *Client) logRequest(attempt *AttemptContext, req *Request) {
	if c.logger == nil {
		return
	}
	c.logger.Debug().
		Str("direction", "outbound").
		Str("method", req.Method).
		Str("url", req.URL).
		Int("attempt", attempt.Attempt).
		Str("correlation_id", attempt.CorrelationID).
		Msg("client request")
}

func (c *Client) logResponse(attempt *AttemptContext, statusCode, bodyLen int) {
	if c.logger == nil {
		return
	}
	c.logger.Info().
		Str("direction", "inbound").
		Str("method", attempt.Method).
		Str("path", attempt.Path).
		Int("status", statusCode).
		Int("body_bytes", bodyLen).
		Int("attempt", attempt.Attempt).
		Dur("elapsed", attempt.Elapsed).
		Str("correlation_id", attempt.CorrelationID).
		Msg("client response")
}

func (c *Client) logRetry(attempt *AttemptContext, err Error, delay time.Duration) {
	if c.logger == nil {
		return
	}
	event := c.logger.Warn().
		Str("method", attempt.Method).
		Str("path", attempt.Path).
		Int("attempt", attempt.Attempt).
		Dur("delay", delay).
		Str("correlation_id", attempt.CorrelationID)
	if err != nil {
		event = event.Err(err)
	}
	event.Msg("client retrying")
}

func (c *Client) logFailure(attempt *AttemptContext, err Error) {
	if c.logger == nil {
		return
	}
	c.logger.Error().
		Str("method", attempt.Method).
		Str("path", attempt.Path).
		Int("attempt", attempt.Attempt).
		Str("correlation_id", attempt.CorrelationID).
		Err(err).
		Msg("client request failed")
}
