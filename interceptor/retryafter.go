// Package interceptor provides stock interceptors for the request-execution
// core. They conform to the same contracts as any caller-supplied
// interceptor and are opaque to the orchestrator.
package interceptor

import (
	"context"
	nethttp "net/http"
	"strconv"
	"time"

	"github.com/reqwire/reqwire/client"
)

// DefaultRetryAfterCap bounds how long the Retry-After interceptor sleeps
// regardless of what the server asked for.
const DefaultRetryAfterCap = 30 * time.Second

// RetryAfter returns a response interceptor that honors HTTP 429 throttle
// responses: it parses the Retry-After header (integer seconds or an
// HTTP-date), sleeps min(parsed, cap) cooperatively, then signals the
// orchestrator to retry the attempt. Responses other than 429 pass
// through untouched.
func RetryAfter(cap time.Duration) client.ResponseInterceptor {
	if cap <= 0 {
		cap = DefaultRetryAfterCap
	}
	return func(ctx context.Context, body []byte, meta *client.ResponseMeta, attempt *client.AttemptContext) ([]byte, *client.ResponseMeta, error) {
		if meta.StatusCode != nethttp.StatusTooManyRequests {
			return body, meta, nil
		}

		delay := parseRetryAfter(meta.Headers.Get("Retry-After"))
		if delay > cap {
			delay = cap
		}
		if delay > 0 {
			timer := time.NewTimer(delay)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-ctx.Done():
				return nil, nil, ctx.Err()
			}
		}
		return nil, nil, client.ErrRetryRequested
	}
}

// parseRetryAfter returns the requested wait, or zero when the header is
// absent, malformed, or points to the past.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := nethttp.ParseTime(value); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
