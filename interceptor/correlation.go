package interceptor

import (
	"context"

	"github.com/reqwire/reqwire/client"
)

// DefaultCorrelationHeader is the header used when none is configured.
const DefaultCorrelationHeader = "X-Request-ID"

// Correlation returns a request interceptor that stamps the attempt's
// correlation ID onto outgoing requests. An already-present header wins,
// so callers can propagate upstream IDs untouched.
func Correlation(header string) client.RequestInterceptor {
	if header == "" {
		header = DefaultCorrelationHeader
	}
	return func(ctx context.Context, req *client.Request, attempt *client.AttemptContext) (*client.Request, error) {
		if _, ok := req.Headers[header]; ok {
			return nil, nil
		}
		next := req.Clone()
		next.Headers[header] = attempt.CorrelationID
		return next, nil
	}
}
