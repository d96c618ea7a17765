package interceptor

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/reqwire/reqwire/client"
)

// RateLimit returns a request interceptor that paces attempts through the
// given limiter. Every attempt, including reattempts, acquires one token;
// waiting is cooperative and ends with the context.
func RateLimit(limiter *rate.Limiter) client.RequestInterceptor {
	return func(ctx context.Context, req *client.Request, attempt *client.AttemptContext) (*client.Request, error) {
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	}
}
