package client

import (
	"context"
	"io"
	nethttp "net/http"

	"golang.org/x/sync/singleflight"
)

// collapseTransport deduplicates concurrent identical idempotent sends:
// while one GET or HEAD for a given method+URL is in flight, further
// callers wait for and share its result instead of hitting the wire.
type collapseTransport struct {
	inner Transport
	group singleflight.Group
}

// NewCollapseTransport wraps a transport with in-flight request collapsing
// for GET and HEAD. Other methods, and all streaming sends, pass through
// untouched. Shared responses must be treated as read-only by callers.
func NewCollapseTransport(inner Transport) Transport {
	return &collapseTransport{inner: inner}
}

func (t *collapseTransport) Send(ctx context.Context, req *Request) (*Response, error) {
	if req.Method != nethttp.MethodGet && req.Method != nethttp.MethodHead {
		return t.inner.Send(ctx, req)
	}

	key := req.Method + " " + req.URL
	v, err, _ := t.group.Do(key, func() (any, error) {
		return t.inner.Send(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	// Shallow copy so each caller gets its own Response header struct.
	resp := *(v.(*Response))
	return &resp, nil
}

// SendStreaming never collapses: a live byte source has a single consumer.
func (t *collapseTransport) SendStreaming(ctx context.Context, req *Request) (*ResponseMeta, io.ReadCloser, error) {
	return t.inner.SendStreaming(ctx, req)
}
