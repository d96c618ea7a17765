package interceptor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reqwire/reqwire/client"
)

func TestCorrelationStampsHeader(t *testing.T) {
	ic := Correlation("")

	req := &client.Request{Method: "GET", URL: "https://api.test/x"}
	attempt := &client.AttemptContext{CorrelationID: "corr-1"}

	next, err := ic(context.Background(), req, attempt)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, "corr-1", next.Headers[DefaultCorrelationHeader])

	// the original request is untouched
	assert.Empty(t, req.Headers[DefaultCorrelationHeader])
}

func TestCorrelationExistingHeaderWins(t *testing.T) {
	ic := Correlation("X-Trace")

	req := &client.Request{
		Method:  "GET",
		URL:     "https://api.test/x",
		Headers: map[string]string{"X-Trace": "upstream-id"},
	}

	next, err := ic(context.Background(), req, &client.AttemptContext{CorrelationID: "corr-2"})
	require.NoError(t, err)
	assert.Nil(t, next)
	assert.Equal(t, "upstream-id", req.Headers["X-Trace"])
}
