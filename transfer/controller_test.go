package transfer

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reqwire/reqwire/client"
)

// stubTask records cancellation requests and optionally yields a token.
type stubTask struct {
	mu    sync.Mutex
	calls []bool
	token []byte
}

func (s *stubTask) Cancel(yieldResumeToken bool) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, yieldResumeToken)
	if yieldResumeToken {
		return s.token
	}
	return nil
}

func (s *stubTask) cancelCalls() []bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]bool(nil), s.calls...)
}

func TestControllerFinish(t *testing.T) {
	c := NewController[string](&stubTask{}, nil)
	assert.Equal(t, StateDownloading, c.State())

	c.UpdateProgress(512, 1024)
	c.Finish("/tmp/result.bin")

	assert.Equal(t, StateCompleted, c.State())

	location, err := c.Result(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/tmp/result.bin", location)
}

func TestControllerPauseYieldsResumeToken(t *testing.T) {
	task := &stubTask{token: []byte("resume-state")}
	c := NewController[string](task, nil)

	c.UpdateProgress(100, 1000)

	token, ok := c.Pause()
	require.True(t, ok)
	assert.Equal(t, []byte("resume-state"), token)
	assert.Equal(t, StatePaused, c.State())
	assert.Equal(t, []byte("resume-state"), c.ResumeToken())
	assert.Equal(t, []bool{true}, task.cancelCalls())

	// a paused controller is terminal, so a later cancel does nothing
	c.Cancel()
	assert.Equal(t, StatePaused, c.State())
	assert.Equal(t, []bool{true}, task.cancelCalls())
}

func TestControllerPauseWithoutTokenDegradesToCancelled(t *testing.T) {
	task := &stubTask{token: nil}
	c := NewController[string](task, nil)

	token, ok := c.Pause()
	assert.False(t, ok)
	assert.Nil(t, token)
	assert.Equal(t, StateCancelled, c.State())
}

func TestControllerCancel(t *testing.T) {
	task := &stubTask{token: []byte("would-resume")}
	c := NewController[string](task, nil)

	done := make(chan struct{})
	var resultErr error
	go func() {
		defer close(done)
		_, resultErr = c.Result(context.Background())
	}()

	c.Cancel()
	<-done

	require.Error(t, resultErr)
	assert.True(t, client.IsErrorType(resultErr, client.CancelledError))
	assert.Equal(t, StateCancelled, c.State())
	assert.Equal(t, []bool{false}, task.cancelCalls())
	assert.Nil(t, c.ResumeToken())
}

func TestControllerFailKeepsResumeToken(t *testing.T) {
	c := NewController[string](&stubTask{}, nil)

	cause := &client.TransportError{Fault: client.FaultConnectionLost, Cause: io.ErrUnexpectedEOF}
	c.Fail(cause, []byte("partial"))

	assert.Equal(t, StateFailed, c.State())
	assert.Equal(t, []byte("partial"), c.ResumeToken())

	_, err := c.Result(context.Background())
	require.Error(t, err)
	assert.True(t, client.IsErrorType(err, client.NetworkError))
	assert.True(t, client.IsRetryable(err))
}

func TestControllerTerminalStateIsSticky(t *testing.T) {
	c := NewController[string](&stubTask{}, nil)
	c.Finish("done")

	c.UpdateProgress(999, 1000)
	c.Fail(io.ErrUnexpectedEOF, nil)
	c.Cancel()
	_, ok := c.Pause()

	assert.False(t, ok)
	assert.Equal(t, StateCompleted, c.State())
	assert.Equal(t, Progress{}, c.Progress())

	location, err := c.Result(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "done", location)
}

func TestControllerProgressBroadcastKeepsLatest(t *testing.T) {
	c := NewController[string](&stubTask{}, nil)

	// no consumer; each update overwrites the buffered one
	c.UpdateProgress(10, 100)
	c.UpdateProgress(20, 100)
	c.UpdateProgress(30, 100)

	p := <-c.Updates()
	assert.Equal(t, Progress{BytesTransferred: 30, TotalBytes: 100}, p)
	assert.Equal(t, Progress{BytesTransferred: 30, TotalBytes: 100}, c.Progress())
}

func TestControllerUpdatesChannelClosesOnTerminal(t *testing.T) {
	c := NewController[string](&stubTask{}, nil)
	c.UpdateProgress(50, 100)
	c.Finish("done")

	p, open := <-c.Updates()
	assert.True(t, open)
	assert.Equal(t, int64(50), p.BytesTransferred)

	_, open = <-c.Updates()
	assert.False(t, open)
}

func TestControllerResultSupportsMultipleWaiters(t *testing.T) {
	c := NewController[string](&stubTask{}, nil)

	var wg sync.WaitGroup
	results := make([]string, 3)
	errs := make([]error, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = c.Result(context.Background())
		}()
	}

	time.Sleep(10 * time.Millisecond)
	c.Finish("shared-location")
	wg.Wait()

	for i := 0; i < 3; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "shared-location", results[i])
	}

	// a waiter arriving after resolution sees the same outcome
	late, err := c.Result(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "shared-location", late)
}

func TestControllerResultHonorsWaiterContext(t *testing.T) {
	c := NewController[string](&stubTask{}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Result(ctx)
	require.Error(t, err)
	assert.True(t, client.IsErrorType(err, client.TimeoutError))

	// the controller itself is untouched by the waiter giving up
	assert.Equal(t, StateDownloading, c.State())
}

func TestControllerPausedResultIsCancelled(t *testing.T) {
	task := &stubTask{token: []byte("resume-state")}
	c := NewController[string](task, nil)

	_, ok := c.Pause()
	require.True(t, ok)

	_, err := c.Result(context.Background())
	require.Error(t, err)
	assert.True(t, client.IsErrorType(err, client.CancelledError))
}

func TestProgressFraction(t *testing.T) {
	f, ok := Progress{BytesTransferred: 250, TotalBytes: 1000}.Fraction()
	require.True(t, ok)
	assert.InDelta(t, 0.25, f, 1e-9)

	_, ok = Progress{BytesTransferred: 250}.Fraction()
	assert.False(t, ok)

	_, ok = Progress{BytesTransferred: 250, TotalBytes: -1}.Fraction()
	assert.False(t, ok)
}
