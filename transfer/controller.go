// Package transfer manages long-running, pausable transfers. A Controller
// is an exclusive-access state object owning the transfer's state machine,
// a progress broadcast channel, and a result future. It is mutated only by
// transport callbacks and the two caller operations Pause and Cancel.
package transfer

import (
	"context"
	"sync"

	"github.com/reqwire/reqwire/client"
	"github.com/reqwire/reqwire/logger"
)

// State is the transfer state machine. Every state except Downloading is
// terminal for a given controller instance.
type State string

const (
	StateDownloading State = "downloading"
	StatePaused      State = "paused"
	StateCompleted   State = "completed"
	StateFailed      State = "failed"
	StateCancelled   State = "cancelled"
)

// Terminal reports whether the state permits no further transitions.
func (s State) Terminal() bool {
	return s != StateDownloading
}

// Task is the transport-side handle of one transfer. Cancel stops the
// underlying transfer; when yieldResumeToken is true the transport returns
// resume state if it can produce one, letting a later transfer restart
// without re-transferring completed bytes.
type Task interface {
	Cancel(yieldResumeToken bool) []byte
}

// Controller serializes all transfer events through one mutex-guarded
// state struct. The transport drives it via UpdateProgress, Finish, and
// Fail; the caller observes it via Updates and Result and may Pause or
// Cancel it. L is the opaque result location type agreed between caller
// and transport.
type Controller[L any] struct {
	mu          sync.Mutex
	log         logger.Logger
	task        Task
	state       State
	progress    Progress
	resumeToken []byte
	location    L
	err         error

	// updates is a latest-wins broadcast; done resolves the result future.
	updates chan Progress
	done    chan struct{}
}

// NewController starts a controller in the Downloading state, owning the
// given task handle. The logger may be nil.
func NewController[L any](task Task, log logger.Logger) *Controller[L] {
	return &Controller[L]{
		log:     log,
		task:    task,
		state:   StateDownloading,
		updates: make(chan Progress, 1),
		done:    make(chan struct{}),
	}
}

// State returns the current state.
func (c *Controller[L]) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Progress returns the most recent progress observation.
func (c *Controller[L]) Progress() Progress {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progress
}

// ResumeToken returns the resume state captured by a pause or a failure,
// if the transport produced one.
func (c *Controller[L]) ResumeToken() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resumeToken
}

// UpdateProgress is the transport's periodic progress callback. It updates
// the stored progress and broadcasts it; against a terminal state it is a
// no-op. The broadcast never blocks the callback: a slow consumer only
// ever misses intermediate observations, not the latest one.
func (c *Controller[L]) UpdateProgress(bytesTransferred, totalBytes int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Terminal() {
		return
	}
	p := Progress{BytesTransferred: bytesTransferred, TotalBytes: totalBytes}
	c.progress = p

	select {
	case c.updates <- p:
	default:
		// drop the stale value, then try once more
		select {
		case <-c.updates:
		default:
		}
		select {
		case c.updates <- p:
		default:
		}
	}
}

// Finish is the transport's completion callback: the transfer result is
// resolved with the location and the progress channel closes.
func (c *Controller[L]) Finish(location L) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Terminal() {
		return
	}
	c.state = StateCompleted
	c.location = location
	c.logTransition()
	c.terminateLocked()
}

// Fail is the transport's failure callback: the result future rejects with
// the classified error. A resume token, when the transport salvaged one,
// stays available through ResumeToken for a caller-driven restart; the
// controller itself never retries.
func (c *Controller[L]) Fail(err error, resumeToken []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Terminal() {
		return
	}
	c.state = StateFailed
	c.err = client.ClassifyTransportError(err)
	c.resumeToken = resumeToken
	c.logTransition()
	c.terminateLocked()
}

// Pause cooperatively stops the transfer, asking the transport to yield
// resume state rather than discard progress. If the transport yields a
// token the controller parks in Paused and returns it; otherwise the
// transfer degrades to Cancelled. Against a terminal state Pause is a
// no-op returning (nil, false).
func (c *Controller[L]) Pause() ([]byte, bool) {
	c.mu.Lock()
	if c.state.Terminal() {
		c.mu.Unlock()
		return nil, false
	}
	task := c.task
	c.mu.Unlock()

	// The task may invoke Fail concurrently; the terminal re-check below
	// resolves that race in favor of whoever transitioned first.
	var token []byte
	if task != nil {
		token = task.Cancel(true)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Terminal() {
		return nil, false
	}
	if token != nil {
		c.state = StatePaused
		c.resumeToken = token
	} else {
		c.state = StateCancelled
	}
	c.err = client.NewCancelledError(nil)
	c.logTransition()
	c.terminateLocked()
	return token, token != nil
}

// Cancel stops the transfer and discards progress. Against a terminal
// state it is a no-op.
func (c *Controller[L]) Cancel() {
	c.mu.Lock()
	if c.state.Terminal() {
		c.mu.Unlock()
		return
	}
	task := c.task
	c.mu.Unlock()

	if task != nil {
		task.Cancel(false)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Terminal() {
		return
	}
	c.state = StateCancelled
	c.err = client.NewCancelledError(nil)
	c.logTransition()
	c.terminateLocked()
}

// Updates returns the progress broadcast channel. It is consume-once and
// closes on any terminal transition; a controller that is already terminal
// yields an immediately closed channel.
func (c *Controller[L]) Updates() <-chan Progress {
	return c.updates
}

// Result blocks until the transfer reaches a terminal state, then returns
// the location for a completed transfer or the stored taxonomy error for
// any other outcome. It returns immediately when already terminal, may be
// called by any number of waiters, and returns the identical outcome on
// every call.
func (c *Controller[L]) Result(ctx context.Context) (L, error) {
	var zero L
	select {
	case <-c.done:
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return zero, client.NewTimeoutError(ctx.Err())
		}
		return zero, client.NewCancelledError(ctx.Err())
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateCompleted {
		return c.location, nil
	}
	return zero, c.err
}

// terminateLocked releases the task handle and resolves the futures.
// Callers must hold mu and have set the terminal state first.
func (c *Controller[L]) terminateLocked() {
	c.task = nil
	close(c.updates)
	close(c.done)
}

func (c *Controller[L]) logTransition() {
	if c.log == nil {
		return
	}
	event := c.log.Info().
		Str("state", string(c.state)).
		Int64("bytes", c.progress.BytesTransferred)
	if c.err != nil {
		event = event.Err(c.err)
	}
	event.Msg("transfer state changed")
}
