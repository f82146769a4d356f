// Package trigger implements a one-to-many, level-triggered boolean
// fan-out used throughout the runtime for termination signalling.
//
// A closed Go channel is the idiomatic level-triggered broadcast: every
// receiver, whether it was already selecting on the channel or starts
// selecting on it after the close, observes the close immediately and
// forever after. That is exactly the semantics spec.md requires of a
// pulled Trigger, so Trigger is built directly on top of it rather than
// on a condition variable or a watch-style value channel.
package trigger

import (
	"sync"

	"github.com/webitel/eee-runtime/internal/errors"
)

// Trigger is pulled exactly once to signal termination to every listener.
type Trigger struct {
	mu     sync.Mutex
	done   chan struct{}
	pulled bool
	closed bool
}

// New constructs an armed=false Trigger.
func New() *Trigger {
	return &Trigger{done: make(chan struct{})}
}

// Handle is a listener reference any task can poll. Multiple handles may
// exist for one Trigger; they all observe the same pull.
type Handle struct {
	done chan struct{}
}

// Handle returns a new listener for this Trigger.
func (t *Trigger) Handle() Handle {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Handle{done: t.done}
}

// Done returns the channel a poll loop selects on. It is closed once the
// Trigger is pulled, and reads as closed (Pulled==true) forever after,
// including for Handles created after the pull.
func (h Handle) Done() <-chan struct{} { return h.done }

// Pulled is a non-blocking observer equivalent to polling Done() once.
func (h Handle) Pulled() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Pull sets the trigger to true and wakes every listener exactly once for
// that transition. Repeated Pull calls are no-ops. Pull only fails if the
// Trigger was already torn down via Close.
func (t *Trigger) Pull() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return errors.TriggerSend(errClosed)
	}
	if !t.pulled {
		t.pulled = true
		close(t.done)
	}
	return nil
}

// Close tears down the broadcaster without pulling it. Any Handle's Done()
// channel is left open (never pulled); subsequent Pull calls fail. Close
// exists for test teardown of triggers whose Pull is expected never to
// fire.
func (t *Trigger) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
}

var errClosed = errStr("trigger broadcaster torn down before pull")

type errStr string

func (e errStr) Error() string { return string(e) }
