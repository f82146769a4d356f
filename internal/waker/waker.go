// Package waker implements a coalesced re-scheduling handle for a
// cooperatively suspended goroutine.
//
// spec.md models a Waker as something a poll loop registers with on every
// poll and any other task notifies to schedule another poll, with multiple
// notifies between polls collapsing into one resumption. The direct Go
// analogue is a channel of capacity 1 written to with a non-blocking send:
// a full channel means a wakeup is already pending, so further notifies
// are free to drop.
package waker

// Waker reschedules a suspended task. The zero value is not usable; use
// New.
type Waker struct {
	state *state
}

type state struct {
	c chan struct{}
}

// New constructs an idle Waker.
func New() Waker {
	return Waker{state: &state{c: make(chan struct{}, 1)}}
}

// C returns the channel a poll loop selects on in place of calling
// register(): a receive from C is "the Waker fired, re-poll".
func (w Waker) C() <-chan struct{} { return w.state.c }

// Notify schedules the owning task for another poll. Multiple notifies
// between polls coalesce into a single resumption.
func (w Waker) Notify() {
	select {
	case w.state.c <- struct{}{}:
	default:
	}
}
