package reqproc

import (
	"context"

	"github.com/sysrepo-go/core/mgmterror"
)

// envelope pairs a Message with the session it was dispatched for; kept
// distinct from Message because internal re-enqueues (oper-data
// resumption) need to address a parked session without a wire client
// resubmitting anything.
type envelope struct {
	msg *Message
}

// queue is the bounded SPMC ring feeding the worker pool. A buffered channel
// gives non-blocking enqueue (via select/default) and lets the worker
// pool park on a channel receive instead of hand-rolling a
// spin-then-condvar idiom for a C thread pool -- runtime.Gosched-driven
// busy spinning has no equivalent benefit over a channel receive in
// Go's scheduler, so the channel receive itself stands in for "sleep on
// a condvar" and there is nothing to spin on.
type queue struct {
	ch chan envelope
}

func newQueue(capacity int) *queue {
	return &queue{ch: make(chan envelope, capacity)}
}

// enqueue is non-blocking: a full queue reports OperationFailed rather
// than stalling the submitter, matching "enqueue is non-blocking until
// full".
func (q *queue) enqueue(e envelope) error {
	select {
	case q.ch <- e:
		queueDepth.Set(float64(len(q.ch)))
		return nil
	default:
		return mgmterror.NewOperationFailedError("request queue is full")
	}
}

// dequeue blocks until an entry is available or ctx is cancelled.
func (q *queue) dequeue(ctx context.Context) (envelope, bool) {
	select {
	case e := <-q.ch:
		queueDepth.Set(float64(len(q.ch)))
		return e, true
	case <-ctx.Done():
		return envelope{}, false
	}
}
