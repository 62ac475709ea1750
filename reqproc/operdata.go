package reqproc

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sysrepo-go/core/notify"
	"github.com/sysrepo-go/core/session"
	"github.com/sysrepo-go/core/value"
)

// pendingOperData tracks one suspended request awaiting operational-data
// provider responses: it is removed either when every provider has
// answered or when the timeout fires, whichever happens first, and is
// resumed exactly once either way.
type pendingOperData struct {
	env       envelope
	sessionID string
	remaining int32
	timer     *time.Timer
}

// maybeSuspend implements the suspension contract: if module
// has any operational-data providers registered for msg.Path, it arms
// the request identity, fans data_provide out, starts the release
// timer, and parks the session in WAITING_FOR_DATA. It reports whether
// the caller suspended (true) or should proceed synchronously (false,
// because there is nothing to wait for).
func (p *Processor) maybeSuspend(ctx context.Context, sess *session.Session, msg *Message, module string) bool {
	providers := p.Notify.Providers(module, msg.Path)
	if len(providers) == 0 {
		return false
	}

	reqID := atomic.AddUint64(&p.requestCounter, 1)
	msg.RequestID = reqID

	pend := &pendingOperData{
		env:       envelope{msg: msg},
		sessionID: sess.ID,
		remaining: int32(len(providers)),
	}
	sess.SetRequestState(session.WaitingForData)

	// The timer is armed before the entry becomes visible, so a provider
	// that answers at once always finds pend.timer set.
	p.pendingMu.Lock()
	p.pending[reqID] = pend
	pend.timer = time.AfterFunc(p.operDataTimeoutDuration(), func() {
		p.operDataTimeout(reqID)
	})
	p.pendingMu.Unlock()

	for _, sub := range providers {
		go func(sub *notify.Subscription) {
			res, err := sub.Destination.NotifyDataProvide(ctx, reqID, msg.Path)
			if err == nil {
				p.applyProvided(sess, res)
			}
			p.providerResponded(reqID)
		}(sub)
	}
	return true
}

func (p *Processor) operDataTimeoutDuration() time.Duration {
	if p.timeout <= 0 {
		return DefaultOperDataTimeout
	}
	return p.timeout
}

// providerResponded decrements the outstanding-provider counter for
// reqID; when it reaches zero the request resumes with whatever data
// arrived.
func (p *Processor) providerResponded(reqID uint64) {
	p.pendingMu.Lock()
	pend, ok := p.pending[reqID]
	if !ok {
		p.pendingMu.Unlock()
		return
	}
	remaining := atomic.AddInt32(&pend.remaining, -1)
	if remaining > 0 {
		p.pendingMu.Unlock()
		return
	}
	delete(p.pending, reqID)
	p.pendingMu.Unlock()

	pend.timer.Stop()
	p.resume(pend)
}

// operDataTimeout fires when the 2-second deadline elapses; the request
// resumes with whatever partial data has already been applied -- a
// timeout with zero provider responses still transitions
// WAITING_FOR_DATA -> DATA_LOADED.
func (p *Processor) operDataTimeout(reqID uint64) {
	p.pendingMu.Lock()
	pend, ok := p.pending[reqID]
	if ok {
		delete(p.pending, reqID)
	}
	p.pendingMu.Unlock()
	if ok {
		operDataTimeouts.Inc()
		p.resume(pend)
	}
}

// resume re-enqueues the parked request with state DATA_LOADED, which
// skips the oper-data check and reuses the now-populated working tree.
func (p *Processor) resume(pend *pendingOperData) {
	sess, ok := p.Session(pend.sessionID)
	if !ok {
		return
	}
	sess.SetRequestState(session.DataLoaded)
	if err := p.q.enqueue(pend.env); err != nil {
		p.log.Warn().Str("session", pend.sessionID).Err(err).Msg("failed to resume oper-data request")
	}
}

// applyProvided writes a provider's values into the session's working
// tree via set_item.
func (p *Processor) applyProvided(sess *session.Session, res notify.DataProvideResult) {
	for _, pv := range res.Values {
		v := valueFromAny(pv.Path, pv.Value)
		if v == nil {
			continue
		}
		if err := p.DM.SetItem(sess, pv.Path, v, 0); err != nil {
			p.log.Debug().Str("path", pv.Path).Err(err).Msg("provider value rejected")
		}
	}
}

// valueFromAny wraps the handful of Go representations an operational
// data provider plausibly returns into a typed value.Value; anything
// richer (identityref, instance-id, decimal64, binary) is the
// provider's own responsibility to hand over pre-typed via a
// *value.Value, which this passes through unchanged.
func valueFromAny(path string, v interface{}) *value.Value {
	switch t := v.(type) {
	case *value.Value:
		return t
	case string:
		return value.NewString(path, t)
	case bool:
		return value.NewBool(path, t)
	case int64:
		return value.NewInt64(path, t)
	case int:
		return value.NewInt64(path, int64(t))
	case uint64:
		return value.NewUint64(path, t)
	default:
		return nil
	}
}
