package reqproc

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/sysrepo-go/core/access"
	"github.com/sysrepo-go/core/commitstore"
	"github.com/sysrepo-go/core/datamanager"
	"github.com/sysrepo-go/core/lockset"
	"github.com/sysrepo-go/core/mgmterror"
	"github.com/sysrepo-go/core/notify"
	"github.com/sysrepo-go/core/session"
)

// DefaultWorkers matches "a thread pool of 4" as the default sizing.
const DefaultWorkers = 4

// DefaultOperDataTimeout is the 2-second operational-data suspension
// deadline.
const DefaultOperDataTimeout = 2 * time.Second

// DefaultQueueDepth bounds the SPMC ring feeding the worker pool.
const DefaultQueueDepth = 256

// Processor is the Request Processor (C7). One Processor is owned by a
// CoreRuntime and shared by every connection's worker goroutines, the
// way Srv owns one SessionMgr/CommitMgr pair for the whole
// daemon (danos-configd server/server.go).
type Processor struct {
	log zerolog.Logger

	DM      *datamanager.Manager
	Notify  *notify.Processor
	Commits *commitstore.Store
	Locks   *lockset.Set

	q      *queue
	latch  sync.RWMutex // commit latch: shared for reads/edits, exclusive for commit
	timeout time.Duration

	mu             sync.Mutex
	sessions       map[string]*session.Session
	requestCounter uint64

	pendingMu sync.Mutex
	pending   map[uint64]*pendingOperData
}

func NewProcessor(dm *datamanager.Manager, np *notify.Processor, commits *commitstore.Store, locks *lockset.Set, log zerolog.Logger) *Processor {
	return &Processor{
		log:      log.With().Str("component", "reqproc").Logger(),
		DM:       dm,
		Notify:   np,
		Commits:  commits,
		Locks:    locks,
		q:        newQueue(DefaultQueueDepth),
		timeout:  DefaultOperDataTimeout,
		sessions: make(map[string]*session.Session),
		pending:  make(map[uint64]*pendingOperData),
	}
}

// Run starts the fixed-size worker pool and blocks until ctx is
// cancelled or a worker returns a non-nil error.
func (p *Processor) Run(ctx context.Context, workers int) error {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			p.workerLoop(ctx)
			return nil
		})
	}
	return g.Wait()
}

func (p *Processor) workerLoop(ctx context.Context) {
	for {
		e, ok := p.q.dequeue(ctx)
		if !ok {
			return
		}
		p.handle(ctx, e)
	}
}

// Submit enqueues msg and blocks for its reply, standing in for the
// wire-transport boundary this core leaves to its caller: whatever
// accepts connections and frames messages calls Submit once it has
// decoded a request.
func (p *Processor) Submit(ctx context.Context, msg *Message) *Response {
	msg.reply = make(chan *Response, 1)
	if err := p.q.enqueue(envelope{msg: msg}); err != nil {
		return &Response{Errs: []error{err}}
	}
	select {
	case resp := <-msg.reply:
		return resp
	case <-ctx.Done():
		return &Response{Errs: []error{mgmterror.NewTimeoutError("request cancelled")}}
	}
}

// CreateSession registers a new session and returns it (session_start).
func (p *Processor) CreateSession(id string, creds access.Identity, opts session.Options) *session.Session {
	sess := session.New(id, creds)
	sess.Options = opts
	p.mu.Lock()
	p.sessions[id] = sess
	p.mu.Unlock()
	return sess
}

// RegisterNotificationSession installs a read-only session bound to a
// commit id.
func (p *Processor) RegisterNotificationSession(id string, commitID uint32) *session.Session {
	sess := session.NewNotificationSession(id, commitID)
	p.mu.Lock()
	p.sessions[id] = sess
	p.mu.Unlock()
	return sess
}

// SetOperDataTimeout overrides the default 2-second suspension deadline,
// for deployments that configure a different value.
func (p *Processor) SetOperDataTimeout(d time.Duration) {
	if d > 0 {
		p.timeout = d
	}
}

func (p *Processor) Session(id string) (*session.Session, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	sess, ok := p.sessions[id]
	return sess, ok
}

// StopSession removes a session and releases any locks it still held,
// releasing them automatically when a session terminates. Dropping the
// wire destination's own subscriptions is the transport layer's job
// (wire framing stays outside this core) and happens via
// UnsubscribeDestination once the transport learns the connection
// closed.
func (p *Processor) StopSession(id string) {
	p.mu.Lock()
	delete(p.sessions, id)
	p.mu.Unlock()
	p.Locks.ReleaseAll(id)
}
