package notify

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sysrepo-go/core/datatree"
	"github.com/sysrepo-go/core/mgmterror"
)

// Processor is the Notification Processor (C5).
type Processor struct {
	log zerolog.Logger

	mu        sync.RWMutex
	byModule  map[string][]*Subscription
	byKind    map[Kind][]*Subscription
	byID      map[string]*Subscription

	acksMu sync.Mutex
	acks   map[uint32]*ackState
}

type ackState struct {
	pending   int
	released  func()
	startedAt time.Time
}

func NewProcessor(log zerolog.Logger) *Processor {
	return &Processor{
		log:      log.With().Str("component", "notify").Logger(),
		byModule: make(map[string][]*Subscription),
		byKind:   make(map[Kind][]*Subscription),
		byID:     make(map[string]*Subscription),
		acks:     make(map[uint32]*ackState),
	}
}

// Subscribe registers a subscription and returns its assigned id.
func (p *Processor) Subscribe(kind Kind, module, xpath string, dest Destination, priority int, flags Flags, filter EventFilter, priv interface{}) *Subscription {
	sub := &Subscription{
		ID: newID(), Kind: kind, Module: module, XPath: xpath,
		Destination: dest, Priority: priority, Flags: flags,
		EventFilter: filter, PrivateCtx: priv,
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.byModule[module] = append(p.byModule[module], sub)
	p.byKind[kind] = append(p.byKind[kind], sub)
	p.byID[sub.ID] = sub
	return sub
}

func (p *Processor) Unsubscribe(kind Kind, destination Destination, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	sub, ok := p.byID[id]
	if !ok {
		return mgmterror.NewNotFoundError("subscription %s", id)
	}
	delete(p.byID, id)
	p.byModule[sub.Module] = removeSub(p.byModule[sub.Module], sub)
	p.byKind[sub.Kind] = removeSub(p.byKind[sub.Kind], sub)
	return nil
}

// UnsubscribeDestination drops every subscription owned by dest, for the
// internal unsubscribe_destination request fired when a connection
// drops.
func (p *Processor) UnsubscribeDestination(dest Destination) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, sub := range p.byID {
		if sub.Destination == dest {
			delete(p.byID, id)
			p.byModule[sub.Module] = removeSub(p.byModule[sub.Module], sub)
			p.byKind[sub.Kind] = removeSub(p.byKind[sub.Kind], sub)
		}
	}
}

func removeSub(subs []*Subscription, target *Subscription) []*Subscription {
	out := subs[:0]
	for _, s := range subs {
		if s != target {
			out = append(out, s)
		}
	}
	return out
}

// ModuleSubscriptions returns a priority-sorted (descending) snapshot of
// a module's subscriptions matching filter, for CommitContext
// construction.
func (p *Processor) ModuleSubscriptions(module string, filter EventFilter) []*Subscription {
	p.mu.RLock()
	defer p.mu.RUnlock()
	src := p.byModule[module]
	out := make([]*Subscription, 0, len(src))
	for _, s := range src {
		if s.EventFilter&filter != 0 {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })
	return out
}

// NotifyCommitVerify delivers the verify phase to module's verifier
// subscriptions in strict descending priority; any negative
// acknowledgement aborts the commit.
func (p *Processor) NotifyCommitVerify(ctx context.Context, commitID uint32, module string, changes []datatree.ChangeRecord) error {
	subs := p.ModuleSubscriptions(module, FilterVerify)
	for _, sub := range subs {
		if sub.Destination == nil {
			continue
		}
		if err := sub.Destination.NotifyVerify(ctx, commitID, module, changes); err != nil {
			p.log.Debug().Str("module", module).Str("sub", sub.ID).Err(err).Msg("verifier rejected commit")
			return err
		}
	}
	return nil
}

// NotifyCommitApply fans out the apply phase fire-and-forget, tracking
// pending acks; released is invoked once every subscriber has
// acknowledged or the release timeout elsewhere fires first.
func (p *Processor) NotifyCommitApply(ctx context.Context, commitID uint32, modules []string, changesByModule map[string][]datatree.ChangeRecord, released func()) {
	var subs []*Subscription
	for _, m := range modules {
		subs = append(subs, p.ModuleSubscriptions(m, FilterApply)...)
	}
	sort.SliceStable(subs, func(i, j int) bool { return subs[i].Priority > subs[j].Priority })

	if len(subs) == 0 {
		released()
		return
	}

	p.acksMu.Lock()
	p.acks[commitID] = &ackState{pending: len(subs), released: released, startedAt: time.Now()}
	p.acksMu.Unlock()

	for _, sub := range subs {
		go func(sub *Subscription) {
			if sub.Destination != nil {
				if err := sub.Destination.NotifyApply(ctx, commitID, sub.Module, changesByModule[sub.Module]); err != nil {
					p.log.Warn().Str("sub", sub.ID).Err(err).Msg("apply delivery failed")
				}
			}
			p.ackCommit(commitID)
		}(sub)
	}
}

func (p *Processor) ackCommit(commitID uint32) {
	p.acksMu.Lock()
	defer p.acksMu.Unlock()
	st, ok := p.acks[commitID]
	if !ok {
		return
	}
	st.pending--
	if st.pending <= 0 {
		delete(p.acks, commitID)
		ackLatency.Observe(time.Since(st.startedAt).Seconds())
		st.released()
	}
}

// NotifyCommitRelease is invoked when all acks arrive or the release
// timer fires; acked lists the subscriptions that actually
// acknowledged, for diagnostics.
func (p *Processor) NotifyCommitRelease(commitID uint32, acked []string) {
	p.acksMu.Lock()
	st, ok := p.acks[commitID]
	if ok {
		delete(p.acks, commitID)
	}
	p.acksMu.Unlock()
	if ok {
		ackLatency.Observe(time.Since(st.startedAt).Seconds())
		st.released()
	}
}

// NotifyDataProviderRequest fans a data_provide out to the operational
// data providers registered against path's module, used by the Request
// Processor's suspension contract.
func (p *Processor) NotifyDataProviderRequest(ctx context.Context, module string, requestID uint64, path string) []DataProvideResult {
	subs := p.matchingProviders(module, path)
	results := make([]DataProvideResult, 0, len(subs))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(sub *Subscription) {
			defer wg.Done()
			res, err := sub.Destination.NotifyDataProvide(ctx, requestID, path)
			if err != nil {
				p.log.Debug().Str("sub", sub.ID).Err(err).Msg("data provider failed")
				return
			}
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
		}(sub)
	}
	wg.Wait()
	return results
}

// Providers returns the operational-data-provider subscriptions matching
// module and path, for callers (the Request Processor) that need to fan
// requests out themselves rather than block on
// NotifyDataProviderRequest's bulk wait -- the RP's suspension contract
// arms its own per-request timeout and must be able to react to a
// partial set of responses.
func (p *Processor) Providers(module, path string) []*Subscription {
	return p.matchingProviders(module, path)
}

func (p *Processor) matchingProviders(module, path string) []*Subscription {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []*Subscription
	for _, s := range p.byKind[OperationalDataProvider] {
		if s.Module != module {
			continue
		}
		if s.XPath == "" || strings.HasPrefix(path, s.XPath) || strings.HasPrefix(s.XPath, path) {
			out = append(out, s)
		}
	}
	return out
}

// MatchProcedureSubscription returns the subscription registered for an
// RPC or action at opPath. Subscribe does not reject a second
// subscription for the same (kind, opPath); when several are
// registered, the earliest one is returned.
func (p *Processor) MatchProcedureSubscription(kind Kind, opPath string) (*Subscription, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, s := range p.byKind[kind] {
		if s.XPath == opPath {
			return s, true
		}
	}
	return nil, false
}

// EventNotifSubscriptions returns every event-notification subscription
// registered against opPath, for the Request Processor's broadcast
// fan-out.
func (p *Processor) EventNotifSubscriptions(opPath string) []*Subscription {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []*Subscription
	for _, s := range p.byKind[EventNotification] {
		if s.XPath == "" || s.XPath == opPath {
			out = append(out, s)
		}
	}
	return out
}

// MatchesSubscription implements the subscription match predicate: a
// change record matches if its schema node is the subscribed node or a
// descendant of it; additionally, when the record
// is the creation/deletion of a container/list that contains the
// subscribed node, the subtree is walked and a hit is reported iff the
// subscribed node exists within it.
func MatchesSubscription(sub *Subscription, rec datatree.ChangeRecord, createdOrDeletedSubtree *datatree.Node) bool {
	subtreePath := sub.XPath
	if subtreePath == "" {
		subtreePath = "/" + sub.Module
	}
	if !datatree.PathIntersects(rec.Path, subtreePath) {
		return false
	}
	if rec.Path == subtreePath || strings.HasPrefix(rec.Path, subtreePath+"/") {
		return true
	}
	if createdOrDeletedSubtree != nil {
		found := false
		createdOrDeletedSubtree.Walk(func(n *datatree.Node) bool {
			if n.Path == subtreePath {
				found = true
				return false
			}
			return true
		})
		return found
	}
	return false
}
