// Package notify implements the Notification Processor (C5): a
// subscription registry keyed by kind and module, with verify/apply
// fan-out and per-commit ack accounting. Grounded on
// component-manager fan-out idiom (danos-configd session/commitmgr.go's
// ComponentSetRunningWithLog call site) generalized to the full
// subscription taxonomy of module-change, subtree-change, RPC, action,
// operational-data and event-notification subscriptions.
package notify

import (
	"context"

	"github.com/google/uuid"

	"github.com/sysrepo-go/core/datatree"
)

// Kind enumerates the subscription kinds a Destination can register for.
type Kind int

const (
	ModuleChange Kind = iota
	SubtreeChange
	ModuleInstall
	FeatureEnable
	RPC
	Action
	OperationalDataProvider
	EventNotification
)

// Flags are subscribe() options.
type Flags uint32

const (
	EnableRunning Flags = 1 << iota
	CtxReuse
	Passive
	Verifier
	// Exclusive is implied for RPC and Action kinds regardless of
	// whether the caller sets it explicitly.
	Exclusive
)

// EventFilter selects which commit phases a subscription receives.
type EventFilter uint32

const (
	FilterVerify EventFilter = 1 << iota
	FilterApply
)

// Destination is the external collaborator a subscription fans out to —
// the wire/transport layer this core treats as an interface boundary,
// since wire framing is an external collaborator's concern, not this
// core's.
type Destination interface {
	// NotifyVerify delivers a verify-phase event; a non-nil error vetoes
	// the commit.
	NotifyVerify(ctx context.Context, commitID uint32, module string, changes []datatree.ChangeRecord) error
	// NotifyApply fans out an apply-phase event; delivery failures are
	// logged, never roll back the commit.
	NotifyApply(ctx context.Context, commitID uint32, module string, changes []datatree.ChangeRecord) error
	// NotifyDataProvide requests operational data for path, used by the
	// Request Processor's suspension contract.
	NotifyDataProvide(ctx context.Context, requestID uint64, path string) (DataProvideResult, error)
	// InvokeProcedure forwards an RPC or action request, rewritten to
	// target this subscriber, and returns its output args.
	InvokeProcedure(ctx context.Context, opPath string, args *datatree.Node) (*datatree.Node, error)
	// NotifyEvent delivers an event-notification broadcast; delivery
	// failures are logged, never surfaced to the originator.
	NotifyEvent(ctx context.Context, opPath string, args *datatree.Node)
}

// DataProvideResult is the provider's answer to a data_provide request.
type DataProvideResult struct {
	Values []ProvidedValue
}

type ProvidedValue struct {
	Path  string
	Value interface{}
}

// Subscription is the registry's unit.
type Subscription struct {
	ID          string
	Kind        Kind
	Module      string
	XPath       string // optional, subtree-change / operational-data-provider scoping
	Destination Destination
	Priority    int
	Flags       Flags
	EventFilter EventFilter
	PrivateCtx  interface{}
}

func newID() string { return uuid.NewString() }

// effectiveExclusive reports whether this subscription is exclusive
// (unique match per request), implied for RPC/Action regardless of the
// Flags bit.
func (s *Subscription) effectiveExclusive() bool {
	return s.Flags&Exclusive != 0 || s.Kind == RPC || s.Kind == Action
}
