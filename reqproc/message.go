// Package reqproc implements the Request Processor (C7): a bounded
// request queue, a fixed worker pool, the per-session state machine, and
// operational-data suspension. Its dispatch idiom -- a table of handlers
// keyed by request kind, one goroutine per connection feeding a shared
// worker pool instead of per-connection blocking I/O -- is grounded on
// the Disp/Srv split (danos-configd server/dispatcher.go,
// server/server.go), generalized from a reflect-based method table to an
// explicit Kind switch since this core's request taxonomy is fixed
// rather than discovered at runtime off a net/rpc-style interface.
package reqproc

import (
	"github.com/sysrepo-go/core/datatree"
	"github.com/sysrepo-go/core/notify"
)

// Kind enumerates the wire-agnostic request/response taxonomy this core
// dispatches on.
type Kind int

const (
	SessionStart Kind = iota
	SessionStop
	SessionRefresh
	SessionSwitchDS
	SessionSetOpts
	ListSchemas
	GetSchema
	ModuleInstall
	FeatureEnable
	GetItem
	GetItems
	SetItem
	DeleteItem
	MoveItem
	Validate
	Commit
	DiscardChanges
	CopyConfig
	Lock
	Unlock
	Subscribe
	Unsubscribe
	CheckEnabledRunning
	GetChanges
	RPC
	Action
	EventNotif

	// Internal message kinds, never submitted by a wire client directly.
	UnsubscribeDestination
	CommitRelease
	OperDataTimeout
	DataProvide
	Notification
)

func (k Kind) String() string {
	switch k {
	case SessionStart:
		return "session_start"
	case SessionStop:
		return "session_stop"
	case SessionRefresh:
		return "session_refresh"
	case SessionSwitchDS:
		return "session_switch_ds"
	case SessionSetOpts:
		return "session_set_opts"
	case ListSchemas:
		return "list_schemas"
	case GetSchema:
		return "get_schema"
	case ModuleInstall:
		return "module_install"
	case FeatureEnable:
		return "feature_enable"
	case GetItem:
		return "get_item"
	case GetItems:
		return "get_items"
	case SetItem:
		return "set_item"
	case DeleteItem:
		return "delete_item"
	case MoveItem:
		return "move_item"
	case Validate:
		return "validate"
	case Commit:
		return "commit"
	case DiscardChanges:
		return "discard_changes"
	case CopyConfig:
		return "copy_config"
	case Lock:
		return "lock"
	case Unlock:
		return "unlock"
	case Subscribe:
		return "subscribe"
	case Unsubscribe:
		return "unsubscribe"
	case CheckEnabledRunning:
		return "check_enabled_running"
	case GetChanges:
		return "get_changes"
	case RPC:
		return "rpc"
	case Action:
		return "action"
	case EventNotif:
		return "event_notif"
	case UnsubscribeDestination:
		return "unsubscribe_destination"
	case CommitRelease:
		return "commit_release"
	case OperDataTimeout:
		return "oper_data_timeout"
	case DataProvide:
		return "data_provide"
	case Notification:
		return "notification"
	default:
		return "unknown"
	}
}

// notificationWhitelist is the set of kinds a notification session (one
// bound to a commit id) may submit.
var notificationWhitelist = map[Kind]bool{
	GetItem:        true,
	GetItems:       true,
	SessionRefresh: true,
	GetChanges:     true,
	Unsubscribe:    true,
}

// SubscribeParams carries a subscribe request's registration
// parameters; msg.Value holds a *SubscribeParams when Kind == Subscribe.
type SubscribeParams struct {
	Kind        notify.Kind
	Module      string
	XPath       string
	Destination notify.Destination
	Priority    int
	Flags       notify.Flags
	EventFilter notify.EventFilter
	PrivateCtx  interface{}
}

// Message is one envelope pulled off the queue: a request bound to a
// session plus its kind-specific arguments. Value is intentionally
// loose (interface{}) since each Kind's handler knows its own shape; a
// typed request struct per kind would just duplicate this switch in the
// type system for no gain here. For RPC/Action/EventNotif, Path carries
// the operation's schema path, Relative carries the action/notification
// target data-tree path (unused for RPC), and Value carries the
// *datatree.Node input args.
type Message struct {
	SessionID string
	Kind      Kind
	Path      string
	Value     interface{}
	Opts      datatree.EditOptions
	Position  datatree.MovePosition
	Relative  string
	Module    string
	Feature   string
	Enabled   bool
	Src, Dst  string
	Offset    int
	Limit     int
	RequestID uint64 // assigned on oper-data suspension for correlation; 0 on a fresh request

	reply chan *Response
}

// Response carries the error list (Err returns the first) and an
// operation-specific payload. Result carries the kind-specific extras
// Items/Item don't fit: schema.ModuleInfo for get_schema/module_install,
// []schema.ModuleInfo for list_schemas, bool for check_enabled_running,
// the subscription id (string) for subscribe.
type Response struct {
	Items  []*datatree.Node
	Item   *datatree.Node
	Result interface{}
	Errs   []error
}

func (r *Response) Err() error {
	if len(r.Errs) == 0 {
		return nil
	}
	return r.Errs[0]
}
