package datamanager

import (
	"strings"

	"github.com/sysrepo-go/core/datastore"
	"github.com/sysrepo-go/core/datatree"
	"github.com/sysrepo-go/core/mgmterror"
	"github.com/sysrepo-go/core/session"
)

// ProcedureKind distinguishes the three "procedure" validators: RPCs,
// actions, and event notifications.
type ProcedureKind int

const (
	RPCProcedure ProcedureKind = iota
	ActionProcedure
	EventNotifProcedure
)

// ValidateProcedure hands opPath, dir and args to the Validator and
// returns the materialized args it gives back (defaults may have been
// added); with no Validator, args are returned as given. It does not
// build a tree rooted at opPath itself: any such tree, and the schema
// check of it, is the Validator's work. For actions and
// event-notifications, targetPath must exist in running first.
func (m *Manager) ValidateProcedure(sess *session.Session, kind ProcedureKind, opPath string, targetPath string, dir Direction, args *datatree.Node) (*datatree.Node, []error) {
	if kind != RPCProcedure {
		if targetPath == "" {
			return nil, []error{mgmterror.NewInvalidArgumentError("%v requires a target data-tree path", kind)}
		}
		module, err := moduleOf(targetPath)
		if err != nil {
			return nil, []error{err}
		}
		di, err := m.GetDataInfo(runningView(sess), module)
		if err != nil {
			return nil, []error{err}
		}
		segs, err := datatree.SplitPath(targetPath)
		if err != nil {
			return nil, []error{err}
		}
		if di.Root.Find(segs) == nil {
			return nil, []error{mgmterror.NewDataMissingError(targetPath)}
		}
	}

	if m.Valid == nil {
		return args, nil
	}
	materialized, errs := m.Valid.ValidateProcedure(opPath, dir, args)
	if len(errs) > 0 {
		return nil, errs
	}
	return materialized, nil
}

// runningView returns a throwaway session bound to the running
// datastore so action/event-notif target-path checks don't disturb the
// caller's own working copy or datastore selection.
func runningView(sess *session.Session) *session.Session {
	view := session.New(sess.ID+"#running-view", sess.Credentials)
	view.SwitchDatastore(datastore.Running)
	return view
}

func (k ProcedureKind) String() string {
	switch k {
	case RPCProcedure:
		return "rpc"
	case ActionProcedure:
		return "action"
	case EventNotifProcedure:
		return "event-notification"
	default:
		return "unknown"
	}
}

// schemaOpPath derives the schema-tree path an RPC/action/notification's
// input or output args hang off, e.g. "/mod:rpc-name/input".
func schemaOpPath(opPath string, dir Direction) string {
	suffix := "/input"
	if dir == Output {
		suffix = "/output"
	}
	return strings.TrimSuffix(opPath, "/") + suffix
}
