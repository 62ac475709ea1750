package reqproc

import (
	"context"

	"github.com/sysrepo-go/core/commitstore"
	"github.com/sysrepo-go/core/datamanager"
	"github.com/sysrepo-go/core/datastore"
	"github.com/sysrepo-go/core/datatree"
	"github.com/sysrepo-go/core/lockset"
	"github.com/sysrepo-go/core/mgmterror"
	"github.com/sysrepo-go/core/notify"
	"github.com/sysrepo-go/core/schema"
	"github.com/sysrepo-go/core/session"
	"github.com/sysrepo-go/core/value"
)

// handle runs one envelope to completion (or suspension) under the
// commit latch discipline: commit takes the latch exclusive, everything
// else takes it shared. A request parked for operational data releases
// the latch before returning so it never blocks other readers/editors
// while waiting on a provider.
func (p *Processor) handle(ctx context.Context, e envelope) {
	msg := e.msg
	sess, ok := p.Session(msg.SessionID)
	if !ok {
		p.reply(msg, &Response{Errs: []error{mgmterror.NewNotFoundError("session %s", msg.SessionID)}})
		return
	}

	if _, isNotif := sess.CommitID(); isNotif && !notificationWhitelist[msg.Kind] {
		p.reply(msg, &Response{Errs: []error{mgmterror.NewUnsupportedError("%s is not permitted on a notification session", msg.Kind)}})
		return
	}

	// Errors are cleared at the start of every dispatched request,
	// except on resumption: a DATA_LOADED redispatch is the second half
	// of the same logical request. get_item/get_items themselves tell
	// resumption apart from a fresh dispatch via msg.RequestID rather
	// than this state, since it is about to be overwritten below
	// regardless (WAITING_FOR_DATA -> DATA_LOADED -> resume(READING)).
	if sess.RequestState() != session.DataLoaded {
		sess.ClearErrors()
	}
	sess.SetRequestState(session.Reading)

	if msg.Kind == Commit {
		p.latch.Lock()
		defer p.latch.Unlock()
	} else {
		p.latch.RLock()
		defer p.latch.RUnlock()
	}

	resp, suspended := p.dispatchKind(ctx, sess, msg)
	if suspended {
		return
	}
	sess.SetRequestState(session.Finished)
	for _, err := range resp.Errs {
		sess.PushError(err)
	}
	observeRequest(msg.Kind, resp)
	p.reply(msg, resp)
}

func (p *Processor) reply(msg *Message, resp *Response) {
	if msg.reply != nil {
		msg.reply <- resp
	}
}

func (p *Processor) dispatchKind(ctx context.Context, sess *session.Session, msg *Message) (*Response, bool) {
	switch msg.Kind {
	case GetItem:
		return p.handleGetItem(ctx, sess, msg)
	case GetItems:
		return p.handleGetItems(ctx, sess, msg)
	case SetItem:
		v, _ := msg.Value.(*value.Value)
		err := p.DM.SetItem(sess, msg.Path, v, msg.Opts)
		return errResp(err), false
	case DeleteItem:
		return errResp(p.DM.DeleteItem(sess, msg.Path, msg.Opts)), false
	case MoveItem:
		return errResp(p.DM.MoveItem(sess, msg.Path, msg.Position, msg.Relative)), false
	case Validate:
		return &Response{Errs: p.DM.Validate(sess)}, false
	case Commit:
		timer := startCommitTimer()
		_, errs := p.DM.Commit(ctx, sess)
		timer.observe()
		return &Response{Errs: errs}, false
	case DiscardChanges:
		p.DM.DiscardChanges(sess)
		return &Response{}, false
	case CopyConfig:
		return errResp(p.DM.CopyConfig(sess, msg.Module, datastore.Datastore(msg.Src), datastore.Datastore(msg.Dst))), false
	case SessionSwitchDS:
		sess.SwitchDatastore(datastore.Datastore(msg.Path))
		return &Response{}, false
	case SessionSetOpts:
		if o, ok := msg.Value.(session.Options); ok {
			sess.Options = o
		}
		return &Response{}, false
	case SessionRefresh:
		p.DM.Refresh(sess, sess.CurrentDatastore())
		return &Response{}, false
	case SessionStop:
		p.StopSession(sess.ID)
		return &Response{}, false
	case Lock:
		return errResp(p.lockModules(sess, msg)), false
	case Unlock:
		return errResp(p.unlockModules(sess, msg)), false
	case Subscribe:
		params, ok := msg.Value.(*SubscribeParams)
		if !ok {
			return &Response{Errs: []error{mgmterror.NewInvalidArgumentError("subscribe requires a *SubscribeParams value")}}, false
		}
		sub := p.Notify.Subscribe(params.Kind, params.Module, params.XPath, params.Destination, params.Priority, params.Flags, params.EventFilter, params.PrivateCtx)
		return &Response{Result: sub.ID}, false
	case Unsubscribe:
		return errResp(p.Notify.Unsubscribe(notify.ModuleChange, nil, msg.Path)), false
	case GetChanges:
		return p.handleGetChanges(sess, msg)
	case ListSchemas:
		return &Response{Result: p.DM.Catalog.ListSchemas()}, false
	case ModuleInstall:
		if _, err := p.DM.Catalog.Install(schema.Name{Module: msg.Module}); err != nil {
			return &Response{Errs: []error{err}}, false
		}
		info, err := p.DM.Catalog.GetInfo(msg.Module)
		if err != nil {
			return &Response{Errs: []error{err}}, false
		}
		return &Response{Result: info}, false
	case FeatureEnable:
		return errResp(p.DM.Catalog.SetFeature(msg.Module, msg.Feature, msg.Enabled)), false
	case GetSchema:
		info, err := p.DM.Catalog.GetInfo(msg.Module)
		if err != nil {
			return &Response{Errs: []error{err}}, false
		}
		return &Response{Result: info}, false
	case CheckEnabledRunning:
		enabled, err := p.DM.CheckEnabledRunning(msg.Path)
		if err != nil {
			return &Response{Errs: []error{err}}, false
		}
		return &Response{Result: enabled}, false
	case RPC:
		return p.handleProcedure(ctx, sess, msg, datamanager.RPCProcedure)
	case Action:
		return p.handleProcedure(ctx, sess, msg, datamanager.ActionProcedure)
	case EventNotif:
		return p.handleEventNotif(ctx, sess, msg)
	default:
		return &Response{Errs: []error{mgmterror.NewUnsupportedError("%s is not handled by this dispatcher", msg.Kind)}}, false
	}
}

func errResp(err error) *Response {
	if err == nil {
		return &Response{}
	}
	return &Response{Errs: []error{err}}
}

func (p *Processor) handleGetItem(ctx context.Context, sess *session.Session, msg *Message) (*Response, bool) {
	module, err := moduleOf(msg.Path)
	if err != nil {
		return &Response{Errs: []error{err}}, false
	}
	if msg.RequestID == 0 {
		if suspended := p.maybeSuspend(ctx, sess, msg, module); suspended {
			return nil, true
		}
	}
	di, err := p.DM.GetDataInfo(sess, module)
	if err != nil {
		return &Response{Errs: []error{err}}, false
	}
	node := datamanager.GetItem(di.Root, msg.Path)
	if node == nil {
		return &Response{Errs: []error{mgmterror.NewDataMissingError(msg.Path)}}, false
	}
	return &Response{Item: node}, false
}

func (p *Processor) handleGetItems(ctx context.Context, sess *session.Session, msg *Message) (*Response, bool) {
	module, err := moduleOf(msg.Path)
	if err != nil {
		return &Response{Errs: []error{err}}, false
	}
	if msg.RequestID == 0 {
		if suspended := p.maybeSuspend(ctx, sess, msg, module); suspended {
			return nil, true
		}
	}
	di, err := p.DM.GetDataInfo(sess, module)
	if err != nil {
		return &Response{Errs: []error{err}}, false
	}
	return &Response{Items: datamanager.GetItems(di.Root, msg.Path)}, false
}

func (p *Processor) handleGetChanges(sess *session.Session, msg *Message) (*Response, bool) {
	commitID, ok := sess.CommitID()
	if !ok {
		return &Response{Errs: []error{mgmterror.NewInvalidArgumentError("get_changes requires a notification session")}}, false
	}
	cctx, ok := p.Commits.Get(commitID)
	if !ok {
		return &Response{Errs: []error{mgmterror.NewNotFoundError("commit %d", commitID)}}, false
	}
	records := cctx.ChangeRecords(msg.Module)
	window, err := commitstore.Window(records, msg.Offset, msg.Limit)
	if err != nil {
		return &Response{Errs: []error{err}}, false
	}
	items := make([]*datatree.Node, 0, len(window))
	for _, rec := range window {
		v := rec.NewValue
		if v == nil {
			v = rec.OldValue
		}
		items = append(items, &datatree.Node{Path: rec.Path, Value: v})
	}
	return &Response{Items: items}, false
}

// handleProcedure validates an RPC/action call, forwards it to the
// subscription registered for its schema path, and validates the
// returned output before handing it back.
func (p *Processor) handleProcedure(ctx context.Context, sess *session.Session, msg *Message, kind datamanager.ProcedureKind) (*Response, bool) {
	args, _ := msg.Value.(*datatree.Node)
	notifyKind := notify.RPC
	if kind == datamanager.ActionProcedure {
		notifyKind = notify.Action
	}

	in, errs := p.DM.ValidateProcedure(sess, kind, msg.Path, msg.Relative, datamanager.Input, args)
	if len(errs) > 0 {
		return &Response{Errs: errs}, false
	}

	sub, ok := p.Notify.MatchProcedureSubscription(notifyKind, msg.Path)
	if !ok {
		return &Response{Errs: []error{mgmterror.NewNotFoundError("no subscriber for %s", msg.Path)}}, false
	}

	out, err := sub.Destination.InvokeProcedure(ctx, msg.Path, in)
	if err != nil {
		return &Response{Errs: []error{err}}, false
	}

	out, errs = p.DM.ValidateProcedure(sess, kind, msg.Path, msg.Relative, datamanager.Output, out)
	if len(errs) > 0 {
		return &Response{Errs: errs}, false
	}
	return &Response{Item: out}, false
}

// handleEventNotif validates an event-notification and broadcasts it to
// every matching subscriber; delivery is fire-and-forget, per
// notify.Destination.NotifyEvent's contract.
func (p *Processor) handleEventNotif(ctx context.Context, sess *session.Session, msg *Message) (*Response, bool) {
	args, _ := msg.Value.(*datatree.Node)
	in, errs := p.DM.ValidateProcedure(sess, datamanager.EventNotifProcedure, msg.Path, msg.Relative, datamanager.Input, args)
	if len(errs) > 0 {
		return &Response{Errs: errs}, false
	}
	for _, sub := range p.Notify.EventNotifSubscriptions(msg.Path) {
		sub.Destination.NotifyEvent(ctx, msg.Path, in)
	}
	return &Response{}, false
}

func (p *Processor) lockModules(sess *session.Session, msg *Message) error {
	target := string(sess.CurrentDatastore())
	paths := []string{lockset.LockFilePath(p.DM.Store.DataDir(), msg.Module, target)}
	return p.Locks.AcquireSet(paths, sess.ID, lockset.Exclusive)
}

func (p *Processor) unlockModules(sess *session.Session, msg *Message) error {
	return p.Locks.Release(lockset.LockFilePath(p.DM.Store.DataDir(), msg.Module, string(sess.CurrentDatastore())), sess.ID)
}

func moduleOf(path string) (string, error) {
	segs, err := datatree.SplitPath(path)
	if err != nil || len(segs) == 0 || segs[0].Module == "" {
		return "", mgmterror.NewInvalidArgumentError("path %q is not module-qualified", path)
	}
	return segs[0].Module, nil
}
