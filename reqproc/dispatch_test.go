package reqproc_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sysrepo-go/core/access"
	"github.com/sysrepo-go/core/datastore"
	"github.com/sysrepo-go/core/datatree"
	"github.com/sysrepo-go/core/mgmterror"
	"github.com/sysrepo-go/core/notify"
	"github.com/sysrepo-go/core/reqproc"
	"github.com/sysrepo-go/core/schema"
	"github.com/sysrepo-go/core/value"
)

// fakeProcedureDest records what it was asked to invoke/notify so tests
// can assert the dispatcher actually reached the subscriber rather than
// falling through to the unsupported default.
type fakeProcedureDest struct {
	fakeProvider // embeds the no-op NotifyVerify/Apply/DataProvide stubs

	mu           sync.Mutex
	invokedPath  string
	invokedArgs  *datatree.Node
	notifiedPath string
	out          *datatree.Node
}

func (d *fakeProcedureDest) InvokeProcedure(ctx context.Context, opPath string, args *datatree.Node) (*datatree.Node, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.invokedPath = opPath
	d.invokedArgs = args
	return d.out, nil
}

func (d *fakeProcedureDest) NotifyEvent(ctx context.Context, opPath string, args *datatree.Node) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notifiedPath = opPath
}

func TestRPCDispatchInvokesSubscribedDestination(t *testing.T) {
	rp, np := newTestProcessor(t)
	cancel := runProcessor(t, rp)
	defer cancel()

	dest := &fakeProcedureDest{out: &datatree.Node{Path: "/test-module:reboot/output"}}
	np.Subscribe(notify.RPC, "test-module", "/test-module:reboot", dest, 0, 0, 0, nil)

	sess := rp.CreateSession("sess-rpc", access.Identity{}, 0)
	resp := rp.Submit(context.Background(), &reqproc.Message{
		SessionID: sess.ID, Kind: reqproc.RPC,
		Path:  "/test-module:reboot",
		Value: &datatree.Node{Path: "/test-module:reboot/input"},
	})

	require.Nil(t, resp.Err())
	dest.mu.Lock()
	defer dest.mu.Unlock()
	assert.Equal(t, "/test-module:reboot", dest.invokedPath)
}

func TestRPCDispatchWithNoSubscriberReportsNotFound(t *testing.T) {
	rp, _ := newTestProcessor(t)
	cancel := runProcessor(t, rp)
	defer cancel()

	sess := rp.CreateSession("sess-rpc-2", access.Identity{}, 0)
	resp := rp.Submit(context.Background(), &reqproc.Message{
		SessionID: sess.ID, Kind: reqproc.RPC,
		Path: "/test-module:unbound", Value: &datatree.Node{},
	})

	require.Error(t, resp.Err())
	assert.Equal(t, mgmterror.NotFound, mgmterror.KindOf(resp.Err()))
}

func TestEventNotifBroadcastsToEverySubscriber(t *testing.T) {
	rp, np := newTestProcessor(t)
	cancel := runProcessor(t, rp)
	defer cancel()

	d1 := &fakeProcedureDest{}
	d2 := &fakeProcedureDest{}
	np.Subscribe(notify.EventNotification, "test-module", "", d1, 0, 0, 0, nil)
	np.Subscribe(notify.EventNotification, "test-module", "", d2, 0, 0, 0, nil)

	sess := rp.CreateSession("sess-event", access.Identity{}, 0)
	sess.SwitchDatastore(datastore.Running)
	seedResp := rp.Submit(context.Background(), &reqproc.Message{
		SessionID: sess.ID, Kind: reqproc.SetItem,
		Path: "/test-module:alarm", Value: value.NewString("/test-module:alarm", "armed"),
	})
	require.Nil(t, seedResp.Err())
	commitResp := rp.Submit(context.Background(), &reqproc.Message{SessionID: sess.ID, Kind: reqproc.Commit})
	require.Nil(t, commitResp.Err())

	resp := rp.Submit(context.Background(), &reqproc.Message{
		SessionID: sess.ID, Kind: reqproc.EventNotif,
		Path: "/test-module:alarm", Relative: "/test-module:alarm", Value: &datatree.Node{},
	})
	require.Nil(t, resp.Err())

	d1.mu.Lock()
	assert.Equal(t, "/test-module:alarm", d1.notifiedPath)
	d1.mu.Unlock()
	d2.mu.Lock()
	assert.Equal(t, "/test-module:alarm", d2.notifiedPath)
	d2.mu.Unlock()
}

func TestSubscribeDispatchRegistersWithNotifyProcessor(t *testing.T) {
	rp, np := newTestProcessor(t)
	cancel := runProcessor(t, rp)
	defer cancel()

	dest := &fakeProcedureDest{}
	sess := rp.CreateSession("sess-sub", access.Identity{}, 0)
	resp := rp.Submit(context.Background(), &reqproc.Message{
		SessionID: sess.ID, Kind: reqproc.Subscribe,
		Value: &reqproc.SubscribeParams{
			Kind: notify.RPC, Module: "test-module",
			XPath: "/test-module:reboot", Destination: dest,
		},
	})
	require.Nil(t, resp.Err())

	id, ok := resp.Result.(string)
	require.True(t, ok)
	require.NotEmpty(t, id)

	sub, found := np.MatchProcedureSubscription(notify.RPC, "/test-module:reboot")
	require.True(t, found)
	assert.Equal(t, id, sub.ID)
}

func TestModuleInstallThenGetSchemaAndListSchemas(t *testing.T) {
	rp, _ := newTestProcessor(t)
	cancel := runProcessor(t, rp)
	defer cancel()

	sess := rp.CreateSession("sess-install", access.Identity{}, 0)
	installResp := rp.Submit(context.Background(), &reqproc.Message{
		SessionID: sess.ID, Kind: reqproc.ModuleInstall, Module: "other-module",
	})
	require.Nil(t, installResp.Err())
	info, ok := installResp.Result.(schema.ModuleInfo)
	require.True(t, ok)
	assert.Equal(t, "other-module", info.Name)

	schemaResp := rp.Submit(context.Background(), &reqproc.Message{
		SessionID: sess.ID, Kind: reqproc.GetSchema, Module: "other-module",
	})
	require.Nil(t, schemaResp.Err())
	assert.Equal(t, "other-module", schemaResp.Result.(schema.ModuleInfo).Name)

	listResp := rp.Submit(context.Background(), &reqproc.Message{SessionID: sess.ID, Kind: reqproc.ListSchemas})
	require.Nil(t, listResp.Err())
	var names []string
	for _, m := range listResp.Result.([]schema.ModuleInfo) {
		names = append(names, m.Name)
	}
	assert.Contains(t, names, "other-module")
	assert.Contains(t, names, "test-module")
}

func TestFeatureEnableRejectsUnknownFeature(t *testing.T) {
	rp, _ := newTestProcessor(t)
	cancel := runProcessor(t, rp)
	defer cancel()

	sess := rp.CreateSession("sess-feature", access.Identity{}, 0)
	resp := rp.Submit(context.Background(), &reqproc.Message{
		SessionID: sess.ID, Kind: reqproc.FeatureEnable,
		Module: "test-module", Feature: "nope", Enabled: true,
	})
	require.Error(t, resp.Err())
	assert.Equal(t, mgmterror.BadElement, mgmterror.KindOf(resp.Err()))
}

func TestCheckEnabledRunningReflectsSubtreeState(t *testing.T) {
	rp, _ := newTestProcessor(t)
	cancel := runProcessor(t, rp)
	defer cancel()

	sess := rp.CreateSession("sess-enabled", access.Identity{}, 0)
	sess.SwitchDatastore(datastore.Running)

	resp := rp.Submit(context.Background(), &reqproc.Message{
		SessionID: sess.ID, Kind: reqproc.CheckEnabledRunning, Path: "/test-module:top/child",
	})
	require.Nil(t, resp.Err())
	assert.False(t, resp.Result.(bool))
}
