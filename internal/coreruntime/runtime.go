// Package coreruntime wires seven components into one running
// instance for the cmd/ binaries: schema catalog, datastore files, lock
// set, notification processor, commit context store, data manager and
// request processor, behind the corelog/coreconfig ambient-stack
// packages. This is the Go-library analogue of cmd/configd/main.go's
// startYangd()+server.NewSrv() sequence, minus the socket listener that
// stays an embedding transport's responsibility.
package coreruntime

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/sysrepo-go/core/commitstore"
	"github.com/sysrepo-go/core/datamanager"
	"github.com/sysrepo-go/core/datastore"
	"github.com/sysrepo-go/core/datatree"
	"github.com/sysrepo-go/core/internal/coreconfig"
	"github.com/sysrepo-go/core/lockset"
	"github.com/sysrepo-go/core/notify"
	"github.com/sysrepo-go/core/reqproc"
	"github.com/sysrepo-go/core/schema"
)

// Runtime holds every component a cmd/ binary needs a handle on.
type Runtime struct {
	Catalog   *schema.Catalog
	Store     *datastore.Store
	Locks     *lockset.Set
	Notify    *notify.Processor
	Commits   *commitstore.Store
	DM        *datamanager.Manager
	Processor *reqproc.Processor
}

// New builds a Runtime from cfg. validator is the external schema
// library's validation boundary; a deployment without one wired gets
// PassthroughValidator, which accepts every edit unvalidated and is
// only fit for local testing or a schema-free bring-up.
func New(cfg *coreconfig.Config, validator datamanager.Validator, log zerolog.Logger) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if validator == nil {
		validator = PassthroughValidator{}
	}

	cat := schema.NewCatalog(nil, nil)

	store, err := datastore.New(cfg.DataSearchDir)
	if err != nil {
		return nil, fmt.Errorf("opening datastore at %s: %w", cfg.DataSearchDir, err)
	}

	locks := lockset.New()
	np := notify.NewProcessor(log)
	commits := commitstore.NewStore()
	dm := datamanager.New(cat, store, locks, np, commits, validator, log)
	rp := reqproc.NewProcessor(dm, np, commits, locks, log)
	rp.SetOperDataTimeout(cfg.OperDataTimeout)

	return &Runtime{
		Catalog:   cat,
		Store:     store,
		Locks:     locks,
		Notify:    np,
		Commits:   commits,
		DM:        dm,
		Processor: rp,
	}, nil
}

// Close releases the datastore's fsnotify watches.
func (r *Runtime) Close() error {
	return r.Store.Close()
}

// PassthroughValidator lets every edit through unvalidated. It exists so
// this repository's binaries link and run without an external schema
// library present; production deployments wire a real Validator in its
// place.
type PassthroughValidator struct{}

func (PassthroughValidator) Validate(string, *datatree.Node) []error { return nil }

func (PassthroughValidator) ValidateProcedure(opPath string, dir datamanager.Direction, args *datatree.Node) (*datatree.Node, []error) {
	return args, nil
}

func (PassthroughValidator) Defaults(module, path string) *datatree.Node { return nil }
