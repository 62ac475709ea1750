package datamanager

import (
	"github.com/sysrepo-go/core/datastore"
	"github.com/sysrepo-go/core/mgmterror"
	"github.com/sysrepo-go/core/session"
)

// CopyConfig copies module's tree from src to dst. When module is empty,
// every module the session has modified in src is copied, or every
// module in the schema catalog if it has modified none. If src
// is candidate, the source is validated first; if dst is candidate, the
// session's working tree is replaced; otherwise the destination file is
// written directly. Copying into running requires every affected module
// to be enabled there.
func (m *Manager) CopyConfig(sess *session.Session, module string, src, dst datastore.Datastore) error {
	modules := []string{module}
	if module == "" {
		modules = sess.ModifiedModules(src)
		if len(modules) == 0 {
			for _, info := range m.Catalog.ListSchemas() {
				modules = append(modules, info.Name)
			}
		}
	}

	if src == datastore.Candidate {
		tmp := session.New("copy-config-validator", sess.Credentials)
		tmp.SwitchDatastore(src)
		for _, mod := range modules {
			if _, err := m.GetDataInfo(tmp, mod); err != nil {
				return err
			}
		}
		if errs := m.Validate(tmp); len(errs) > 0 {
			return errs[0]
		}
	}

	for _, mod := range modules {
		if dst == datastore.Running {
			if _, ok := m.Catalog.Get(mod); !ok {
				return mgmterror.NewUnauthorizedError("module %s is not enabled in running", mod)
			}
		}

		root, _, err := m.Store.Load(mod, src)
		if err != nil {
			return err
		}

		switch dst {
		case datastore.Candidate:
			di, ok := sess.DataInfo(dst, mod)
			if !ok {
				di = &session.DataInfo{Module: mod}
				sess.SetDataInfo(dst, di)
			}
			di.Root = root
			di.Modified = true
			// Commit replays the op-log onto a freshly-read base rather
			// than trusting the cached working copy outright; without a
			// logged op, an empty replay would silently discard the copy.
			sess.AppendOp(dst, mod, session.EditOp{Kind: session.OpReplace, Path: root.Path, Root: root})
		default:
			if err := m.Store.Save(mod, dst, root); err != nil {
				return err
			}
		}
	}
	return nil
}
