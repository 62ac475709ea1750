// sysrepo-ctl is a thin client generalizing cmd/cfgcli's command table
// (get/set/delete/commit, one Command per verb) from an
// interactive shell talking to a running configd over a socket to a
// single-shot cobra command operating on an embedded core: this
// package never dials a remote daemon, because serving the final
// transport endpoint is explicitly out of this core's contract. Each
// invocation opens the on-disk datastore directly, submits one request
// through reqproc.Processor, prints the result, and exits -- useful for
// scripting and local inspection the way "cfgcli show" is useful without
// a GUI.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sysrepo-go/core/access"
	"github.com/sysrepo-go/core/internal/corelog"
	"github.com/sysrepo-go/core/internal/coreconfig"
	"github.com/sysrepo-go/core/internal/coreruntime"
	"github.com/sysrepo-go/core/reqproc"
	"github.com/sysrepo-go/core/value"
)

var (
	version = "dev"

	dataDir   string
	schemaDir string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "sysrepo-ctl",
	Short:   "Inspect and edit a sysrepo-go datastore directly",
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "/etc/sysrepo-go/data", "Datastore directory")
	rootCmd.PersistentFlags().StringVar(&schemaDir, "schema-dir", "/usr/share/sysrepo-go/yang", "Schema directory (unused without an external schema library)")

	rootCmd.AddCommand(getCmd, setCmd, deleteCmd, commitCmd, discardCmd)
}

func withSession(fn func(rp *reqproc.Processor, sessionID string) error) error {
	cfg := coreconfig.Default()
	cfg.DataSearchDir = dataDir
	cfg.SchemaSearchDir = schemaDir

	log := corelog.New(corelog.Config{Level: corelog.ErrorLevel})
	rt, err := coreruntime.New(cfg, nil, log)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go rt.Processor.Run(ctx, cfg.Workers)

	sess := rt.Processor.CreateSession("sysrepo-ctl", access.Identity{}, 0)
	defer rt.Processor.StopSession(sess.ID)

	return fn(rt.Processor, sess.ID)
}

var getCmd = &cobra.Command{
	Use:   "get PATH",
	Short: "Print the value at PATH",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(rp *reqproc.Processor, sessionID string) error {
			resp := rp.Submit(cmd.Context(), &reqproc.Message{
				SessionID: sessionID, Kind: reqproc.GetItem, Path: args[0],
			})
			if err := resp.Err(); err != nil {
				return err
			}
			if resp.Item == nil || resp.Item.Value == nil {
				fmt.Println("(no value)")
				return nil
			}
			fmt.Println(resp.Item.Value.Data())
			return nil
		})
	},
}

var setCmd = &cobra.Command{
	Use:   "set PATH VALUE",
	Short: "Set the leaf at PATH to VALUE",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(rp *reqproc.Processor, sessionID string) error {
			resp := rp.Submit(cmd.Context(), &reqproc.Message{
				SessionID: sessionID, Kind: reqproc.SetItem,
				Path: args[0], Value: value.NewString(args[0], args[1]),
			})
			return resp.Err()
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete PATH",
	Short: "Delete the node at PATH",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(rp *reqproc.Processor, sessionID string) error {
			resp := rp.Submit(cmd.Context(), &reqproc.Message{
				SessionID: sessionID, Kind: reqproc.DeleteItem, Path: args[0],
			})
			return resp.Err()
		})
	},
}

var commitCmd = &cobra.Command{
	Use:   "commit",
	Short: "Validate and commit the session's running-datastore edits",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(rp *reqproc.Processor, sessionID string) error {
			resp := rp.Submit(cmd.Context(), &reqproc.Message{SessionID: sessionID, Kind: reqproc.Commit})
			return resp.Err()
		})
	},
}

var discardCmd = &cobra.Command{
	Use:   "discard",
	Short: "Discard the session's uncommitted edits",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(rp *reqproc.Processor, sessionID string) error {
			resp := rp.Submit(cmd.Context(), &reqproc.Message{SessionID: sessionID, Kind: reqproc.DiscardChanges})
			return resp.Err()
		})
	},
}
