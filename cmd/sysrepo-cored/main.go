// sysrepo-cored bootstraps one CoreRuntime: schema catalog, datastore
// files, lock set, notification processor, commit context store, data
// manager and request processor. It owns none of the wire framing or
// connection accept loop a full daemon needs -- that is where an
// embedding transport layer calls into reqproc.Processor.Submit -- but
// it does carry the same bootstrap shape as cmd/configd/main.go: parse
// flags, set up logging, build the core, write a pidfile, wait for a
// shutdown signal.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sysrepo-go/core/internal/corelog"
	"github.com/sysrepo-go/core/internal/coreconfig"
	"github.com/sysrepo-go/core/internal/coreruntime"
)

var (
	version    = "dev"
	commit     = "unknown"
	configPath string
	pidFile    string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "sysrepo-cored",
	Short:   "Request Processing Core daemon",
	Version: fmt.Sprintf("%s (%s)", version, commit),
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "/etc/sysrepo-go/cored.yaml", "Path to daemon configuration file")
	rootCmd.PersistentFlags().StringVar(&pidFile, "pidfile", "/run/sysrepo-go/cored.pid", "Write pid to this file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(checkConfigCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the core and block until terminated",
	RunE:  runServe,
}

var checkConfigCmd = &cobra.Command{
	Use:   "check-config",
	Short: "Load and validate the configuration file without starting anything",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := coreconfig.Load(configPath)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		fmt.Printf("%s: ok\n", configPath)
		return nil
	},
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := coreconfig.Load(configPath)
	if err != nil {
		return err
	}

	log := corelog.New(corelog.Config{Level: corelog.Level(cfg.Log.Level), JSON: cfg.Log.JSON})

	rt, err := coreruntime.New(cfg, nil, log)
	if err != nil {
		return fmt.Errorf("building runtime: %w", err)
	}
	defer rt.Close()

	if err := writePidFile(pidFile); err != nil {
		log.Warn().Err(err).Str("pidfile", pidFile).Msg("failed to write pidfile")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Metrics.Enabled {
		go serveMetrics(log, cfg.Metrics.Addr)
	}

	runErr := make(chan error, 1)
	go func() { runErr <- rt.Processor.Run(ctx, cfg.Workers) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	log.Info().Str("schema_dir", cfg.SchemaSearchDir).Str("data_dir", cfg.DataSearchDir).
		Int("workers", cfg.Workers).Msg("core started")

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		cancel()
		<-runErr
	case err := <-runErr:
		if err != nil {
			return fmt.Errorf("worker pool exited: %w", err)
		}
	}
	return nil
}

func serveMetrics(log zerolog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error().Err(err).Str("addr", addr).Msg("metrics server exited")
	}
}

func writePidFile(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = fmt.Fprintf(f, "%d\n", os.Getpid())
	return err
}
