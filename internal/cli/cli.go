// Package cli is the observer command line: a long-running server with
// scheduled runs, and one-shot runs printed as JSON.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/raysh454/observer/internal/app"
	"github.com/raysh454/observer/internal/demoserver"
	"github.com/raysh454/observer/internal/logging"
	"github.com/raysh454/observer/internal/model"
	"github.com/raysh454/observer/internal/pipeline"
	"github.com/raysh454/observer/internal/utils"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

// NewRootCommand builds the observer command tree. JSON results go to the
// command's stdout; logs go to its stderr.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "observer",
		Short:         "Observe web targets, diff snapshots and analyze anomalies",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to a YAML config file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "debug|info|warn|error (overrides config)")

	root.AddCommand(newServeCommand(opts), newRunCommand(opts), newDemoCommand(opts))
	return root
}

// Execute runs the command tree against os.Args.
func Execute() int {
	cmd := NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

func (o *rootOptions) load(stderr io.Writer) (*app.Config, logging.Logger, error) {
	cfg, err := app.LoadConfig(o.configPath)
	if err != nil {
		return nil, nil, err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	logger := logging.NewWriterLogger(stderr, "observer", logging.ParseLevel(cfg.Log.Level))
	return cfg, logger, nil
}

func newServeCommand(opts *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the scheduler",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.ListenAddr = addr
			}

			a, err := app.NewApplication(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.Serve(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}

func newRunCommand(opts *rootOptions) *cobra.Command {
	var (
		targets []string
		skip    []string
		pretty  bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline once and print the run as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			canonical, err := utils.CanonicalizeTargets(targets, utils.TargetOptions)
			if err != nil {
				return fmt.Errorf("invalid target: %w", err)
			}

			cfg, logger, err := opts.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			a, err := app.NewApplication(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			req := pipeline.Request{Targets: canonical}
			for _, s := range skip {
				req.SkipStages = append(req.SkipStages, model.StageName(s))
			}

			run, err := a.Coordinator.Run(cmd.Context(), req)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			if pretty {
				enc.SetIndent("", "  ")
			}
			return enc.Encode(run)
		},
	}
	cmd.Flags().StringSliceVarP(&targets, "target", "t", nil, "target URL (repeatable or comma-separated)")
	cmd.Flags().StringSliceVar(&skip, "skip", nil, "stages to skip: fetch, diff, analyze, report")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "indent the JSON output")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func newDemoCommand(opts *rootOptions) *cobra.Command {
	cfg := demoserver.DefaultConfig()
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Serve a demo target whose pages can be switched into failure modes",
		Long: `Serves /, /status and /api/health. Switch a page with
  curl -X POST localhost:9999/demo/mode -d '{"path":"/","mode":"degraded"}'
Modes: healthy, degraded, slow, outage, shrunk. Path "*" switches every page.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, logger, err := opts.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return demoserver.NewDemoServer(cfg, logger).ListenAndServe(ctx)
		},
	}
	cmd.Flags().StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	cmd.Flags().DurationVar(&cfg.SlowDelay, "slow-delay", cfg.SlowDelay, "response delay in slow mode")
	return cmd
}
