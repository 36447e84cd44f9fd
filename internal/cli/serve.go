package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/mrz1836/evo/internal/config"
	"github.com/mrz1836/evo/internal/constants"
	"github.com/mrz1836/evo/internal/server"
)

// AddServeCommand adds the serve command to the root command.
func AddServeCommand(root *cobra.Command) {
	root.AddCommand(newServeCmd())
}

func newServeCmd() *cobra.Command {
	var (
		addr        string
		storeDir    string
		persistence bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the evolution engine over HTTP",
		Long: `Start the HTTP API for submitting tasks, polling their status,
fetching results and sending guidance to running tasks.

Routes:
  POST /v1/tasks                 start a task
  GET  /v1/tasks                 list tasks
  GET  /v1/tasks/:id             task status
  GET  /v1/tasks/:id/results     task results
  POST /v1/tasks/:id/guidance    add guidance to a running task
  GET  /v1/blueprints            registered blueprints
  GET  /metrics                  Prometheus metrics
  GET  /healthz                  liveness

Examples:
  evo serve
  evo serve --addr :9090 --persist`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			overrides := config.Overrides{ServerAddr: addr, StoreDir: storeDir}
			return runServe(cmd.Context(), overrides, persistence)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, 127.0.0.1:8080)")
	cmd.Flags().BoolVar(&persistence, "persist", false, "write finished tasks to the snapshot store")
	cmd.Flags().StringVar(&storeDir, "store-dir", "", "snapshot directory (default ~/.evo/tasks)")

	return cmd
}

func runServe(ctx context.Context, overrides config.Overrides, persist bool) error {
	logger := GetLogger()
	factory := NewServiceFactory(logger, nil)

	cfg, err := factory.LoadConfig(ctx, overrides)
	if err != nil {
		return err
	}
	if persist {
		cfg.Store.Enabled = true
	}
	svc, err := factory.Build(ctx, cfg)
	if err != nil {
		return err
	}

	srv := server.New(svc.Engine, svc.Blueprints,
		server.WithLogger(logger),
		server.WithGatherer(svc.Registry),
		server.WithDebug(cfg.Server.Debug),
	)
	runErr := srv.Run(ctx, cfg.Server.Addr)

	// Loops ignore cancellation; give running tasks a bounded chance to finish.
	drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.ShutdownTimeout)
	defer cancel()
	if err := svc.Engine.Drain(drainCtx); err != nil {
		logger.Warn().Err(err).Msg("tasks still running at shutdown")
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}
