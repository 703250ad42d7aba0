package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/GoCodeAlone/bootstrap"
	"github.com/GoCodeAlone/bootstrap/internal/status"
)

// NewRunCommand creates the run command.
func NewRunCommand(opts *globalOptions) *cobra.Command {
	var shutdownTimeout time.Duration

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Bootstrap the modules and run until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(cmd.ErrOrStderr(), opts.logLevel)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector())
			metrics := bootstrap.NewMetricsObserver("")
			if err := metrics.Register(reg); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			b, err := newBootstrapper(cfg, logger, bootstrap.WithObservers(metrics))
			if err != nil {
				return err
			}
			handle, err := b.Initialize(ctx)
			if err != nil {
				return err
			}

			statusErr := make(chan error, 1)
			if cfg.Status.Enabled {
				srv := status.NewServer(cfg.Status.Addr, handle, reg, logger)
				go func() { statusErr <- srv.Serve(ctx) }()
			}

			select {
			case <-ctx.Done():
			case err = <-statusErr:
				if err != nil {
					logger.Error("Status server failed", "error", err)
				}
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if shutdownErr := handle.Shutdown(shutdownCtx); shutdownErr != nil {
				return shutdownErr
			}
			return err
		},
	}

	cmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 30*time.Second, "time allowed for module shutdown")
	return cmd
}
