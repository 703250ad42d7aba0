package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/GoCodeAlone/bootstrap"
)

// plannedModule is one row of the plan output.
type plannedModule struct {
	Position     int      `json:"position"`
	Name         string   `json:"name"`
	PlugIn       bool     `json:"plugin"`
	Dependencies []string `json:"dependencies"`
}

// NewPlanCommand creates the plan command.
func NewPlanCommand(opts *globalOptions) *cobra.Command {
	var watch bool
	var output string

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the module execution order",
		Long: `Discover the modules of the startup module and the plug-in folders and
print the order they would be started in. No lifecycle phase is run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(cmd.ErrOrStderr(), opts.logLevel)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if err := printPlan(ctx, cmd.OutOrStdout(), cfg, logger, output); err != nil {
				if !watch {
					return err
				}
				logger.Error("Plan failed", "error", err)
			}
			if !watch {
				return nil
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			changes := make(chan fsnotify.Event, 1)
			for _, src := range plugInSources(cfg, logger) {
				go func() {
					err := src.Watch(ctx, func(ev fsnotify.Event) {
						select {
						case changes <- ev:
						default:
						}
					})
					if err != nil {
						logger.Error("Watching plug-in folder failed", "source", src.String(), "error", err)
					}
				}()
			}

			for {
				select {
				case <-ctx.Done():
					return nil
				case ev := <-changes:
					logger.Info("Plug-in folder changed", "file", ev.Name, "op", ev.Op.String())
					if err := printPlan(ctx, cmd.OutOrStdout(), cfg, logger, output); err != nil {
						logger.Error("Plan failed", "error", err)
					}
				}
			}
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "re-plan whenever a plug-in folder changes")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text or json")
	return cmd
}

func printPlan(ctx context.Context, w io.Writer, cfg *bootstrap.Config, logger bootstrap.Logger, output string) error {
	b, err := newBootstrapper(cfg, logger)
	if err != nil {
		return err
	}
	order, err := b.Plan(ctx)
	if err != nil {
		return err
	}

	rows := make([]plannedModule, 0, len(order))
	for i, d := range order {
		rows = append(rows, plannedModule{Position: i, Name: d.Name, PlugIn: d.IsPlugIn, Dependencies: d.DependencyNames()})
	}

	switch output {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case "text", "":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "#\tMODULE\tPLUGIN\tDEPENDS ON")
		for _, r := range rows {
			fmt.Fprintf(tw, "%d\t%s\t%t\t%s\n", r.Position, r.Name, r.PlugIn, strings.Join(r.Dependencies, ", "))
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown output format %q", output)
	}
}
