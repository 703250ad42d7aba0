package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
)

// Version information
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// PrintVersion returns the version line.
func PrintVersion() string {
	return fmt.Sprintf("bootctl v%s (commit: %s, built on: %s)", Version, Commit, Date)
}

// globalOptions are the flags shared by every subcommand.
type globalOptions struct {
	configFiles []string
	dotEnv      string
	envPrefix   string
	startup     string
	logLevel    string
}

// NewRootCommand creates the root command for bootctl.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "bootctl",
		Short: "bootctl - discover, order and run bootstrap modules",
		Long: `bootctl drives the bootstrap engine from the command line.
It loads plug-in manifests from the configured folders, resolves the module
order for a startup module and runs the modules through their lifecycle.`,
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringSliceVarP(&opts.configFiles, "config", "c", nil, "config files (yaml, toml, json or .env), applied in order")
	flags.StringVar(&opts.dotEnv, "dotenv", "", "optional .env file read with the env prefix")
	flags.StringVar(&opts.envPrefix, "env-prefix", "BOOT", "prefix of configuration environment variables")
	flags.StringVarP(&opts.startup, "startup", "s", "", "startup module (overrides config)")
	flags.StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn or error")

	cmd.AddCommand(NewPlanCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewConfigCommand())
	cmd.AddCommand(NewVersionCommand())

	return cmd
}

// NewVersionCommand creates the version command.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), PrintVersion())
		},
	}
}

func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l})), nil
}
