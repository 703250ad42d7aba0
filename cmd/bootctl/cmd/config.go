package cmd

import (
	"github.com/spf13/cobra"

	"github.com/GoCodeAlone/bootstrap"
)

// NewConfigCommand creates the config command.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Work with the bootctl configuration",
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}

	var format string
	sample := &cobra.Command{
		Use:   "sample",
		Short: "Print a sample configuration with defaults applied",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := bootstrap.GenerateSampleConfig(&bootstrap.Config{}, format)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	sample.Flags().StringVarP(&format, "format", "f", "yaml", "output format: yaml, toml or json")
	cmd.AddCommand(sample)

	return cmd
}
