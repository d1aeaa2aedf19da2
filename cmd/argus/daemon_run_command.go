package main

import (
	"github.com/spf13/cobra"

	"argus/internal/daemonrun"
)

// newDaemonRunCommand returns the hidden `daemon` subcommand that `argus
// start` launches in a detached process. It runs the same runtime as the
// standalone argusd binary.
func newDaemonRunCommand(ctx *commandContext) *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:          "daemon",
		Short:        "Run the argus daemon in the foreground",
		Hidden:       true,
		SilenceUsage: true,
		Annotations:  map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{LogLevel: logLevel})
		},
	}
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override configured log level (debug, info, warn, error)")
	return cmd
}
