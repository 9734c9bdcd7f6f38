package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Amr-9/saylrun/internal/debugrun"
)

func newDebugCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "debug [scenario-name]",
		Short: "Run a single verbose dry-run iteration of a scenario",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var scenarioArg string
			if len(args) == 1 {
				scenarioArg = args[0]
			}

			r, err := resolveScenario(cmd, scenarioArg)
			if err != nil {
				return err
			}
			return debugrun.Run(ctx, r.scenario, r.host)
		},
	}
	return cmd
}
