package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Amr-9/saylrun/internal/config"
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scenario-file>",
		Short: "Lint a scenario YAML file without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := config.LoadScenarioFile(args[0])
			if err != nil {
				return err
			}
			if err := config.Validate(&sc); err != nil {
				return err
			}
			fmt.Printf("%s is valid: %d step(s)\n", args[0], len(sc.Steps))
			return nil
		},
	}
	return cmd
}
