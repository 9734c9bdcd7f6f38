package main

import (
	"context"

	"github.com/spf13/cobra"
)

func newRootCmd(ctx context.Context) *cobra.Command {
	root := &cobra.Command{
		Use:   "saylrun",
		Short: "HTTP scenario and load-testing engine",
	}

	root.PersistentFlags().String("project", "", "project name (looked up under --projects-root)")
	root.PersistentFlags().String("projects-root", "./projects", "root directory holding project directories")
	root.PersistentFlags().String("file", "", "standalone scenario YAML file (bypasses --project)")
	root.PersistentFlags().String("host-file", "", "standalone host YAML file, used with --file")
	root.PersistentFlags().String("host", "", "host name to resolve against the project or --host-file")

	root.AddCommand(newRunCmd(ctx))
	root.AddCommand(newLoadCmd(ctx))
	root.AddCommand(newDebugCmd(ctx))
	root.AddCommand(newValidateCmd())

	return root
}
