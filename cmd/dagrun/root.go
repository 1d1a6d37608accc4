package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "dagrun",
		Short: "Dependency-aware batched task runner",
		Long: `dagrun executes a set of interdependent tasks in topological batches.
Tasks within a batch run concurrently through a bounded worker pool;
batches run strictly in order, so every task starts only after all of
its dependencies have finished.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newRunCmd())
	root.AddCommand(newPlanCmd())
	root.AddCommand(newVersionCmd())

	return root
}
