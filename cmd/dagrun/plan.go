package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/phrazzld/dagrun/internal/sched"
	"github.com/phrazzld/dagrun/internal/taskfile"
)

func newPlanCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the batch plan for a taskfile without executing it",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := taskfile.Load(file)
			if err != nil {
				return err
			}

			graph, err := sched.BuildGraph(f.Descriptors())
			if err != nil {
				return err
			}
			plan := sched.PlanBatches(graph)

			bold := color.New(color.Bold)
			_, _ = bold.Printf("%d tasks in %d batches\n", plan.TaskCount(), len(plan.Batches))
			for i, batch := range plan.Batches {
				fmt.Printf("  batch %d: %s\n", i, strings.Join(batch, ", "))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "dagrun.yaml", "path to the taskfile")
	return cmd
}
