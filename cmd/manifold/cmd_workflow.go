package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var workflowActor string

var workflowCmd = &cobra.Command{
	Use:   "workflow",
	Short: "Inspect and advance a spec's workflow stage",
}

var workflowStatusCmd = &cobra.Command{
	Use:   "status <spec_id>",
	Short: "Print the spec's current stage",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stage, err := eng.WorkflowStatus(args[0])
		if err != nil {
			return err
		}
		fmt.Println(stage)
		return nil
	},
}

var workflowAdvanceCmd = &cobra.Command{
	Use:   "advance <spec_id>",
	Short: "Advance the spec to the next stage if its preconditions are met",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		event, err := eng.WorkflowAdvance(args[0], workflowActor)
		if err != nil {
			return err
		}
		fmt.Printf("%s -> %s\n", event.FromStage, event.ToStage)
		return nil
	},
}

var workflowHistoryCmd = &cobra.Command{
	Use:   "history <spec_id>",
	Short: "List recorded stage transitions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		history, err := eng.WorkflowHistory(args[0])
		if err != nil {
			return err
		}
		return printJSON(history)
	},
}

func init() {
	workflowAdvanceCmd.Flags().StringVar(&workflowActor, "actor", "cli", "actor recorded on the transition event")
	workflowCmd.AddCommand(workflowStatusCmd, workflowAdvanceCmd, workflowHistoryCmd)
}
