package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"manifold/internal/manifold"
)

var (
	conflictsStrategy    string
	conflictsManualValue string
	conflictsActor       string
)

var conflictsCmd = &cobra.Command{
	Use:   "conflicts",
	Short: "List and resolve sync conflicts",
}

var conflictsListCmd = &cobra.Command{
	Use:   "list <spec_id>",
	Short: "List unresolved conflicts for a spec",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conflicts, err := eng.ConflictsList(args[0])
		if err != nil {
			return err
		}
		return printJSON(conflicts)
	},
}

var conflictsResolveCmd = &cobra.Command{
	Use:   "resolve <conflict_id>",
	Short: "Resolve a single conflict (ours|theirs|merge|manual)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var manualValue interface{}
		if conflictsManualValue != "" {
			if err := json.Unmarshal([]byte(conflictsManualValue), &manualValue); err != nil {
				manualValue = conflictsManualValue // treat as a bare string
			}
		}
		return eng.ConflictsResolve(args[0], manifold.Strategy(conflictsStrategy), manualValue, conflictsActor)
	},
}

var conflictsBulkCmd = &cobra.Command{
	Use:   "bulk <spec_id>",
	Short: "Resolve every unresolved conflict of a spec with one strategy (not manual)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resolved, failed, failures := eng.ConflictsBulk(args[0], manifold.Strategy(conflictsStrategy), conflictsActor)
		fmt.Printf("resolved=%d failed=%d\n", resolved, failed)
		if len(failures) > 0 {
			return printJSON(failures)
		}
		return nil
	},
}

var conflictsAutoMergeCmd = &cobra.Command{
	Use:   "auto-merge <spec_id>",
	Short: "Attempt the merge strategy on every unresolved conflict, skipping what it declines",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := eng.ConflictsAutoMerge(args[0], conflictsActor)
		if err != nil {
			return err
		}
		return printJSON(result)
	},
}

func init() {
	conflictsResolveCmd.Flags().StringVar(&conflictsStrategy, "strategy", "merge", "ours|theirs|merge|manual")
	conflictsResolveCmd.Flags().StringVar(&conflictsManualValue, "value", "", "manual value (JSON, or a bare string)")
	conflictsResolveCmd.Flags().StringVar(&conflictsActor, "actor", "cli", "actor recorded on the resolution patch")

	conflictsBulkCmd.Flags().StringVar(&conflictsStrategy, "strategy", "merge", "ours|theirs|merge")
	conflictsBulkCmd.Flags().StringVar(&conflictsActor, "actor", "cli", "actor recorded on the resolution patches")

	conflictsAutoMergeCmd.Flags().StringVar(&conflictsActor, "actor", "cli", "actor recorded on the resolution patches")

	conflictsCmd.AddCommand(conflictsListCmd, conflictsResolveCmd, conflictsBulkCmd, conflictsAutoMergeCmd)
}
