package main

import (
	"github.com/spf13/cobra"

	"manifold/internal/manifold"
	"manifold/internal/tui"
)

var tuiBoundary string

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Browse specs in a read-only terminal UI",
	RunE: func(cmd *cobra.Command, args []string) error {
		return tui.Run(eng, manifold.Filter{Boundary: manifold.Boundary(tuiBoundary)})
	},
}

func init() {
	tuiCmd.Flags().StringVar(&tuiBoundary, "boundary", "", "filter by boundary")
}
