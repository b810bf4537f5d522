package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"manifold/internal/mcpserver"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP stdio server, exposing the engine as JSON-RPC tools",
	RunE: func(cmd *cobra.Command, args []string) error {
		srv := mcpserver.New(eng, cfg.Server.Name, cfg.Server.Version, logger)
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		return srv.Serve(ctx, os.Stdin, os.Stdout)
	},
}
