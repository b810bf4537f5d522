// Command manifold is the Manifold CLI: a spf13/cobra front end over the
// engine facade, mirroring the "Core engine API surface" 1:1
// (manifold spec ..., manifold workflow ..., manifold sync ...,
// manifold conflicts ..., manifold review ...).
//
// Command implementations are split by concern across cmd_*.go files.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"manifold/internal/config"
	"manifold/internal/engine"
	mlog "manifold/internal/logging"
	"manifold/internal/store"
)

var (
	cfgPath   string
	verbose   bool
	cfg       *config.Config
	logger    *zap.Logger
	eng       *engine.Engine
	strg      *store.Store
)

var rootCmd = &cobra.Command{
	Use:   "manifold",
	Short: "Manifold — a living specification engine",
	Long: `Manifold tracks specs (requirements, tasks, decisions) through a
requirements -> design -> tasks -> approval -> implemented workflow,
with git-backed sync and three-way conflict resolution between
collaborators editing the same spec offline.`,
	SilenceUsage:      true,
	PersistentPreRunE: rootPreRun,
	PersistentPostRun: rootPostRun,
}

func rootPreRun(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err = mlog.New(verbose)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}

	strg, err = store.Open(cfg.Store.Path, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	eng, err = engine.New(strg, cfg.Sync.Root, logger)
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	return nil
}

func rootPostRun(cmd *cobra.Command, args []string) {
	if logger != nil {
		_ = logger.Sync()
	}
	if strg != nil {
		_ = strg.Close()
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "manifold.yaml", "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(specCmd, workflowCmd, syncCmd, conflictsCmd, reviewCmd, serveCmd, tuiCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
