package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"manifold/internal/syncmgr"
)

var (
	syncRemote  string
	syncBranch  string
	syncMessage string
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronize specs with a git remote",
}

var syncInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the sync working tree (and its git remote, if given)",
	RunE: func(cmd *cobra.Command, args []string) error {
		remote := syncRemote
		if remote == "" {
			remote = cfg.Sync.Remote
		}
		return eng.SyncInit(context.Background(), remote)
	},
}

var syncPushCmd = &cobra.Command{
	Use:   "push [spec_id...]",
	Short: "Commit and push specs (all tracked specs if none named)",
	RunE: func(cmd *cobra.Command, args []string) error {
		branch := syncBranch
		if branch == "" {
			branch = cfg.Sync.Branch
		}
		results, err := eng.SyncPush(context.Background(), args, syncMessage, syncRemote, branch)
		if err != nil {
			return err
		}
		return printJSON(results)
	},
}

var syncPullCmd = &cobra.Command{
	Use:   "pull [spec_id...]",
	Short: "Pull and three-way merge specs (all tracked specs if none named)",
	RunE: func(cmd *cobra.Command, args []string) error {
		branch := syncBranch
		if branch == "" {
			branch = cfg.Sync.Branch
		}
		results, err := eng.SyncPull(context.Background(), args, syncRemote, branch)
		if err != nil {
			return err
		}
		return printJSON(results)
	},
}

var syncStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show each tracked spec's sync state",
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := eng.SyncStatus(context.Background())
		if err != nil {
			return err
		}
		return printJSON(entries)
	},
}

var syncWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the sync working tree for file changes and log them",
	Long: `Watches the sync working tree for spec file changes, debouncing
rapid edits into one event per file. It never triggers an automatic pull —
that stays an explicit "manifold sync pull".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := syncmgr.NewWatcher(cfg.Sync.Root, logger)
		if err != nil {
			return fmt.Errorf("start watcher: %w", err)
		}
		defer w.Close()

		w.OnChange = func(specID string) {
			logger.Info("sync file changed", zap.String("spec_id", specID))
			fmt.Println(specID)
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		if err := w.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		return nil
	},
}

func init() {
	syncCmd.PersistentFlags().StringVar(&syncRemote, "remote", "", "remote name or URL (defaults to config)")
	syncCmd.PersistentFlags().StringVar(&syncBranch, "branch", "", "branch name (defaults to config)")
	syncPushCmd.Flags().StringVar(&syncMessage, "message", "manifold sync", "commit message")

	syncCmd.AddCommand(syncInitCmd, syncPushCmd, syncPullCmd, syncStatusCmd, syncWatchCmd)
}
