package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/helioforge/fswatcher/internal/watcher"
)

func init() {
	rootCmd.AddCommand(newReconcileCmd())
}

func newReconcileCmd() *cobra.Command {
	reconcileCmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Run one reconciliation pass and exit",
		Long: "Walks the watched tree, optionally diffs it against the remote key listing, " +
			"and re-syncs every file missing from the bucket.",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			a, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			dispatched, err := a.watcher.Reconcile(cmd.Context())
			if err != nil {
				return err
			}
			slog.Info("reconcile complete", "dispatched", dispatched)
			return nil
		},
	}

	reconcileCmd.Flags().SortFlags = false
	reconcileCmd.Flags().StringP("dir", "d", ".", "Directory to reconcile")
	reconcileCmd.Flags().StringP("bucket", "b", "", "Target bucket, as 'bucket' or 'bucket/prefix'")
	reconcileCmd.Flags().Int("concurrency", watcher.DefaultConcurrency, "Upload worker pool size")
	reconcileCmd.Flags().String("since", "", "Skip files modified before this date (YYYY-MM-DD)")
	reconcileCmd.Flags().Bool("check-remote", false, "Diff against the remote listing instead of re-syncing everything")
	reconcileCmd.Flags().StringSlice("exclude", nil, "Extra exclusion patterns (gitignore syntax)")

	return reconcileCmd
}
