package main

import (
	"log/slog"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newSelfTestCmd())
}

func newSelfTestCmd() *cobra.Command {
	selfTestCmd := &cobra.Command{
		Use:   "selftest",
		Short: "Verify bucket permissions with a probe upload",
		Long: "Pushes a throwaway probe file through the real pipeline and polls the bucket " +
			"for the result, verifying credentials and bucket policy end to end.",
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

			if err := a.watcher.SelfTest(cmd.Context()); err != nil {
				slog.Error("self test failed", "error", err)
				return err
			}
			slog.Info("self test passed")
			return nil
		},
	}

	selfTestCmd.Flags().SortFlags = false
	selfTestCmd.Flags().StringP("dir", "d", ".", "Directory to probe from")
	selfTestCmd.Flags().StringP("bucket", "b", "", "Target bucket, as 'bucket' or 'bucket/prefix'")
	selfTestCmd.Flags().Bool("allow-delete", false, "Also probe the delete path")

	return selfTestCmd
}
