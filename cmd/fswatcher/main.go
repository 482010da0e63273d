package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/helioforge/fswatcher/internal/utils"
	"github.com/helioforge/fswatcher/internal/version"
	"github.com/helioforge/fswatcher/internal/watcher"
)

const logFileName = "fswatcher.log"

var rootCmd = &cobra.Command{
	Use:     "fswatcher",
	Short:   "Mirror a local directory tree into an S3 bucket",
	Version: version.Detailed(),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		showHeader()

		a, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if viper.GetBool("backtrack") {
			go func() {
				// let the live watch come up first so nothing is missed
				// between scan and watch start
				time.Sleep(time.Second)
				if _, err := a.watcher.Backtrack(cmd.Context()); err != nil {
					slog.Error("reconciliation failed", "error", err)
				}
			}()
		}

		defer slog.Info("Bye!")
		if err := a.watcher.Run(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("watcher run", "error", err)
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.Flags().SortFlags = false
	rootCmd.Flags().StringP("dir", "d", ".", "Directory to watch")
	rootCmd.Flags().StringP("bucket", "b", "", "Target bucket, as 'bucket' or 'bucket/prefix'")
	rootCmd.Flags().Int("concurrency", watcher.DefaultConcurrency, "Upload worker pool size")
	rootCmd.Flags().Bool("allow-delete", false, "Propagate local deletes to the bucket")
	rootCmd.Flags().StringSlice("exclude", nil, "Extra exclusion patterns (gitignore syntax)")
	rootCmd.Flags().Bool("backtrack", false, "Run a reconciliation pass at startup")
	rootCmd.Flags().String("since", "", "Reconciliation cutoff date (YYYY-MM-DD)")
	rootCmd.Flags().Bool("check-remote", false, "Diff against the remote listing during reconciliation")
	rootCmd.PersistentFlags().String("region", "", "Bucket region")
	rootCmd.PersistentFlags().String("profile", "", "Credential profile name")
	rootCmd.PersistentFlags().String("endpoint", "", "Custom store endpoint URL")
	rootCmd.PersistentFlags().String("webhook-url", "", "Webhook URL for notifications")
	rootCmd.PersistentFlags().String("channel", "", "Notification channel")
	rootCmd.PersistentFlags().String("source-label", watcher.DefaultSourceLabel, "Host label used in notifications")
	rootCmd.PersistentFlags().String("audit-db", "", "Path to the sqlite audit database")
}

func main() {
	// .env is optional, env vars beat it either way
	_ = godotenv.Load()

	closeLog := setupLogging()
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func setupLogging() func() {
	stdoutHandler := tint.NewHandler(os.Stdout, &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		NoColor:    !isatty.IsTerminal(os.Stdout.Fd()),
	})

	logPath := os.Getenv("FSWATCHER_LOG_FILE")
	if logPath == "" {
		logPath = logFileName
	}
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v\n", logPath, err)
		slog.SetDefault(slog.New(stdoutHandler))
		return func() {}
	}

	fileHandler := slog.NewTextHandler(file, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})
	slog.SetDefault(slog.New(utils.NewMultiLogHandler(stdoutHandler, fileHandler)))
	return func() { file.Close() }
}

func loadConfig(cmd *cobra.Command) error {
	home, _ := os.UserHomeDir()
	viper.AddConfigPath(filepath.Join(home, ".fswatcher"))
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("config read '%s': %w", viper.ConfigFileUsed(), err)
		}
	}

	bindFlag := func(key, flag string) {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			f = cmd.InheritedFlags().Lookup(flag)
		}
		if f != nil {
			viper.BindPFlag(key, f)
		}
	}
	bindFlag("dir", "dir")
	bindFlag("bucket", "bucket")
	bindFlag("concurrency", "concurrency")
	bindFlag("allow_delete", "allow-delete")
	bindFlag("exclude", "exclude")
	bindFlag("backtrack", "backtrack")
	bindFlag("since", "since")
	bindFlag("check_remote", "check-remote")
	bindFlag("region", "region")
	bindFlag("profile", "profile")
	bindFlag("endpoint", "endpoint")
	bindFlag("webhook_url", "webhook-url")
	bindFlag("channel", "channel")
	bindFlag("source_label", "source-label")
	bindFlag("audit_db", "audit-db")

	viper.SetEnvPrefix("FSWATCHER")
	viper.AutomaticEnv()

	return nil
}
