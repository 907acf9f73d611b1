package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"avsched/internal/config"
	"avsched/internal/logging"
	"avsched/internal/storage"
)

var (
	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "avsched",
	Short: "25Live room schedule sync for AV operations",
	Long: `avsched pulls room reservations from 25Live, normalizes them into
canonical events (joined rooms merged, non-class executive sessions dropped)
and keeps a local store that the ops dashboard reads.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		logger, err = logging.New(cfg.LogLevel, cfg.LogFormat)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.AddCommand(syncCmd, normalizeCmd, exportCmd, serveCmd, scheduleCmd)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	must(rootCmd.ExecuteContext(ctx))
}

func openDB() (*storage.DB, error) {
	return storage.Open(cfg.DBPath)
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
