package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"avsched/internal"
	"avsched/internal/notify"
	"avsched/internal/r25"
	"avsched/internal/scheduler"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Fetch one window from 25Live and update the store",
	Long: `Fetches availability and event details for the window, normalizes them,
upserts the result and prunes bookings that disappeared. Without --from/--to
the configured lookback/ahead window around today is used.`,
	RunE: runSync,
}

var (
	syncFrom   string
	syncTo     string
	syncNotify bool
)

func init() {
	syncCmd.Flags().StringVar(&syncFrom, "from", "", "first date (YYYY-MM-DD)")
	syncCmd.Flags().StringVar(&syncTo, "to", "", "last date (YYYY-MM-DD)")
	syncCmd.Flags().BoolVar(&syncNotify, "notify", false, "send the run report to NOTIFY_PROVIDERS")
}

func runSync(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	var notifier notify.Notifier
	if syncNotify {
		multi, err := scheduler.MakeNotifiers(ctx, cfg)
		if err != nil {
			return err
		}
		defer multi.Close()
		notifier = multi
	}

	svc, err := scheduler.NewService(db, cfg, r25.NewClient(cfg, logger), notifier, logger)
	if err != nil {
		return err
	}

	window := svc.Window()
	if syncFrom != "" || syncTo != "" {
		if syncFrom == "" || syncTo == "" {
			return fmt.Errorf("--from and --to must be given together")
		}
		window = internal.SyncWindow{From: syncFrom, To: syncTo}
	}

	report, err := svc.RunWindow(ctx, window)
	if err != nil {
		return err
	}
	fmt.Printf("sync complete window=%s..%s fetched=%d kept=%d events=%d pruned=%d conflicts=%d\n",
		report.Window.From, report.Window.To, report.Fetched, report.Kept, report.Canonical, report.Pruned, report.Conflicts)
	if report.ExportPath != "" {
		fmt.Printf("exported %s\n", report.ExportPath)
	}
	return nil
}
