package main

import (
	"github.com/spf13/cobra"

	"avsched/internal/r25"
	"avsched/internal/scheduler"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the sync on SYNC_CRON until interrupted",
	RunE:  runSchedule,
}

func runSchedule(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	notifiers, err := scheduler.MakeNotifiers(ctx, cfg)
	if err != nil {
		return err
	}
	defer notifiers.Close()
	svc, err := scheduler.NewService(db, cfg, r25.NewClient(cfg, logger), notifiers, logger)
	if err != nil {
		return err
	}
	return svc.Run(ctx)
}
