package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"avsched/internal"
	"avsched/internal/calendar"
	"avsched/internal/pipeline"
	"avsched/internal/storage"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored events for a date range",
	Example: `  avsched export --from 2025-07-14 --to 2025-07-20 --out out/week.xlsx
  avsched export --from 2025-07-14 --to 2025-07-20 --out out/week.ics --format ics --room "GH L110"`,
	RunE: runExport,
}

var (
	exportFrom   string
	exportTo     string
	exportOut    string
	exportFormat string
	exportRoom   string
)

func init() {
	exportCmd.Flags().StringVar(&exportFrom, "from", "", "first date (YYYY-MM-DD)")
	exportCmd.Flags().StringVar(&exportTo, "to", "", "last date (YYYY-MM-DD)")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output file")
	exportCmd.Flags().StringVar(&exportFormat, "format", "xlsx", "xlsx|ics|json")
	exportCmd.Flags().StringVar(&exportRoom, "room", "", "only this room")
	for _, name := range []string{"from", "to", "out"} {
		_ = exportCmd.MarkFlagRequired(name)
	}
}

func runExport(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	events, err := db.ListEvents(storage.EventFilter{From: exportFrom, To: exportTo, Room: exportRoom})
	if err != nil {
		return err
	}

	switch exportFormat {
	case "xlsx":
		err = pipeline.ExportEventsToXLSX(events, exportOut)
	case "json":
		err = pipeline.WriteEventsJSON(events, exportOut, false)
	case "ics":
		err = writeICS(exportOut, events)
	default:
		err = fmt.Errorf("unsupported format: %s", exportFormat)
	}
	if err != nil {
		return err
	}
	fmt.Printf("exported events=%d format=%s path=%s\n", len(events), exportFormat, exportOut)
	return nil
}

func writeICS(path string, events []internal.CanonicalEvent) error {
	loc, err := time.LoadLocation(cfg.SyncTimezone)
	if err != nil {
		return err
	}
	body, err := calendar.RenderICS(events, loc, "AV schedule")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(body), 0o644)
}
