package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"avsched/internal/pipeline"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Normalize a saved 25Live feed without touching the store",
	Example: `  avsched normalize --input raw.json --output events.json
  avsched normalize --input raw.json --xlsx out/schedule.xlsx --combine-kec`,
	RunE: runNormalize,
}

var (
	normalizeInput      string
	normalizeOutput     string
	normalizeXLSX       string
	normalizeCombineKEC bool
	normalizeWithRaw    bool
)

func init() {
	normalizeCmd.Flags().StringVar(&normalizeInput, "input", "", "raw feed JSON file")
	normalizeCmd.Flags().StringVar(&normalizeOutput, "output", "", "write canonical events JSON here (default stdout)")
	normalizeCmd.Flags().StringVar(&normalizeXLSX, "xlsx", "", "also write an xlsx export")
	normalizeCmd.Flags().BoolVar(&normalizeCombineKEC, "combine-kec", false, "merge KEC fragments per room and day")
	normalizeCmd.Flags().BoolVar(&normalizeWithRaw, "with-raw", false, "include the raw record on each event")
	_ = normalizeCmd.MarkFlagRequired("input")
}

func runNormalize(cmd *cobra.Command, args []string) error {
	records, err := pipeline.ReadRawRecords(normalizeInput)
	if err != nil {
		return err
	}

	var stages []pipeline.Stage
	if normalizeCombineKEC {
		stages = append(stages, pipeline.CombineKECGroups)
	}
	events := pipeline.Apply(pipeline.Normalize(records), stages...)
	logger.Info("normalized", zap.Int("records", len(records)), zap.Int("events", len(events)))

	if normalizeXLSX != "" {
		if err := pipeline.ExportEventsToXLSX(events, normalizeXLSX); err != nil {
			return err
		}
	}

	if strings.TrimSpace(normalizeOutput) == "" {
		return pipeline.EncodeEventsJSON(cmd.OutOrStdout(), events, normalizeWithRaw)
	}
	if err := pipeline.WriteEventsJSON(events, normalizeOutput, normalizeWithRaw); err != nil {
		return err
	}
	fmt.Printf("normalized records=%d events=%d output=%s\n", len(records), len(events), normalizeOutput)
	return nil
}
