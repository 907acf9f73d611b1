package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"avsched/internal"
	"avsched/internal/config"
	"avsched/internal/storage"
)

type ProcessingService struct {
	db     *storage.DB
	cfg    config.Config
	log    *zap.Logger
	stages []Stage
}

func NewProcessingService(db *storage.DB, cfg config.Config, log *zap.Logger, stages ...Stage) *ProcessingService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProcessingService{db: db, cfg: cfg, log: log, stages: stages}
}

type ProcessResult struct {
	TraceID    string                    `json:"traceId"`
	Window     internal.SyncWindow       `json:"window"`
	Fetched    int                       `json:"fetched"`
	Kept       int                       `json:"kept"`
	Events     []internal.CanonicalEvent `json:"-"`
	Pruned     int64                     `json:"pruned"`
	ExportPath string                    `json:"exportPath,omitempty"`
}

// ProcessBatch normalizes one fetched window and reconciles the store with it.
// Events that disappeared from 25Live inside the window are pruned when
// SyncPruneMissing is set.
func (s *ProcessingService) ProcessBatch(ctx context.Context, window internal.SyncWindow, records []internal.RawEventRecord) (ProcessResult, error) {
	start := time.Now()
	res := ProcessResult{TraceID: uuid.NewString(), Window: window, Fetched: len(records)}
	log := s.log.With(zap.String("traceId", res.TraceID), zap.String("from", window.From), zap.String("to", window.To))

	if err := ctx.Err(); err != nil {
		return res, err
	}

	kept := len(FilterRecords(records))
	events := Apply(Normalize(records), s.stages...)
	res.Kept = kept
	res.Events = events
	normalizeMs := msSince(start)

	if err := s.db.UpsertEvents(events); err != nil {
		return res, fmt.Errorf("store events: %w", err)
	}
	upsertMs := msSince(start) - normalizeMs

	if s.cfg.SyncPruneMissing {
		ids := make([]int64, 0, len(events))
		for _, ev := range events {
			ids = append(ids, ev.ID)
		}
		pruned, err := s.db.PruneEvents(window, ids)
		if err != nil {
			return res, fmt.Errorf("prune events: %w", err)
		}
		res.Pruned = pruned
	}

	if s.cfg.SyncAutoExport {
		path := filepath.Join(s.cfg.OutputDir, fmt.Sprintf("schedule_%s_%s.xlsx", window.From, window.To))
		if err := ExportEventsToXLSX(events, path); err != nil {
			return res, fmt.Errorf("export: %w", err)
		}
		res.ExportPath = path
	}

	timings := map[string]float64{
		"normalizeMs": normalizeMs,
		"upsertMs":    upsertMs,
		"totalMs":     msSince(start),
	}
	counts := map[string]int{
		"fetched":   res.Fetched,
		"kept":      res.Kept,
		"canonical": len(events),
		"pruned":    int(res.Pruned),
	}
	if err := s.db.InsertRun(res.TraceID, window, timings, counts); err != nil {
		log.Warn("record run failed", zap.Error(err))
	}
	if err := s.db.SetMetadata(storage.MetaLastSync, time.Now().UTC().Format(time.RFC3339)); err != nil {
		log.Warn("record last sync failed", zap.Error(err))
	}

	log.Info("batch processed",
		zap.Int("fetched", res.Fetched),
		zap.Int("kept", res.Kept),
		zap.Int("canonical", len(events)),
		zap.Int64("pruned", res.Pruned),
		zap.Float64("totalMs", timings["totalMs"]),
	)
	return res, nil
}

// LastSync returns the time of the last successful batch, or nil.
func (s *ProcessingService) LastSync() (*string, error) {
	return s.db.GetMetadata(storage.MetaLastSync)
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
