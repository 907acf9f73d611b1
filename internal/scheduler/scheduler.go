package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"avsched/internal"
	"avsched/internal/calendar"
	"avsched/internal/config"
	"avsched/internal/notify"
	"avsched/internal/pipeline"
	"avsched/internal/r25"
	"avsched/internal/storage"
)

// cycleTimeout bounds one fetch-process-notify cycle.
const cycleTimeout = 15 * time.Minute

// Fetcher supplies raw records for a window. *r25.Client implements it.
type Fetcher interface {
	FetchRange(ctx context.Context, window internal.SyncWindow) ([]internal.RawEventRecord, error)
}

type Service struct {
	db       *storage.DB
	cfg      config.Config
	fetcher  Fetcher
	notifier notify.Notifier
	loc      *time.Location
	log      *zap.Logger
	now      func() time.Time
}

func NewService(db *storage.DB, cfg config.Config, fetcher Fetcher, notifier notify.Notifier, log *zap.Logger) (*Service, error) {
	loc, err := time.LoadLocation(cfg.SyncTimezone)
	if err != nil {
		return nil, fmt.Errorf("sync timezone %q: %w", cfg.SyncTimezone, err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		db:       db,
		cfg:      cfg,
		fetcher:  fetcher,
		notifier: notifier,
		loc:      loc,
		log:      log.Named("scheduler"),
		now:      time.Now,
	}, nil
}

// Run syncs once immediately, then on every SyncCron tick until ctx is done.
// A failed cycle is logged and the next tick proceeds.
func (s *Service) Run(ctx context.Context) error {
	c := cron.New(
		cron.WithLocation(s.loc),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{s.log.Sugar()})),
	)
	if _, err := c.AddFunc(s.cfg.SyncCron, func() { s.runCycle(ctx) }); err != nil {
		return fmt.Errorf("schedule %q: %w", s.cfg.SyncCron, err)
	}

	s.log.Info("scheduler started", zap.String("schedule", s.cfg.SyncCron), zap.String("timezone", s.loc.String()))
	s.runCycle(ctx)
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	s.log.Info("scheduler stopped")
	return nil
}

func (s *Service) runCycle(parent context.Context) {
	if parent.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(parent, cycleTimeout)
	defer cancel()
	if _, err := s.RunOnce(ctx); err != nil {
		s.log.Error("sync cycle failed", zap.Error(err))
	}
}

// Window is the sync window for the current time.
func (s *Service) Window() internal.SyncWindow {
	return r25.WindowAround(s.now(), s.loc, s.cfg.SyncLookbackDays, s.cfg.SyncAheadDays)
}

func (s *Service) RunOnce(ctx context.Context) (notify.Report, error) {
	return s.RunWindow(ctx, s.Window())
}

// RunWindow fetches, normalizes and stores one window, then sends the report.
// Notification failures are logged, not returned.
func (s *Service) RunWindow(ctx context.Context, window internal.SyncWindow) (notify.Report, error) {
	records, err := s.fetcher.FetchRange(ctx, window)
	if err != nil {
		return notify.Report{}, fmt.Errorf("fetch %s..%s: %w", window.From, window.To, err)
	}

	proc := pipeline.NewProcessingService(s.db, s.cfg, s.log)
	res, err := proc.ProcessBatch(ctx, window, records)
	if err != nil {
		return notify.Report{}, err
	}

	report := notify.Report{
		TraceID:    res.TraceID,
		Window:     window,
		Fetched:    res.Fetched,
		Kept:       res.Kept,
		Canonical:  len(res.Events),
		Pruned:     res.Pruned,
		Conflicts:  len(calendar.BuildGrid(res.Events).Conflicts()),
		ExportPath: res.ExportPath,
		FinishedAt: s.now().UTC(),
	}

	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, report); err != nil {
			s.log.Warn("notify failed", zap.String("traceId", report.TraceID), zap.Error(err))
		}
	}
	return report, nil
}

// cronLogger routes cron's own messages through zap.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
