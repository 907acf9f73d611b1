package r25

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"avsched/internal"
)

const dateLayout = "2006-01-02"

// FetchRange pulls the availability grid for every day of window and attaches
// the event detail payload to each record. Details are requested once per
// distinct itemId, at most R25DetailWorkers at a time. Records with itemId 0
// are placeholders and get no details.
func (c *Client) FetchRange(ctx context.Context, window internal.SyncWindow) ([]internal.RawEventRecord, error) {
	days, err := Days(window)
	if err != nil {
		return nil, err
	}

	var records []internal.RawEventRecord
	for _, day := range days {
		recs, err := c.FetchAvailability(ctx, day)
		if err != nil {
			return nil, err
		}
		records = append(records, recs...)
	}

	var ids []int64
	seen := map[int64]struct{}{}
	for _, rec := range records {
		id := int64(rec.ItemID)
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	var mu sync.Mutex
	details := make(map[int64]internal.ItemDetails, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	workers := c.cfg.R25DetailWorkers
	if workers <= 0 {
		workers = 1
	}
	g.SetLimit(workers)
	for _, id := range ids {
		g.Go(func() error {
			d, err := c.FetchDetails(gctx, id)
			if err != nil {
				return err
			}
			mu.Lock()
			details[id] = d
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i := range records {
		if d, ok := details[int64(records[i].ItemID)]; ok {
			records[i].ItemDetails = d
		}
	}

	c.log.Info("range fetched",
		zap.String("from", window.From),
		zap.String("to", window.To),
		zap.Int("records", len(records)),
		zap.Int("details", len(details)),
	)
	return records, nil
}

// Days lists the dates of an inclusive window.
func Days(window internal.SyncWindow) ([]string, error) {
	from, err := time.Parse(dateLayout, window.From)
	if err != nil {
		return nil, fmt.Errorf("window from: %w", err)
	}
	to, err := time.Parse(dateLayout, window.To)
	if err != nil {
		return nil, fmt.Errorf("window to: %w", err)
	}
	if to.Before(from) {
		return nil, fmt.Errorf("window %s..%s is reversed", window.From, window.To)
	}
	var out []string
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		out = append(out, d.Format(dateLayout))
	}
	return out, nil
}

// WindowAround is the sync window from lookback days before now to ahead
// days after, in loc.
func WindowAround(now time.Time, loc *time.Location, lookback, ahead int) internal.SyncWindow {
	if loc != nil {
		now = now.In(loc)
	}
	return internal.SyncWindow{
		From: now.AddDate(0, 0, -lookback).Format(dateLayout),
		To:   now.AddDate(0, 0, ahead).Format(dateLayout),
	}
}
