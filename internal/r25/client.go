package r25

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"avsched/internal"
	"avsched/internal/config"
)

const maxAttempts = 5

// ErrStatus is returned for non-retryable HTTP failures.
var ErrStatus = errors.New("25live api error")

type Client struct {
	cfg        config.Config
	httpClient *http.Client
	limiter    *RateLimiter
	log        *zap.Logger
}

type availabilityPayload struct {
	Subjects internal.List[availabilitySubject] `json:"subjects"`
}

// availabilitySubject is one room row of the availability grid.
type availabilitySubject struct {
	ItemName internal.Text                          `json:"itemName"`
	ItemID   internal.Int                           `json:"itemId"`
	ItemDate internal.Text                          `json:"itemDate"`
	Items    internal.List[internal.RawEventRecord] `json:"items"`
}

type detailPayload struct {
	EvDetail internal.ItemDetails `json:"evdetail"`
}

func NewClient(cfg config.Config, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Duration(cfg.R25TimeoutMs) * time.Millisecond},
		limiter:    NewRateLimiter(cfg.R25RateLimitRPS),
		log:        log.Named("r25"),
	}
}

// FetchAvailability returns the bookings of every room in the configured
// space query on one date. Subject fields are copied onto each item.
func (c *Client) FetchAvailability(ctx context.Context, date string) ([]internal.RawEventRecord, error) {
	pageSize := c.cfg.R25PageSize
	if pageSize <= 0 {
		pageSize = 100
	}

	var out []internal.RawEventRecord
	for page := 1; ; page++ {
		params := map[string]string{
			"obj_cache_accl": "0",
			"start_dt":       date,
			"comptype":       "availability_home",
			"compsubject":    "location",
			"include":        "closed blackouts pending related empty",
			"caller":         "pro",
			"page_size":      strconv.Itoa(pageSize),
			"page":           strconv.Itoa(page),
			"space_query_id": c.cfg.R25QueryID,
		}
		body, err := c.fetchJSON(ctx, "availability/availabilitydata.json", params)
		if err != nil {
			return nil, fmt.Errorf("availability %s page %d: %w", date, page, err)
		}

		var payload availabilityPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, fmt.Errorf("decode availability %s: %w", date, err)
		}
		for _, subj := range payload.Subjects {
			for _, rec := range subj.Items {
				rec.SubjectItemID = subj.ItemID
				rec.SubjectItemName = subj.ItemName
				rec.SubjectItemDate = subj.ItemDate
				out = append(out, rec)
			}
		}
		if len(payload.Subjects) < pageSize {
			break
		}
	}

	c.log.Debug("availability fetched", zap.String("date", date), zap.Int("records", len(out)))
	return out, nil
}

// FetchDetails returns the evdetail payload for one event.
func (c *Client) FetchDetails(ctx context.Context, eventID int64) (internal.ItemDetails, error) {
	body, err := c.fetchJSON(ctx, "evdetail.json", map[string]string{
		"event_id": strconv.FormatInt(eventID, 10),
		"caller":   "pro-EvDetailDao.get",
	})
	if err != nil {
		return internal.ItemDetails{}, fmt.Errorf("evdetail %d: %w", eventID, err)
	}
	var payload detailPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return internal.ItemDetails{}, fmt.Errorf("decode evdetail %d: %w", eventID, err)
	}
	return payload.EvDetail, nil
}

func (c *Client) fetchJSON(ctx context.Context, endpoint string, params map[string]string) ([]byte, error) {
	baseURL := strings.TrimRight(c.cfg.R25BaseURL, "/") + "/"
	u, err := url.Parse(baseURL + endpoint)
	if err != nil {
		return nil, err
	}

	q := u.Query()
	for k, v := range params {
		if strings.TrimSpace(v) != "" {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if c.cfg.R25Username != "" {
			req.SetBasicAuth(c.cfg.R25Username, c.cfg.R25Password)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			c.log.Warn("request failed", zap.String("endpoint", endpoint), zap.Int("attempt", attempt), zap.Error(err))
			if err := sleep(ctx, backoff(attempt)); err != nil {
				return nil, err
			}
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			if isRetryableStatus(resp.StatusCode) && attempt < maxAttempts {
				lastErr = fmt.Errorf("%w: status=%d", ErrStatus, resp.StatusCode)
				c.log.Warn("retrying", zap.String("endpoint", endpoint), zap.Int("status", resp.StatusCode), zap.Int("attempt", attempt))
				if err := sleep(ctx, backoff(attempt)); err != nil {
					return nil, err
				}
				continue
			}
			return nil, fmt.Errorf("%w: status=%d body=%s", ErrStatus, resp.StatusCode, truncate(string(body), 512))
		}
		return body, nil
	}

	if lastErr == nil {
		lastErr = errors.New("25live request failed")
	}
	return nil, lastErr
}

func backoff(attempt int) time.Duration {
	return time.Duration(250*(1<<(attempt-1))+rand.Intn(100)) * time.Millisecond
}

func isRetryableStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
