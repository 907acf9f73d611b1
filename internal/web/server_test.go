package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"avsched/internal"
	"avsched/internal/config"
	"avsched/internal/storage"
)

func sp(v string) *string { return &v }

func newTestServer(t *testing.T) (*Server, *storage.DB) {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	raw := internal.RawEventRecord{ItemID: 5, ItemID2: 6, SubjectItemID: 1110, ItemName: internal.NewText("FINC 430")}
	require.NoError(t, db.UpsertEvents([]internal.CanonicalEvent{
		{ID: 1, Date: "2025-07-15", StartTime: "09:00:00", EndTime: "10:30:00", EventName: sp("FINC 430"), EventType: sp("Class"), RoomName: sp("GH 1110"), Resources: []internal.Resource{}, Raw: &raw},
		{ID: 2, Date: "2025-07-15", StartTime: "10:00:00", EndTime: "11:00:00", EventName: sp("Overlap"), EventType: sp("Meeting"), RoomName: sp("GH 1110"), Resources: []internal.Resource{}},
		{ID: 3, Date: "2025-07-16", StartTime: "13:00:00", EndTime: "14:00:00", EventName: sp("EMBA"), EventType: sp("KEC"), RoomName: sp("GH L110"), Resources: []internal.Resource{}},
	}))

	cfg := config.Defaults()
	cfg.CORSOrigins = []string{"https://dashboard.example.edu"}
	s, err := NewServer(db, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	return s, db
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s, db := newTestServer(t)
	require.NoError(t, db.SetMetadata(storage.MetaLastSync, "2025-07-15T12:00:00Z"))

	rec := get(t, s.Handler(), "/api/v1/health")
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "2025-07-15T12:00:00Z", body["lastSync"])
}

func TestListEvents(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	cases := []struct {
		target string
		ids    []int64
	}{
		{target: "/api/v1/events", ids: []int64{1, 2, 3}},
		{target: "/api/v1/events?from=2025-07-16", ids: []int64{3}},
		{target: "/api/v1/events?to=2025-07-15&type=Meeting", ids: []int64{2}},
		{target: "/api/v1/events?room=GH%20L110", ids: []int64{3}},
		{target: "/api/v1/events?from=2025-08-01", ids: []int64{}},
	}
	for _, tc := range cases {
		t.Run(tc.target, func(t *testing.T) {
			rec := get(t, h, tc.target)
			require.Equal(t, http.StatusOK, rec.Code)
			var events []internal.CanonicalEvent
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
			ids := []int64{}
			for _, ev := range events {
				ids = append(ids, ev.ID)
				assert.Nil(t, ev.Raw)
			}
			assert.Equal(t, tc.ids, ids)
		})
	}
}

func TestListEventsRejectsBadDates(t *testing.T) {
	s, _ := newTestServer(t)
	for _, target := range []string{"/api/v1/events?from=15-07-2025", "/api/v1/events?from=2025-07-16&to=2025-07-15"} {
		rec := get(t, s.Handler(), target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestGetEvent(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	rec := get(t, h, "/api/v1/events/1?raw=true")
	require.Equal(t, http.StatusOK, rec.Code)
	var ev internal.CanonicalEvent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ev))
	assert.Equal(t, "FINC 430", *ev.EventName)
	require.NotNil(t, ev.Raw)
	assert.EqualValues(t, 6, ev.Raw.ItemID2)

	assert.Equal(t, http.StatusNotFound, get(t, h, "/api/v1/events/999").Code)
	assert.Equal(t, http.StatusNotFound, get(t, h, "/api/v1/events/abc").Code)
}

func TestGrid(t *testing.T) {
	s, _ := newTestServer(t)
	rec := get(t, s.Handler(), "/api/v1/grid?from=2025-07-15&to=2025-07-16")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Grid struct {
			Dates []string `json:"dates"`
			Rooms []string `json:"rooms"`
		} `json:"grid"`
		Conflicts []struct {
			Room string `json:"room"`
		} `json:"conflicts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"2025-07-15", "2025-07-16"}, body.Grid.Dates)
	assert.Equal(t, []string{"GH 1110", "GH L110"}, body.Grid.Rooms)
	require.Len(t, body.Conflicts, 1)
	assert.Equal(t, "GH 1110", body.Conflicts[0].Room)
}

func TestCalendarFeed(t *testing.T) {
	s, _ := newTestServer(t)
	rec := get(t, s.Handler(), "/calendar.ics?room=GH%20L110")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/calendar"))
	body := rec.Body.String()
	assert.Contains(t, body, "BEGIN:VCALENDAR")
	assert.Contains(t, body, "3@avsched")
	assert.NotContains(t, body, "1@avsched")
}

func TestRuns(t *testing.T) {
	s, db := newTestServer(t)
	require.NoError(t, db.InsertRun("trace-1", internal.SyncWindow{From: "2025-07-14", To: "2025-07-29"}, map[string]float64{"totalMs": 12}, map[string]int{"canonical": 3}))

	rec := get(t, s.Handler(), "/api/v1/runs?limit=5")
	require.Equal(t, http.StatusOK, rec.Code)
	var runs []internal.RunRow
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "trace-1", runs[0].TraceID)

	assert.Equal(t, http.StatusBadRequest, get(t, s.Handler(), "/api/v1/runs?limit=0").Code)
}

func TestCORS(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("Origin", "https://dashboard.example.edu")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "https://dashboard.example.edu", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("Origin", "https://elsewhere.example.com")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
