package notify

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jhillyerd/enmime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"avsched/internal"
)

func sampleReport() Report {
	return Report{
		TraceID:    "trace-1",
		Window:     internal.SyncWindow{From: "2025-07-14", To: "2025-07-29"},
		Fetched:    120,
		Kept:       96,
		Canonical:  88,
		Pruned:     2,
		Conflicts:  1,
		FinishedAt: time.Date(2025, 7, 15, 14, 0, 0, 0, time.UTC),
	}
}

func TestBuildReportMessage(t *testing.T) {
	r := sampleReport()
	r.ExportPath = filepath.Join(t.TempDir(), "schedule.xlsx")
	require.NoError(t, os.WriteFile(r.ExportPath, []byte("xlsx-bytes"), 0o644))

	raw, err := BuildReportMessage("AV Sync <sync@example.edu>", []string{"ops@example.edu"}, r)
	require.NoError(t, err)

	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "AV schedule sync 2025-07-14..2025-07-29: 88 events", env.GetHeader("Subject"))
	assert.Contains(t, env.GetHeader("To"), "ops@example.edu")
	assert.Contains(t, env.Text, "Pruned:     2")
	assert.Contains(t, env.Text, "Trace:      trace-1")
	require.Len(t, env.Attachments, 1)
	assert.Equal(t, "schedule.xlsx", env.Attachments[0].FileName)
	assert.Equal(t, []byte("xlsx-bytes"), env.Attachments[0].Content)
}

func TestBuildReportMessageValidatesAddresses(t *testing.T) {
	_, err := BuildReportMessage("not an address", []string{"ops@example.edu"}, sampleReport())
	assert.Error(t, err)
	_, err = BuildReportMessage("sync@example.edu", nil, sampleReport())
	assert.Error(t, err)

	r := sampleReport()
	r.ExportPath = filepath.Join(t.TempDir(), "missing.xlsx")
	_, err = BuildReportMessage("sync@example.edu", []string{"ops@example.edu"}, r)
	assert.Error(t, err)
}

type stubNotifier struct {
	name  string
	err   error
	calls int
}

func (s *stubNotifier) Name() string { return s.name }

func (s *stubNotifier) Notify(context.Context, Report) error {
	s.calls++
	return s.err
}

func TestMultiNotifiesAll(t *testing.T) {
	boom := errors.New("boom")
	a := &stubNotifier{name: "a", err: boom}
	b := &stubNotifier{name: "b"}
	m := Multi{a, b}

	err := m.Notify(context.Background(), sampleReport())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "a: boom")
	assert.Equal(t, 1, b.calls)
	assert.Equal(t, "a,b", m.Name())

	assert.NoError(t, Multi{}.Notify(context.Background(), sampleReport()))
}
