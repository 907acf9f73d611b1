package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"avsched/internal"
)

func TestNormalizeFeed(t *testing.T) {
	records, err := ReadRawRecords(filepath.Join("testdata", "feed.json"))
	require.NoError(t, err)
	require.Len(t, records, 8)

	got := Normalize(records)

	want := []internal.CanonicalEvent{
		{
			ID:              4101880011420,
			Date:            "2025-07-15",
			StartTime:       "09:00:00",
			EndTime:         "10:30:00",
			EventName:       sp("FINC 430"),
			EventType:       sp("Class"),
			Organization:    sp("Kellogg School"),
			InstructorNames: []string{"Jane Doe", "John Roe"},
			LectureTitle:    sp("Corporate Finance"),
			RoomName:        sp("GH 1420&30"),
			Resources:       []internal.Resource{{ItemName: "Lapel Mic", Quantity: 2, Instruction: sp("<p>Podium</p>")}},
		},
		{
			ID:           4104880040110,
			Date:         "2025-07-15",
			StartTime:    "08:15:00",
			EndTime:      "12:00:00",
			EventName:    sp("EMBA Leadership"),
			EventType:    sp(EventTypeKEC),
			Organization: sp("Kellogg Executive MBA Program"),
			LectureTitle: sp("Leading Teams"),
			RoomName:     sp("GH L110"),
			Resources:    []internal.Resource{},
		},
		{
			ID:        4106880062410,
			Date:      "2025-07-16",
			StartTime: "14:00:00",
			EndTime:   "16:00:00",
			EventName: sp("Board Meeting"),
			RoomName:  sp("GH 2410A"),
			Resources: []internal.Resource{},
		},
	}

	ignoreRaw := cmpopts.IgnoreFields(internal.CanonicalEvent{}, "Raw")
	if diff := cmp.Diff(want, got, ignoreRaw); diff != "" {
		t.Fatalf("normalize mismatch (-want +got):\n%s", diff)
	}
	for _, ev := range got {
		require.NotNil(t, ev.Raw, "event %d", ev.ID)
	}
}

func TestNormalizeDeterministic(t *testing.T) {
	records, err := ReadRawRecords(filepath.Join("testdata", "feed.json"))
	require.NoError(t, err)

	first := Normalize(records)
	second := Normalize(records)
	assert.Equal(t, first, second)
}

func TestNormalizeEmpty(t *testing.T) {
	assert.Empty(t, Normalize(nil))
	assert.NotNil(t, Normalize(nil))
}

func TestApplyCombineKEC(t *testing.T) {
	first := kecEvent(1, "GH L110", "09:00:00", "10:00:00")
	first.Raw = rawWithSession("<p>Academic Session</p>")
	second := kecEvent(2, "GH L110", "10:15:00", "12:00:00")
	second.Raw = rawWithSession("<p>Class Session</p>")

	out := Apply([]internal.CanonicalEvent{first, second}, CombineKECGroups)
	require.Len(t, out, 1)
	assert.Equal(t, "09:00:00", out[0].StartTime)
	assert.Equal(t, "12:00:00", out[0].EndTime)

	assert.Len(t, Apply([]internal.CanonicalEvent{first, second}), 2)
}

func TestWriteEventsJSONDropsRaw(t *testing.T) {
	records, err := ReadRawRecords(filepath.Join("testdata", "feed.json"))
	require.NoError(t, err)
	events := Normalize(records)

	path := filepath.Join(t.TempDir(), "out", "events.json")
	require.NoError(t, WriteEventsJSON(events, path, false))

	var decoded []map[string]any
	blob, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(blob, &decoded))
	require.Len(t, decoded, 3)
	assert.NotContains(t, decoded[0], "raw")
	assert.Equal(t, "GH 1420&30", decoded[0]["roomName"])
	assert.Nil(t, decoded[1]["instructorNames"])
	assert.Equal(t, []any{}, decoded[1]["resources"])
}

func TestReadRawRecordsWrapped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wrapped.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"records": [{"itemId": 1, "itemId2": 2, "subjectItemName": "KGH1110"}]}`), 0o644))
	records, err := ReadRawRecords(path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.EqualValues(t, 2, records[0].ItemID2)

	require.NoError(t, os.WriteFile(path, []byte(`not json`), 0o644))
	_, err = ReadRawRecords(path)
	assert.Error(t, err)
}
