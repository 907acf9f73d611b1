package pipeline

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"avsched/internal"
)

func TestRoomName(t *testing.T) {
	cases := []struct {
		input string
		want  *string
	}{
		{input: "KGH1110 (70)", want: sp("GH 1110")},
		{input: "KGHL110", want: sp("GH L110")},
		{input: "KGHL120 (250)", want: sp("GH L120")},
		{input: "KGH2410A", want: sp("GH 2410A")},
		{input: "KGH2430B (40)", want: sp("GH 2430B")},
		{input: "GH 1110", want: nil},
		{input: "", want: nil},
	}

	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.want, RoomName(tc.input))
		})
	}
}

func TestDecimalHoursToClock(t *testing.T) {
	cases := map[float64]string{
		13.5:   "13:30:00",
		9:      "09:00:00",
		8.25:   "08:15:00",
		17.75:  "17:45:00",
		10.333: "10:20:00",
		13.999: "14:00:00",
		0:      "00:00:00",
	}
	for in, want := range cases {
		assert.Equal(t, want, DecimalHoursToClock(in), "hours=%v", in)
	}
}

func TestEventDate(t *testing.T) {
	assert.Equal(t, "2025-07-15", EventDate("2025-07-15T00:00:00"))
	assert.Equal(t, "2025-07-15", EventDate("2025-07-15 08:00"))
	assert.Equal(t, "2025-07-15", EventDate("2025-07-15"))
}

func TestEventTypePrecedence(t *testing.T) {
	cases := []struct {
		name string
		d    internal.ItemDetails
		want *string
	}{
		{name: "kec programs", d: details(summary("t", "Class", "Kellogg Executive Education Programs", "RES CMC, KSM")), want: sp("KEC")},
		{name: "kec emba", d: details(summary("t", "Class", "Kellogg Executive MBA Program", "")), want: sp("KEC")},
		{name: "cmc", d: details(summary("t", "Class", "Kellogg School", "RES CMC, KSM")), want: sp("CMC")},
		{name: "generic", d: details(summary("t", "Meeting", "Kellogg School", "RES KSM")), want: sp("Meeting")},
		{name: "no summary panel", d: details(sessionPanel("<p>Class Session</p>")), want: nil},
		{name: "empty payload", d: internal.ItemDetails{}, want: nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, EventType(tc.d))
		})
	}
}

func TestInstructorNames(t *testing.T) {
	t.Run("contacts panel", func(t *testing.T) {
		d := details(internal.Panel{TypeID: 12, Item: internal.List[internal.DetailItem]{
			item("Instructors: Jane Doe; John Roe; ; Jane Doe"),
		}})
		assert.Equal(t, []string{"Jane Doe", "John Roe"}, InstructorNames(d))
	})

	t.Run("attributes panel nested", func(t *testing.T) {
		d := details(internal.Panel{TypeID: 13, Item: internal.List[internal.DetailItem]{
			item("Custom Attributes", item("Ann Lee")),
		}})
		assert.Equal(t, []string{"Ann Lee"}, InstructorNames(d))
	})

	t.Run("template placeholders skipped", func(t *testing.T) {
		d := details(internal.Panel{TypeID: 12, Item: internal.List[internal.DetailItem]{
			item("{{instructors}}"),
			item("<p>Instructors</p>"),
			item("ab"),
			item("Instructors: Pat Kim"),
		}})
		assert.Equal(t, []string{"Pat Kim"}, InstructorNames(d))
	})

	t.Run("nothing plausible", func(t *testing.T) {
		d := details(internal.Panel{TypeID: 12, Item: internal.List[internal.DetailItem]{item("{x}")}})
		assert.Nil(t, InstructorNames(d))
	})
}

func TestResourcesMatchEventDate(t *testing.T) {
	payload := `{
	  "occur": {"prof": [
	    {"rsv": [
	      {"startDt": "2025-07-14T09:00:00", "res": [{"itemName": "Projector", "quantity": 1}]},
	      {"startDt": "2025-07-15T09:00:00", "res": [
	        {"itemName": "Lapel Mic", "quantity": "2", "instruction": "<p>Podium left</p>"},
	        {"itemName": "Recording", "quantity": 1}
	      ]}
	    ]},
	    {"rsv": "not-a-list"}
	  ]}
	}`
	var d internal.ItemDetails
	require.NoError(t, json.Unmarshal([]byte(payload), &d))

	got := Resources(d, "2025-07-15")
	require.Len(t, got, 2)
	assert.Equal(t, internal.Resource{ItemName: "Lapel Mic", Quantity: 2, Instruction: sp("<p>Podium left</p>")}, got[0])
	assert.Equal(t, "Recording", got[1].ItemName)
	assert.Nil(t, got[1].Instruction)

	assert.Empty(t, Resources(d, "2025-07-20"))
	assert.NotNil(t, Resources(internal.ItemDetails{}, "2025-07-15"))
}

func TestExtractToleratesMalformedPayload(t *testing.T) {
	payloads := []string{
		`{"itemId": 5, "itemId2": 6, "subjectItemId": 1110, "subjectItemName": "KGH1110", "subjectItemDate": "2025-07-15T00:00:00", "start": 9, "end": "10.5", "itemDetails": "oops"}`,
		`{"itemId": 5, "itemId2": 6, "subjectItemId": 1110, "subjectItemName": "KGH1110", "subjectItemDate": "2025-07-15T00:00:00", "start": 9, "end": 10.5, "itemDetails": {"defn": {"panel": {"typeId": 11}}, "occur": []}}`,
		`{"itemId": 5, "itemId2": 6, "subjectItemId": 1110, "subjectItemName": "KGH1110", "subjectItemDate": "2025-07-15T00:00:00", "start": 9, "end": 10.5, "itemDetails": {"defn": {"panel": [null, 7, {"typeId": "11", "item": [1, {"itemName": 42}]}]}}}`,
	}

	for i, payload := range payloads {
		var rec internal.RawEventRecord
		require.NoError(t, json.Unmarshal([]byte(payload), &rec), "payload %d", i)

		ev, ok := Extract(rec)
		require.True(t, ok, "payload %d", i)
		assert.Equal(t, "09:00:00", ev.StartTime)
		assert.Equal(t, "10:30:00", ev.EndTime)
		assert.Equal(t, sp("GH 1110"), ev.RoomName)
		assert.Nil(t, ev.EventType)
		assert.Nil(t, ev.Organization)
		assert.Nil(t, ev.InstructorNames)
		assert.Empty(t, ev.Resources)
	}
}

func TestExtract(t *testing.T) {
	rec := record(123456, 789012, 1110, "FINC 430", "KGH1110 (70)", "2025-07-15T00:00:00", 13.5, 15)
	rec.ItemDetails = details(
		summary("Corporate Finance", "Class", "Kellogg School", "RES KSM"),
		internal.Panel{TypeID: 12, Item: internal.List[internal.DetailItem]{item("Instructors: Jane Doe")}},
	)

	ev, ok := Extract(rec)
	require.True(t, ok)
	assert.EqualValues(t, 123463890121110, ev.ID)
	assert.Equal(t, "2025-07-15", ev.Date)
	assert.Equal(t, "13:30:00", ev.StartTime)
	assert.Equal(t, "15:00:00", ev.EndTime)
	assert.Equal(t, sp("FINC 430"), ev.EventName)
	assert.Equal(t, sp("Class"), ev.EventType)
	assert.Equal(t, sp("Kellogg School"), ev.Organization)
	assert.Equal(t, sp("Corporate Finance"), ev.LectureTitle)
	assert.Equal(t, []string{"Jane Doe"}, ev.InstructorNames)
	require.NotNil(t, ev.Raw)
	assert.EqualValues(t, 789012, ev.Raw.ItemID2)

	_, ok = Extract(record(0, 789012, 1110, "(Private)", "KGH1110", "2025-07-15", 9, 10))
	assert.False(t, ok)
}
