package pipeline

import (
	"strings"

	"avsched/internal"
)

// Placeholder names 25Live uses for blocked-out slots.
var placeholderNames = map[string]struct{}{
	"(Private)": {},
	"Closed":    {},
}

// Keep reports whether a raw record is a real, open booking.
//
// Subject names containing "&" are multi-room codes that 25Live has already
// joined; they are rebuilt by MergeAdjacentRooms instead of trusted.
func Keep(rec internal.RawEventRecord) bool {
	if rec.ItemID == 0 && rec.ItemName.Valid {
		if _, ok := placeholderNames[rec.ItemName.Value]; ok {
			return false
		}
	}
	if rec.ItemID2 == 0 {
		return false
	}
	if strings.Contains(rec.SubjectItemName.Value, "&") {
		return false
	}
	return true
}

// FilterRecords returns the records Keep accepts, in input order.
func FilterRecords(records []internal.RawEventRecord) []internal.RawEventRecord {
	out := make([]internal.RawEventRecord, 0, len(records))
	for _, rec := range records {
		if Keep(rec) {
			out = append(out, rec)
		}
	}
	return out
}
