package pipeline

import (
	"avsched/internal"
	"avsched/internal/util"
)

// Labels 25Live renders for executive-education bookings that are real class
// meetings. Compared verbatim.
var academicSessionLabels = map[string]struct{}{
	"<p>Academic Session</p>": {},
	"<p>Academic session</p>": {},
	"<p>Class Session</p>":    {},
}

type roomDayKey struct {
	date, room string
}

// CombineKECGroups merges executive-education fragments booked on the same
// date and room into one event spanning the earliest start to the latest end.
// The first fragment is the template; instructors and resources are cleared
// on combined events. Non-KEC events follow the KEC ones unchanged.
//
// It is not part of Normalize.
func CombineKECGroups(events []internal.CanonicalEvent) []internal.CanonicalEvent {
	var order []roomDayKey
	groups := map[roomDayKey][]internal.CanonicalEvent{}
	var rest []internal.CanonicalEvent
	for _, ev := range events {
		if !ev.TypeIs(EventTypeKEC) {
			rest = append(rest, ev)
			continue
		}
		k := roomDayKey{date: ev.Date, room: util.Deref(ev.RoomName)}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], ev)
	}

	out := make([]internal.CanonicalEvent, 0, len(events))
	for _, k := range order {
		group := groups[k]
		if len(group) == 1 {
			out = append(out, group[0])
			continue
		}
		combined := group[0]
		for _, ev := range group[1:] {
			// HH:MM:00 strings order lexically.
			if ev.StartTime < combined.StartTime {
				combined.StartTime = ev.StartTime
			}
			if ev.EndTime > combined.EndTime {
				combined.EndTime = ev.EndTime
			}
		}
		combined.InstructorNames = nil
		combined.Resources = []internal.Resource{}
		out = append(out, combined)
	}
	return append(out, rest...)
}

// IsAcademicSession reports whether the raw payload marks a KEC booking as a
// class meeting.
func IsAcademicSession(rec *internal.RawEventRecord) bool {
	if rec == nil {
		return false
	}
	panel, ok := rec.ItemDetails.Defn.Panel.At(1)
	if !ok {
		return false
	}
	label := itemName(panel, 0)
	if !label.Valid {
		return false
	}
	_, ok = academicSessionLabels[label.Value]
	return ok
}

// FilterAcademicSessions drops KEC events that are not class meetings.
// Other events always pass.
func FilterAcademicSessions(events []internal.CanonicalEvent) []internal.CanonicalEvent {
	out := make([]internal.CanonicalEvent, 0, len(events))
	for _, ev := range events {
		if ev.TypeIs(EventTypeKEC) && !IsAcademicSession(ev.Raw) {
			continue
		}
		out = append(out, ev)
	}
	return out
}
