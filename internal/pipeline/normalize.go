package pipeline

import (
	"avsched/internal"
)

// Stage transforms an extracted event list. Stages return new slices and
// never modify the events they are given.
type Stage func([]internal.CanonicalEvent) []internal.CanonicalEvent

// Normalize turns a raw 25Live feed into canonical events:
// filter, extract, merge adjacent rooms, drop non-class KEC bookings.
// The order is fixed.
func Normalize(records []internal.RawEventRecord) []internal.CanonicalEvent {
	kept := FilterRecords(records)
	events := make([]internal.CanonicalEvent, 0, len(kept))
	for _, rec := range kept {
		if ev, ok := Extract(rec); ok {
			events = append(events, ev)
		}
	}
	events = revalidate(events)
	events = MergeAdjacentRooms(events)
	return FilterAcademicSessions(events)
}

// Apply runs extra stages over an already normalized list, in order.
func Apply(events []internal.CanonicalEvent, stages ...Stage) []internal.CanonicalEvent {
	for _, stage := range stages {
		events = stage(events)
	}
	return events
}

// revalidate rejects events whose source record would not pass Keep, so
// joined "&" rooms can never reach the merge step.
func revalidate(events []internal.CanonicalEvent) []internal.CanonicalEvent {
	out := make([]internal.CanonicalEvent, 0, len(events))
	for _, ev := range events {
		if ev.Raw != nil && !Keep(*ev.Raw) {
			continue
		}
		out = append(out, ev)
	}
	return out
}
