package pipeline

import (
	"avsched/internal"
	"avsched/internal/util"
)

// roomPair is a splittable room whose halves are booked separately when the
// whole room is reserved.
type roomPair struct {
	first, second string
	combined      string
}

// A lone GH 2410A or GH 2410B is kept as-is through a case of its own in the
// 25Live import rules; the other three pairs never had one. Observed behaviour
// is the same for every lone half, and the asymmetry is preserved on purpose
// pending product-owner review.
var adjacentRooms = []roomPair{
	{first: "GH 1420", second: "GH 1430", combined: "GH 1420&30"},
	{first: "GH 2410A", second: "GH 2410B", combined: "GH 2410A&B"},
	{first: "GH 2420A", second: "GH 2420B", combined: "GH 2420A&B"},
	{first: "GH 2430A", second: "GH 2430B", combined: "GH 2430A&B"},
}

type slotKey struct {
	date, name, start string
}

// MergeAdjacentRooms collapses bookings of both halves of a known room pair
// that share date, name and start time into one event on the combined room.
// The event booked on the pair's first room is kept; its partner is dropped.
// Unpaired halves and every other event pass through unchanged.
func MergeAdjacentRooms(events []internal.CanonicalEvent) []internal.CanonicalEvent {
	var order []slotKey
	groups := map[slotKey][]internal.CanonicalEvent{}
	for _, ev := range events {
		k := slotKey{date: ev.Date, name: util.Deref(ev.EventName), start: ev.StartTime}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], ev)
	}

	out := make([]internal.CanonicalEvent, 0, len(events))
	for _, k := range order {
		group := groups[k]
		if len(group) < 2 {
			out = append(out, group...)
			continue
		}
		out = append(out, mergeGroup(group)...)
	}
	return out
}

func mergeGroup(group []internal.CanonicalEvent) []internal.CanonicalEvent {
	used := make([]bool, len(group))
	var merged []internal.CanonicalEvent
	for _, pair := range adjacentRooms {
		a := indexOfRoom(group, used, pair.first)
		b := indexOfRoom(group, used, pair.second)
		if a < 0 || b < 0 {
			continue
		}
		used[a], used[b] = true, true
		ev := group[a]
		ev.RoomName = util.StringPtr(pair.combined)
		merged = append(merged, ev)
	}

	for i, ev := range group {
		if !used[i] {
			merged = append(merged, ev)
		}
	}
	return merged
}

func indexOfRoom(group []internal.CanonicalEvent, used []bool, room string) int {
	for i, ev := range group {
		if !used[i] && ev.RoomName != nil && *ev.RoomName == room {
			return i
		}
	}
	return -1
}
