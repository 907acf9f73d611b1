package calendar

import (
	"sort"

	"avsched/internal"
)

// Unassigned is the room column for events whose subject did not resolve to
// a known room.
const Unassigned = "Unassigned"

// Grid indexes events by date and room, the layout of the ops dashboard.
type Grid struct {
	Dates []string                                        `json:"dates"`
	Rooms []string                                        `json:"rooms"`
	Cells map[string]map[string][]internal.CanonicalEvent `json:"cells"`
}

// Conflict is a pair of events that overlap in the same room on the same day.
type Conflict struct {
	Date  string                  `json:"date"`
	Room  string                  `json:"room"`
	First internal.CanonicalEvent `json:"first"`
	Other internal.CanonicalEvent `json:"other"`
}

func BuildGrid(events []internal.CanonicalEvent) *Grid {
	g := &Grid{
		Dates: []string{},
		Rooms: []string{},
		Cells: map[string]map[string][]internal.CanonicalEvent{},
	}

	dates := map[string]struct{}{}
	rooms := map[string]struct{}{}
	for _, ev := range events {
		ev.Raw = nil
		room := RoomOf(ev)
		if _, ok := g.Cells[ev.Date]; !ok {
			g.Cells[ev.Date] = map[string][]internal.CanonicalEvent{}
		}
		g.Cells[ev.Date][room] = append(g.Cells[ev.Date][room], ev)
		dates[ev.Date] = struct{}{}
		rooms[room] = struct{}{}
	}

	for d := range dates {
		g.Dates = append(g.Dates, d)
	}
	for r := range rooms {
		g.Rooms = append(g.Rooms, r)
	}
	sort.Strings(g.Dates)
	sort.Strings(g.Rooms)

	for _, byRoom := range g.Cells {
		for _, cell := range byRoom {
			sort.SliceStable(cell, func(i, j int) bool {
				if cell[i].StartTime != cell[j].StartTime {
					return cell[i].StartTime < cell[j].StartTime
				}
				return cell[i].ID < cell[j].ID
			})
		}
	}
	return g
}

// At returns the events in one cell ordered by start time.
func (g *Grid) At(date, room string) []internal.CanonicalEvent {
	return g.Cells[date][room]
}

// Conflicts lists overlapping bookings. Touching intervals (one ends when the
// next starts) do not conflict.
func (g *Grid) Conflicts() []Conflict {
	var out []Conflict
	for _, date := range g.Dates {
		for _, room := range g.Rooms {
			if room == Unassigned {
				continue
			}
			cell := g.At(date, room)
			for i := 0; i < len(cell); i++ {
				for j := i + 1; j < len(cell); j++ {
					if cell[j].StartTime >= cell[i].EndTime {
						break
					}
					out = append(out, Conflict{Date: date, Room: room, First: cell[i], Other: cell[j]})
				}
			}
		}
	}
	return out
}

func RoomOf(ev internal.CanonicalEvent) string {
	if ev.RoomName == nil || *ev.RoomName == "" {
		return Unassigned
	}
	return *ev.RoomName
}
