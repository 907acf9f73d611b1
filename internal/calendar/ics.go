package calendar

import (
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"avsched/internal"
	"avsched/internal/util"
)

const productID = "-//avsched//25Live room schedule//EN"

// RenderICS serialises events as an iCalendar feed. Event clock times are
// local to loc.
func RenderICS(events []internal.CanonicalEvent, loc *time.Location, name string) (string, error) {
	if loc == nil {
		loc = time.UTC
	}
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	if name != "" {
		cal.SetXWRCalName(name)
	}
	cal.SetXWRTimezone(loc.String())

	stamp := time.Now().UTC()
	for _, ev := range events {
		start, err := EventTime(ev.Date, ev.StartTime, loc)
		if err != nil {
			return "", fmt.Errorf("event %d start: %w", ev.ID, err)
		}
		end, err := EventTime(ev.Date, ev.EndTime, loc)
		if err != nil {
			return "", fmt.Errorf("event %d end: %w", ev.ID, err)
		}

		vev := cal.AddEvent(fmt.Sprintf("%d@avsched", ev.ID))
		vev.SetDtStampTime(stamp)
		vev.SetStartAt(start)
		vev.SetEndAt(end)
		vev.SetSummary(summaryOf(ev))
		if ev.RoomName != nil {
			vev.SetLocation(*ev.RoomName)
		}
		if desc := describe(ev); desc != "" {
			vev.SetDescription(desc)
		}
	}
	return cal.Serialize(), nil
}

// EventTime combines a YYYY-MM-DD date and HH:MM:SS clock in loc. A clock of
// 24:00:00 is midnight at the end of date.
func EventTime(date, clock string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	day, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return time.Time{}, err
	}
	var h, m, sec int
	if _, err := fmt.Sscanf(clock, "%d:%d:%d", &h, &m, &sec); err != nil {
		return time.Time{}, fmt.Errorf("invalid clock %q: %w", clock, err)
	}
	if h < 0 || h > 24 || m < 0 || m > 59 || sec < 0 || sec > 59 || (h == 24 && (m > 0 || sec > 0)) {
		return time.Time{}, fmt.Errorf("invalid clock %q", clock)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), h, m, sec, 0, loc), nil
}

func summaryOf(ev internal.CanonicalEvent) string {
	name := util.Deref(ev.EventName)
	if name == "" {
		name = fmt.Sprintf("Event %d", ev.ID)
	}
	if ev.EventType != nil {
		return fmt.Sprintf("%s [%s]", name, *ev.EventType)
	}
	return name
}

func describe(ev internal.CanonicalEvent) string {
	var lines []string
	if ev.LectureTitle != nil {
		lines = append(lines, *ev.LectureTitle)
	}
	if ev.Organization != nil {
		lines = append(lines, "Organization: "+*ev.Organization)
	}
	if len(ev.InstructorNames) > 0 {
		lines = append(lines, "Instructors: "+strings.Join(ev.InstructorNames, ", "))
	}
	for _, r := range ev.Resources {
		line := fmt.Sprintf("%d x %s", r.Quantity, r.ItemName)
		if r.Instruction != nil {
			if note := util.HTMLToText(*r.Instruction); note != "" {
				line += " (" + note + ")"
			}
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
