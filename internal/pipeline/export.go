package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"avsched/internal"
	"avsched/internal/calendar"
	"avsched/internal/util"
)

const (
	sheetEvents = "Events"
	sheetGrid   = "Grid"
)

// ExportEventsToXLSX writes an Events sheet with one row per event and a Grid
// sheet with dates down and rooms across.
func ExportEventsToXLSX(events []internal.CanonicalEvent, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetEvents); err != nil {
		return err
	}

	headers := []string{
		"id", "date", "startTime", "endTime", "roomName", "eventName", "eventType",
		"organization", "lectureTitle", "instructorNames", "resources",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetEvents, cell, h)
	}

	for i, ev := range events {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheetEvents, cell, value)
		}

		set(1, fmt.Sprintf("%d", ev.ID))
		set(2, ev.Date)
		set(3, ev.StartTime)
		set(4, ev.EndTime)
		set(5, util.Deref(ev.RoomName))
		set(6, util.Deref(ev.EventName))
		set(7, util.Deref(ev.EventType))
		set(8, util.Deref(ev.Organization))
		set(9, util.Deref(ev.LectureTitle))
		set(10, strings.Join(ev.InstructorNames, "; "))
		set(11, resourceSummary(ev.Resources))
	}
	_ = f.SetPanes(sheetEvents, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	if err := writeGridSheet(f, calendar.BuildGrid(events)); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func writeGridSheet(f *excelize.File, g *calendar.Grid) error {
	if _, err := f.NewSheet(sheetGrid); err != nil {
		return err
	}
	_ = f.SetCellValue(sheetGrid, "A1", "date")
	for c, room := range g.Rooms {
		cell, _ := excelize.CoordinatesToCellName(c+2, 1)
		_ = f.SetCellValue(sheetGrid, cell, room)
	}
	for r, date := range g.Dates {
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		_ = f.SetCellValue(sheetGrid, cell, date)
		for c, room := range g.Rooms {
			var lines []string
			for _, ev := range g.At(date, room) {
				lines = append(lines, fmt.Sprintf("%s-%s %s", hhmm(ev.StartTime), hhmm(ev.EndTime), util.Deref(ev.EventName)))
			}
			if len(lines) == 0 {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(c+2, r+2)
			_ = f.SetCellValue(sheetGrid, cell, strings.Join(lines, "\n"))
		}
	}
	return nil
}

func resourceSummary(resources []internal.Resource) string {
	parts := make([]string, 0, len(resources))
	for _, res := range resources {
		part := fmt.Sprintf("%d x %s", res.Quantity, res.ItemName)
		if res.Instruction != nil {
			if note := util.HTMLToText(*res.Instruction); note != "" {
				part += " (" + note + ")"
			}
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, "; ")
}

func hhmm(clock string) string {
	if len(clock) >= 5 {
		return clock[:5]
	}
	return clock
}
