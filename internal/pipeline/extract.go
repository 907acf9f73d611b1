package pipeline

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"avsched/internal"
	"avsched/internal/util"
)

const (
	EventTypeKEC = "KEC"
	EventTypeCMC = "CMC"

	panelSummary    = 11
	panelContacts   = 12
	panelAttributes = 13
)

var (
	kecOrganizations = map[string]struct{}{
		"Kellogg Executive Education Programs": {},
		"Kellogg Executive MBA Program":        {},
	}
	cmcAccount = "RES CMC, KSM"

	reLectureRoom  = regexp.MustCompile(`KGHL(\d+)`)
	reStandardRoom = regexp.MustCompile(`KGH(\d+)([AB])?`)
)

// Extract derives a canonical event from one raw record. It returns false
// when the record is not a real booking (see Keep).
func Extract(rec internal.RawEventRecord) (internal.CanonicalEvent, bool) {
	if !Keep(rec) {
		return internal.CanonicalEvent{}, false
	}

	raw := rec
	date := EventDate(rec.SubjectItemDate.Value)
	return internal.CanonicalEvent{
		ID:              EventID(int64(rec.ItemID), int64(rec.ItemID2), int64(rec.SubjectItemID)),
		Date:            date,
		StartTime:       DecimalHoursToClock(float64(rec.Start)),
		EndTime:         DecimalHoursToClock(float64(rec.End)),
		EventName:       rec.ItemName.Ptr(),
		EventType:       EventType(rec.ItemDetails),
		Organization:    Organization(rec.ItemDetails),
		InstructorNames: InstructorNames(rec.ItemDetails),
		LectureTitle:    LectureTitle(rec.ItemDetails),
		RoomName:        RoomName(rec.SubjectItemName.Value),
		Resources:       Resources(rec.ItemDetails, date),
		Raw:             &raw,
	}, true
}

// EventDate returns the YYYY-MM-DD part of an ISO-like timestamp.
func EventDate(value string) string {
	value = strings.TrimSpace(value)
	if i := strings.IndexAny(value, "T "); i >= 0 {
		value = value[:i]
	}
	return value
}

// DecimalHoursToClock converts fractional hours (13.5) to "13:30:00".
func DecimalHoursToClock(hours float64) string {
	h := int(math.Floor(hours))
	m := int(math.Round((hours - float64(h)) * 60))
	if m == 60 {
		h++
		m = 0
	}
	return fmt.Sprintf("%02d:%02d:00", h, m)
}

func summaryPanel(d internal.ItemDetails) (internal.Panel, bool) {
	for _, p := range d.Defn.Panel {
		if p.TypeID == panelSummary {
			return p, true
		}
	}
	return internal.Panel{}, false
}

// itemName follows the item path (item[i].item[j]...) from a panel.
func itemName(p internal.Panel, path ...int) internal.Text {
	items := p.Item
	var cur internal.DetailItem
	for _, idx := range path {
		next, ok := items.At(idx)
		if !ok {
			return internal.Text{}
		}
		cur = next
		items = next.Item
	}
	return cur.ItemName
}

// EventType resolves the event type. The executive-education and CMC
// organisations override the generic type field.
func EventType(d internal.ItemDetails) *string {
	p, ok := summaryPanel(d)
	if !ok {
		return nil
	}
	if org := itemName(p, 6, 0); org.Valid {
		if _, ok := kecOrganizations[org.Value]; ok {
			return util.StringPtr(EventTypeKEC)
		}
	}
	if acct := itemName(p, 8, 0); acct.Valid && acct.Value == cmcAccount {
		return util.StringPtr(EventTypeCMC)
	}
	return itemName(p, 2).Ptr()
}

func Organization(d internal.ItemDetails) *string {
	p, ok := summaryPanel(d)
	if !ok {
		return nil
	}
	return itemName(p, 6, 0).Ptr()
}

func LectureTitle(d internal.ItemDetails) *string {
	p, ok := summaryPanel(d)
	if !ok {
		return nil
	}
	return itemName(p, 1).Ptr()
}

// InstructorNames returns the first plausible instructor list found in the
// contact (12) or attribute (13) panels, or nil.
func InstructorNames(d internal.ItemDetails) []string {
	for _, p := range d.Defn.Panel {
		switch p.TypeID {
		case panelContacts:
			for _, item := range p.Item {
				if names := splitInstructors(item.ItemName); names != nil {
					return names
				}
			}
		case panelAttributes:
			for _, group := range p.Item {
				for _, item := range group.Item {
					if names := splitInstructors(item.ItemName); names != nil {
						return names
					}
				}
			}
		}
	}
	return nil
}

func splitInstructors(t internal.Text) []string {
	if !t.Valid {
		return nil
	}
	value := strings.TrimSpace(t.Value)
	value = strings.TrimSpace(strings.TrimPrefix(value, "Instructors:"))
	if !plausibleName(value) {
		return nil
	}

	var names []string
	seen := map[string]struct{}{}
	for _, part := range strings.Split(value, "; ") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if _, dup := seen[part]; dup {
			continue
		}
		seen[part] = struct{}{}
		names = append(names, part)
	}
	return names
}

// plausibleName rejects values that are still unrendered template markup.
func plausibleName(value string) bool {
	n := utf8.RuneCountInString(value)
	if n <= 2 || n >= 100 {
		return false
	}
	if strings.HasPrefix(value, "<") {
		return false
	}
	return !strings.ContainsAny(value, "{}")
}

// RoomName canonicalises a compact subject code such as "KGH1110 (70)".
func RoomName(subject string) *string {
	if m := reLectureRoom.FindStringSubmatch(subject); m != nil {
		return util.StringPtr("GH L" + m[1])
	}
	if m := reStandardRoom.FindStringSubmatch(subject); m != nil {
		return util.StringPtr("GH " + m[1] + m[2])
	}
	return nil
}

// Resources returns the resources booked on the reservation occurring on
// date. A record can carry several dated reservations; only the matching one
// counts.
func Resources(d internal.ItemDetails, date string) []internal.Resource {
	out := []internal.Resource{}
	for _, prof := range d.Occur.Prof {
		for _, rsv := range prof.Rsv {
			if !rsv.StartDt.Valid || EventDate(rsv.StartDt.Value) != date {
				continue
			}
			for _, res := range rsv.Res {
				out = append(out, internal.Resource{
					ItemName:    res.ItemName.Value,
					Quantity:    int(math.Round(float64(res.Quantity))),
					Instruction: res.Instruction.Ptr(),
				})
			}
			return out
		}
	}
	return out
}
