package pipeline

import (
	"avsched/internal"
	"avsched/internal/util"
)

func sp(v string) *string { return &v }

func text(v string) internal.Text { return internal.NewText(v) }

func item(name string, children ...internal.DetailItem) internal.DetailItem {
	return internal.DetailItem{ItemName: text(name), Item: children}
}

// summary builds a typeId 11 panel with the positions the extractor reads:
// [1] lecture title, [2] event type, [6][0] organization, [8][0] account.
func summary(title, eventType, org, account string) internal.Panel {
	items := make(internal.List[internal.DetailItem], 9)
	items[0] = item("Event Summary")
	items[1] = item(title)
	items[2] = item(eventType)
	items[6] = item("Organization", item(org))
	items[8] = item("Billing", item(account))
	return internal.Panel{TypeID: 11, Item: items}
}

// sessionPanel is the second panel checked by the academic-session filter.
func sessionPanel(label string) internal.Panel {
	return internal.Panel{TypeID: 2, Item: internal.List[internal.DetailItem]{item(label)}}
}

func details(panels ...internal.Panel) internal.ItemDetails {
	return internal.ItemDetails{Defn: internal.Definition{Panel: panels}}
}

func record(itemID, itemID2, subjectID int64, name, subject, date string, start, end float64) internal.RawEventRecord {
	return internal.RawEventRecord{
		ItemID:          internal.Int(itemID),
		ItemID2:         internal.Int(itemID2),
		SubjectItemID:   internal.Int(subjectID),
		ItemName:        text(name),
		SubjectItemName: text(subject),
		SubjectItemDate: text(date),
		Start:           internal.Number(start),
		End:             internal.Number(end),
	}
}

func event(id int64, date, name, room, start, end string) internal.CanonicalEvent {
	return internal.CanonicalEvent{
		ID:        id,
		Date:      date,
		StartTime: start,
		EndTime:   end,
		EventName: sp(name),
		RoomName:  sp(room),
		Resources: []internal.Resource{},
	}
}

func rooms(events []internal.CanonicalEvent) []string {
	out := make([]string, 0, len(events))
	for _, ev := range events {
		out = append(out, util.Deref(ev.RoomName))
	}
	return out
}
