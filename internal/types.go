package internal

import "encoding/json"

// RawEventRecord is one 25Live reservation occurrence as delivered by the
// availability grid, with the event detail payload attached.
type RawEventRecord struct {
	ItemID          Int         `json:"itemId"`
	ItemID2         Int         `json:"itemId2"`
	SubjectItemID   Int         `json:"subjectItemId"`
	ItemName        Text        `json:"itemName"`
	SubjectItemName Text        `json:"subjectItemName"`
	SubjectItemDate Text        `json:"subjectItemDate"`
	Start           Number      `json:"start"`
	End             Number      `json:"end"`
	ItemDetails     ItemDetails `json:"itemDetails"`

	// source is the object the record was decoded from. Keys the pipeline
	// does not model are re-emitted from it on encode.
	source json.RawMessage
}

func (r *RawEventRecord) UnmarshalJSON(data []byte) error {
	type plain RawEventRecord
	*r = RawEventRecord{}
	if err := decodeObject(data, (*plain)(r)); err != nil {
		return err
	}
	r.source = captureObject(data)
	return nil
}

func (r RawEventRecord) MarshalJSON() ([]byte, error) {
	type plain RawEventRecord
	return replaySource(r.source, plain(r))
}

// ItemDetails is the evdetail payload. Only the parts the pipeline reads are
// modelled; everything else is ignored on decode.
type ItemDetails struct {
	Defn  Definition `json:"defn"`
	Occur Occurrence `json:"occur"`

	source json.RawMessage
}

func (d *ItemDetails) UnmarshalJSON(data []byte) error {
	type plain ItemDetails
	*d = ItemDetails{}
	if err := decodeObject(data, (*plain)(d)); err != nil {
		return err
	}
	d.source = captureObject(data)
	return nil
}

func (d ItemDetails) MarshalJSON() ([]byte, error) {
	type plain ItemDetails
	return replaySource(d.source, plain(d))
}

type Definition struct {
	Panel List[Panel] `json:"panel"`
}

func (d *Definition) UnmarshalJSON(data []byte) error {
	type plain Definition
	*d = Definition{}
	return decodeObject(data, (*plain)(d))
}

// Panel is one section of the event definition. typeId 11 carries the event
// summary, 12 and 13 carry contacts and custom attributes.
type Panel struct {
	TypeID Int              `json:"typeId"`
	Item   List[DetailItem] `json:"item"`
}

func (p *Panel) UnmarshalJSON(data []byte) error {
	type plain Panel
	*p = Panel{}
	return decodeObject(data, (*plain)(p))
}

type DetailItem struct {
	ItemName Text             `json:"itemName"`
	Item     List[DetailItem] `json:"item"`
}

func (i *DetailItem) UnmarshalJSON(data []byte) error {
	type plain DetailItem
	*i = DetailItem{}
	return decodeObject(data, (*plain)(i))
}

type Occurrence struct {
	Prof List[Profile] `json:"prof"`
}

func (o *Occurrence) UnmarshalJSON(data []byte) error {
	type plain Occurrence
	*o = Occurrence{}
	return decodeObject(data, (*plain)(o))
}

type Profile struct {
	Rsv List[Reservation] `json:"rsv"`
}

func (p *Profile) UnmarshalJSON(data []byte) error {
	type plain Profile
	*p = Profile{}
	return decodeObject(data, (*plain)(p))
}

// Reservation is a single dated occurrence of the event with the resources
// booked for it.
type Reservation struct {
	StartDt Text                   `json:"startDt"`
	Res     List[ReservedResource] `json:"res"`
}

func (r *Reservation) UnmarshalJSON(data []byte) error {
	type plain Reservation
	*r = Reservation{}
	return decodeObject(data, (*plain)(r))
}

type ReservedResource struct {
	ItemName    Text   `json:"itemName"`
	Quantity    Number `json:"quantity"`
	Instruction Text   `json:"instruction"`
}

func (r *ReservedResource) UnmarshalJSON(data []byte) error {
	type plain ReservedResource
	*r = ReservedResource{}
	return decodeObject(data, (*plain)(r))
}

// Resource is the canonical form of a reserved resource.
type Resource struct {
	ItemName    string  `json:"itemName"`
	Quantity    int     `json:"quantity"`
	Instruction *string `json:"instruction"`
}

// CanonicalEvent is the row-level event entity. Field names are shared with
// the dashboard and must not change.
type CanonicalEvent struct {
	ID              int64           `json:"id"`
	Date            string          `json:"date"`
	StartTime       string          `json:"startTime"`
	EndTime         string          `json:"endTime"`
	EventName       *string         `json:"eventName"`
	EventType       *string         `json:"eventType"`
	Organization    *string         `json:"organization"`
	InstructorNames []string        `json:"instructorNames"`
	LectureTitle    *string         `json:"lectureTitle"`
	RoomName        *string         `json:"roomName"`
	Resources       []Resource      `json:"resources"`
	Raw             *RawEventRecord `json:"raw,omitempty"`
}

func (e CanonicalEvent) TypeIs(t string) bool {
	return e.EventType != nil && *e.EventType == t
}

// SyncWindow is an inclusive YYYY-MM-DD date range.
type SyncWindow struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// RunRow is one recorded sync run.
type RunRow struct {
	ID        int                `json:"id"`
	TraceID   string             `json:"traceId"`
	From      string             `json:"from"`
	To        string             `json:"to"`
	Timings   map[string]float64 `json:"timings"`
	Counts    map[string]int     `json:"counts"`
	CreatedAt string             `json:"createdAt"`
}

// JSON renders the record for the events.raw_json column.
func (r RawEventRecord) JSON() string {
	blob, err := json.Marshal(r)
	if err != nil {
		return "{}"
	}
	return string(blob)
}
