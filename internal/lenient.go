package internal

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// The 25Live payloads are loosely typed: the same key can hold a string, a
// number, an object or an array depending on the record. The wrappers below
// decode whatever they can and fall back to their zero value otherwise, so a
// shape mismatch deep in itemDetails never fails the whole record.

// Text is a nullable string.
type Text struct {
	Value string
	Valid bool
}

func NewText(s string) Text { return Text{Value: s, Valid: true} }

func (t *Text) UnmarshalJSON(data []byte) error {
	*t = Text{}
	if isNull(data) {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = Text{Value: s, Valid: true}
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*t = Text{Value: n.String(), Valid: true}
	}
	return nil
}

func (t Text) MarshalJSON() ([]byte, error) {
	if !t.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(t.Value)
}

// Ptr returns nil for a missing or blank value.
func (t Text) Ptr() *string {
	if !t.Valid || strings.TrimSpace(t.Value) == "" {
		return nil
	}
	v := t.Value
	return &v
}

// Int is an integer that also accepts numeric strings and integral floats.
type Int int64

func (i *Int) UnmarshalJSON(data []byte) error {
	*i = 0
	if v, ok := parseNumber(data); ok && v == math.Trunc(v) && math.Abs(v) < 1<<63 {
		// Large ids lose precision through float64; take the exact digits when we can.
		if n, err := strconv.ParseInt(strings.Trim(string(bytes.TrimSpace(data)), `"`), 10, 64); err == nil {
			*i = Int(n)
			return nil
		}
		*i = Int(v)
	}
	return nil
}

// Number is a float that also accepts numeric strings.
type Number float64

func (n *Number) UnmarshalJSON(data []byte) error {
	*n = 0
	if v, ok := parseNumber(data); ok {
		*n = Number(v)
	}
	return nil
}

func parseNumber(data []byte) (float64, bool) {
	var num json.Number
	if err := json.Unmarshal(data, &num); err == nil {
		v, err := num.Float64()
		return v, err == nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		return v, err == nil
	}
	return 0, false
}

// List decodes a JSON array element by element. A non-array value yields an
// empty list and an element that does not decode keeps its slot as a zero
// value, so positional lookups stay aligned with the source.
type List[T any] []T

func (l *List[T]) UnmarshalJSON(data []byte) error {
	*l = nil
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	out := make(List[T], len(raw))
	for i, elem := range raw {
		var v T
		if err := json.Unmarshal(elem, &v); err == nil {
			out[i] = v
		}
	}
	*l = out
	return nil
}

// At is a bounds-checked index.
func (l List[T]) At(i int) (T, bool) {
	if i < 0 || i >= len(l) {
		var zero T
		return zero, false
	}
	return l[i], true
}

// decodeObject unmarshals data into v only when data is a JSON object.
func decodeObject(data []byte, v any) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil
	}
	_ = json.Unmarshal(trimmed, v)
	return nil
}

func isNull(data []byte) bool {
	return bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}

// captureObject copies data when it holds a JSON object.
func captureObject(data []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil
	}
	return append(json.RawMessage(nil), trimmed...)
}

// replaySource encodes current. When source is set the original object is
// returned instead, with only the top-level keys whose modelled value changed
// since decoding replaced by their current encoding.
func replaySource[T any](source json.RawMessage, current T) ([]byte, error) {
	encoded, err := json.Marshal(current)
	if err != nil || len(source) == 0 {
		return encoded, err
	}

	var original map[string]json.RawMessage
	if err := json.Unmarshal(source, &original); err != nil {
		return encoded, nil
	}
	var decoded T
	_ = json.Unmarshal(source, &decoded)
	baseline, err := json.Marshal(decoded)
	if err != nil {
		return encoded, nil
	}

	var now, was map[string]json.RawMessage
	if json.Unmarshal(encoded, &now) != nil || json.Unmarshal(baseline, &was) != nil {
		return encoded, nil
	}
	changed := false
	for key, value := range now {
		if bytes.Equal(value, was[key]) {
			continue
		}
		original[key] = value
		changed = true
	}
	if !changed {
		return source, nil
	}
	return json.Marshal(original)
}
