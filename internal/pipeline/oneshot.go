package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"avsched/internal"
)

// ReadRawRecords loads a saved 25Live feed: a JSON array of records, or an
// object wrapping that array under "records".
func ReadRawRecords(path string) ([]internal.RawEventRecord, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var records []internal.RawEventRecord
	if err := json.Unmarshal(blob, &records); err == nil {
		return records, nil
	}
	var wrapped struct {
		Records []internal.RawEventRecord `json:"records"`
	}
	if err := json.Unmarshal(blob, &wrapped); err != nil {
		return nil, fmt.Errorf("decode feed %s: %w", path, err)
	}
	return wrapped.Records, nil
}

// WriteEventsJSON writes events as an indented JSON array. Raw payloads are
// only included when withRaw is set.
func WriteEventsJSON(events []internal.CanonicalEvent, path string, withRaw bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := EncodeEventsJSON(f, events, withRaw); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func EncodeEventsJSON(w io.Writer, events []internal.CanonicalEvent, withRaw bool) error {
	out := make([]internal.CanonicalEvent, len(events))
	for i, ev := range events {
		if !withRaw {
			ev.Raw = nil
		}
		out[i] = ev
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
