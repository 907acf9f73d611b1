package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"avsched/internal"
)

var ErrNotFound = errors.New("not found")

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) Ping() error {
	return d.conn.Ping()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS events (
  id INTEGER PRIMARY KEY,
  date TEXT NOT NULL,
  startTime TEXT NOT NULL,
  endTime TEXT NOT NULL,
  eventName TEXT,
  eventType TEXT,
  organization TEXT,
  instructorNames TEXT,
  lectureTitle TEXT,
  roomName TEXT,
  resources TEXT NOT NULL DEFAULT '[]',
  raw_json TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  lastSeenAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_events_date ON events(date);
CREATE INDEX IF NOT EXISTS idx_events_room_date ON events(roomName, date);

CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  traceId TEXT NOT NULL,
  windowFrom TEXT,
  windowTo TEXT,
  timingsJson TEXT NOT NULL,
  countsJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

// UpsertEvents writes events keyed by their deterministic id, so replaying
// the same feed updates rows in place.
func (d *DB) UpsertEvents(events []internal.CanonicalEvent) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
INSERT INTO events (
  id, date, startTime, endTime, eventName, eventType, organization,
  instructorNames, lectureTitle, roomName, resources, raw_json, lastSeenAt
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(id) DO UPDATE SET
  date=excluded.date,
  startTime=excluded.startTime,
  endTime=excluded.endTime,
  eventName=excluded.eventName,
  eventType=excluded.eventType,
  organization=excluded.organization,
  instructorNames=excluded.instructorNames,
  lectureTitle=excluded.lectureTitle,
  roomName=excluded.roomName,
  resources=excluded.resources,
  raw_json=excluded.raw_json,
  lastSeenAt=CURRENT_TIMESTAMP
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, ev := range events {
		var instructors *string
		if ev.InstructorNames != nil {
			blob, _ := json.Marshal(ev.InstructorNames)
			s := string(blob)
			instructors = &s
		}
		resources := ev.Resources
		if resources == nil {
			resources = []internal.Resource{}
		}
		resourcesJSON, _ := json.Marshal(resources)
		rawJSON := "{}"
		if ev.Raw != nil {
			rawJSON = ev.Raw.JSON()
		}
		if _, err := stmt.Exec(
			ev.ID, ev.Date, ev.StartTime, ev.EndTime, ev.EventName, ev.EventType, ev.Organization,
			instructors, ev.LectureTitle, ev.RoomName, string(resourcesJSON), rawJSON,
		); err != nil {
			return fmt.Errorf("upsert event %d: %w", ev.ID, err)
		}
	}

	return tx.Commit()
}

type EventFilter struct {
	From      string
	To        string
	Room      string
	EventType string
	// IncludeRaw loads the stored source record into Raw.
	IncludeRaw bool
}

const eventColumns = `id, date, startTime, endTime, eventName, eventType, organization,
       instructorNames, lectureTitle, roomName, resources, raw_json`

func (d *DB) ListEvents(f EventFilter) ([]internal.CanonicalEvent, error) {
	var where []string
	var args []any
	if f.From != "" {
		where = append(where, "date >= ?")
		args = append(args, f.From)
	}
	if f.To != "" {
		where = append(where, "date <= ?")
		args = append(args, f.To)
	}
	if f.Room != "" {
		where = append(where, "roomName = ?")
		args = append(args, f.Room)
	}
	if f.EventType != "" {
		where = append(where, "eventType = ?")
		args = append(args, f.EventType)
	}

	query := `SELECT ` + eventColumns + ` FROM events`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date ASC, roomName ASC, startTime ASC, id ASC"

	rows, err := d.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.CanonicalEvent
	for rows.Next() {
		ev, err := scanEvent(rows, f.IncludeRaw)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (d *DB) GetEvent(id int64) (internal.CanonicalEvent, error) {
	row := d.conn.QueryRow(`SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	ev, err := scanEvent(row, true)
	if errors.Is(err, sql.ErrNoRows) {
		return internal.CanonicalEvent{}, fmt.Errorf("event %d: %w", id, ErrNotFound)
	}
	return ev, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(s scanner, includeRaw bool) (internal.CanonicalEvent, error) {
	var ev internal.CanonicalEvent
	var instructors *string
	var resourcesJSON, rawJSON string
	if err := s.Scan(
		&ev.ID, &ev.Date, &ev.StartTime, &ev.EndTime, &ev.EventName, &ev.EventType, &ev.Organization,
		&instructors, &ev.LectureTitle, &ev.RoomName, &resourcesJSON, &rawJSON,
	); err != nil {
		return internal.CanonicalEvent{}, err
	}
	if instructors != nil {
		_ = json.Unmarshal([]byte(*instructors), &ev.InstructorNames)
	}
	ev.Resources = []internal.Resource{}
	_ = json.Unmarshal([]byte(resourcesJSON), &ev.Resources)
	if includeRaw {
		var raw internal.RawEventRecord
		if err := json.Unmarshal([]byte(rawJSON), &raw); err == nil {
			ev.Raw = &raw
		}
	}
	return ev, nil
}

// PruneEvents deletes events dated inside window that are not in keep. It is
// used after a full-window sync to drop bookings 25Live no longer returns.
func (d *DB) PruneEvents(window internal.SyncWindow, keep []int64) (int64, error) {
	if keep == nil {
		keep = []int64{}
	}
	keepJSON, err := json.Marshal(keep)
	if err != nil {
		return 0, err
	}
	res, err := d.conn.Exec(`
DELETE FROM events
WHERE date >= ? AND date <= ?
  AND id NOT IN (SELECT value FROM json_each(?))
`, window.From, window.To, string(keepJSON))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (d *DB) InsertRun(traceID string, window internal.SyncWindow, timings map[string]float64, counts map[string]int) error {
	timingsJSON, _ := json.Marshal(timings)
	countsJSON, _ := json.Marshal(counts)
	_, err := d.conn.Exec(`INSERT INTO runs (traceId, windowFrom, windowTo, timingsJson, countsJson) VALUES (?, ?, ?, ?, ?)`,
		traceID, window.From, window.To, string(timingsJSON), string(countsJSON))
	return err
}

func (d *DB) ListRuns(limit int) ([]internal.RunRow, error) {
	rows, err := d.conn.Query(`
SELECT id, traceId, windowFrom, windowTo, timingsJson, countsJson, createdAt
FROM runs ORDER BY id DESC LIMIT ?
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.RunRow
	for rows.Next() {
		var row internal.RunRow
		var timingsJSON, countsJSON string
		var from, to sql.NullString
		if err := rows.Scan(&row.ID, &row.TraceID, &from, &to, &timingsJSON, &countsJSON, &row.CreatedAt); err != nil {
			return nil, err
		}
		row.From, row.To = from.String, to.String
		_ = json.Unmarshal([]byte(timingsJSON), &row.Timings)
		_ = json.Unmarshal([]byte(countsJSON), &row.Counts)
		out = append(out, row)
	}
	return out, rows.Err()
}

// MetaLastSync holds the RFC 3339 time of the last successful sync.
const MetaLastSync = "r25.last_sync"

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}
