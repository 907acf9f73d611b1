package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"avsched/internal"
	"avsched/internal/calendar"
	"avsched/internal/storage"
)

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(); err != nil {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "error": err.Error()})
		return
	}
	last, err := s.db.GetMetadata(storage.MetaLastSync)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "lastSync": last})
}

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	filter, err := s.filterFrom(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	events, err := s.db.ListEvents(filter)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if events == nil {
		events = []internal.CanonicalEvent{}
	}
	s.writeJSON(w, http.StatusOK, events)
}

func (s *Server) getEvent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	ev, err := s.db.GetEvent(id)
	if errors.Is(err, storage.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if r.URL.Query().Get("raw") != "true" {
		ev.Raw = nil
	}
	s.writeJSON(w, http.StatusOK, ev)
}

func (s *Server) grid(w http.ResponseWriter, r *http.Request) {
	filter, err := s.filterFrom(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	events, err := s.db.ListEvents(filter)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	g := calendar.BuildGrid(events)
	conflicts := g.Conflicts()
	if conflicts == nil {
		conflicts = []calendar.Conflict{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"grid": g, "conflicts": conflicts})
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 500 {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", v))
			return
		}
		limit = n
	}
	runs, err := s.db.ListRuns(limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if runs == nil {
		runs = []internal.RunRow{}
	}
	s.writeJSON(w, http.StatusOK, runs)
}

func (s *Server) calendar(w http.ResponseWriter, r *http.Request) {
	filter, err := s.filterFrom(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	events, err := s.db.ListEvents(filter)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	name := "AV schedule"
	if filter.Room != "" {
		name += " " + filter.Room
	}
	body, err := calendar.RenderICS(events, s.loc, name)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	_, _ = w.Write([]byte(body))
}

// filterFrom reads from, to, room and type. Dates must be YYYY-MM-DD.
func (s *Server) filterFrom(r *http.Request) (storage.EventFilter, error) {
	q := r.URL.Query()
	f := storage.EventFilter{
		From:      q.Get("from"),
		To:        q.Get("to"),
		Room:      q.Get("room"),
		EventType: q.Get("type"),
	}
	for _, p := range []struct{ name, value string }{{"from", f.From}, {"to", f.To}} {
		if p.value == "" {
			continue
		}
		if _, err := time.Parse("2006-01-02", p.value); err != nil {
			return f, fmt.Errorf("invalid %s date %q", p.name, p.value)
		}
	}
	if f.From != "" && f.To != "" && f.To < f.From {
		return f, fmt.Errorf("to %s is before from %s", f.To, f.From)
	}
	return f, nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	if status >= 500 {
		s.log.Error("request failed", zap.Error(err))
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
