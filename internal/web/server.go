// Package web serves the recorded invocation history over a JSON API and
// pushes completed invocations to WebSocket subscribers.
package web

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gitsift/gitsift/internal/analytics"
	"github.com/gitsift/gitsift/internal/db"
	"github.com/gitsift/gitsift/internal/history"
)

// Server is the read-only history and analytics server. It subscribes to
// the history recorder; every completed invocation is pushed to connected
// WebSocket clients as it is recorded.
type Server struct {
	recorder *history.Recorder
	database *db.DB // nil disables the persisted endpoints
	addr     string
	hub      *hub
}

// NewServer creates a Server. database may be nil, in which case the
// invocation endpoints serve the in-process history only and the
// analytics endpoints report 404.
func NewServer(recorder *history.Recorder, database *db.DB, addr string) *Server {
	return &Server{
		recorder: recorder,
		database: database,
		addr:     addr,
		hub:      newHub(),
	}
}

// Notify implements history.Observer. Only the fixed event key is
// broadcast so each invocation reaches clients once; the envelope carries
// the event key alongside the payload.
func (s *Server) Notify(key string, msg history.Message) {
	if key != history.EventKey {
		return
	}
	data, err := json.Marshal(map[string]interface{}{
		"event":      history.EventKey,
		"invocation": msg,
	})
	if err != nil {
		return
	}
	s.hub.broadcast(data)
}

// Handler returns an http.Handler with all routes configured.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws", s.hub.handleWebSocket)

	mux.HandleFunc("GET /api/invocations", s.handleListInvocations)
	mux.HandleFunc("GET /api/invocations/{id}", s.handleGetInvocation)
	mux.HandleFunc("GET /api/invocations/{id}/raw", s.handleRawLines)
	mux.HandleFunc("GET /api/invocations/{id}/records", s.handleRecords)
	mux.HandleFunc("GET /api/analytics/subcommands", s.handleSubcommandStats)
	mux.HandleFunc("GET /api/analytics/errors", s.handleTopErrors)
	mux.HandleFunc("GET /api/analytics/weekly", s.handleWeeklyVolume)

	return mux
}

// Start subscribes to the recorder and starts listening.
func (s *Server) Start() error {
	s.recorder.Subscribe(s)
	log.Printf("gitsift API: http://localhost%s", s.addr)
	return http.ListenAndServe(s.addr, s.Handler())
}

func (s *Server) handleListInvocations(w http.ResponseWriter, r *http.Request) {
	if s.database == nil {
		entries := s.recorder.Entries()
		writeJSON(w, map[string]interface{}{"invocations": entries})
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			httpError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", v))
			return
		}
		limit = n
	}
	rows, err := s.database.ListInvocations(r.URL.Query().Get("subcommand"), limit)
	if err != nil {
		httpError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, map[string]interface{}{"invocations": rows})
}

func (s *Server) handleGetInvocation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if s.database == nil {
		if entry := s.entryByID(id); entry != nil {
			writeJSON(w, entry)
			return
		}
		httpError(w, http.StatusNotFound, fmt.Errorf("invocation %s not found", id))
		return
	}
	row, err := s.database.GetInvocation(id)
	if err != nil {
		httpError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, row)
}

func (s *Server) handleRawLines(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if s.database == nil {
		if entry := s.entryByID(id); entry != nil {
			writeJSON(w, map[string]interface{}{"raw_lines": entry.RawLines})
			return
		}
		httpError(w, http.StatusNotFound, fmt.Errorf("invocation %s not found", id))
		return
	}
	if _, err := s.database.GetInvocation(id); err != nil {
		httpError(w, http.StatusNotFound, err)
		return
	}
	lines, err := s.database.RawLines(id)
	if err != nil {
		httpError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, map[string]interface{}{"raw_lines": lines})
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if s.database == nil {
		if entry := s.entryByID(id); entry != nil {
			writeJSON(w, map[string]interface{}{"records": entry.Records})
			return
		}
		httpError(w, http.StatusNotFound, fmt.Errorf("invocation %s not found", id))
		return
	}
	if _, err := s.database.GetInvocation(id); err != nil {
		httpError(w, http.StatusNotFound, err)
		return
	}
	records, err := s.database.Records(id)
	if err != nil {
		httpError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, map[string]interface{}{"records": records})
}

func (s *Server) handleSubcommandStats(w http.ResponseWriter, r *http.Request) {
	if s.database == nil {
		http.NotFound(w, r)
		return
	}
	stats, err := analytics.QuerySubcommandStats(s.database, r.URL.Query().Get("since"))
	if err != nil {
		httpError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, map[string]interface{}{"subcommands": stats})
}

func (s *Server) handleTopErrors(w http.ResponseWriter, r *http.Request) {
	if s.database == nil {
		http.NotFound(w, r)
		return
	}
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			httpError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", v))
			return
		}
		limit = n
	}
	errs, err := analytics.QueryTopErrors(s.database, limit)
	if err != nil {
		httpError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, map[string]interface{}{"errors": errs})
}

func (s *Server) handleWeeklyVolume(w http.ResponseWriter, r *http.Request) {
	if s.database == nil {
		http.NotFound(w, r)
		return
	}
	weeks, err := analytics.QueryWeeklyVolume(s.database, r.URL.Query().Get("since"))
	if err != nil {
		httpError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, map[string]interface{}{"weeks": weeks})
}

func (s *Server) entryByID(id string) *history.Entry {
	for _, e := range s.recorder.Entries() {
		if e.Key.InvocationID == id {
			return e
		}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func httpError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
