// Package api provides the HTTP API for observing and steering the town.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talgya/mini-town/internal/agents"
	"github.com/talgya/mini-town/internal/engine"
	"github.com/talgya/mini-town/internal/journal"
	"github.com/talgya/mini-town/internal/world"
)

const (
	maxStreamConns = 16
	streamBuffer   = 8
	writeWait      = 5 * time.Second
	pingPeriod     = 30 * time.Second
)

// Server serves the town over HTTP and a websocket stream.
type Server struct {
	Eng      *engine.Engine
	Journal  *journal.DB // optional; diary and story endpoints return 404 without it
	Grid     *world.Grid
	Places   world.Places
	Addr     string
	AdminKey string // Bearer token for POST endpoints and stream control. Empty = control disabled.

	hub         *hub
	upgrader    websocket.Upgrader
	streamConns atomic.Int32
	control     *RateLimiter
}

// NewServer creates a server for eng.
func NewServer(eng *engine.Engine, addr, adminKey string) *Server {
	return &Server{
		Eng:      eng,
		Addr:     addr,
		AdminKey: adminKey,
		hub:      newHub(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		control: NewRateLimiter(30, time.Minute),
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Public endpoints (GET, read-only).
	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("GET /api/v1/agents", s.handleAgents)
	mux.HandleFunc("GET /api/v1/agent/{id}", s.handleAgent)
	mux.HandleFunc("GET /api/v1/agent/{id}/memories", s.handleMemories)
	mux.HandleFunc("GET /api/v1/agent/{id}/diary", s.handleDiary)
	mux.HandleFunc("GET /api/v1/events", s.handleEvents)
	mux.HandleFunc("GET /api/v1/story", s.handleStory)
	mux.HandleFunc("GET /api/v1/map", s.handleMap)
	mux.HandleFunc("GET /api/v1/stream", s.handleStream)

	// Admin endpoints (POST, require bearer token).
	mux.HandleFunc("POST /api/v1/pause", RateLimitMiddleware(s.control, s.adminOnly(s.handlePause)))
	mux.HandleFunc("POST /api/v1/resume", RateLimitMiddleware(s.control, s.adminOnly(s.handleResume)))

	return corsMiddleware(mux)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", s.Addr, "admin_auth", s.AdminKey != "")

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errc
		return nil
	}
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set TOWNSIM_CORS_ORIGINS to a comma-separated list of extra origins.
// Localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("TOWNSIM_CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request carries the admin token,
// either as a bearer header or, for browser websockets, a token parameter.
func (s *Server) checkBearerToken(r *http.Request) bool {
	if s.AdminKey == "" {
		return false
	}
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
	}
	return r.URL.Query().Get("token") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.AdminKey == "" {
			http.Error(w, "admin endpoints disabled (no TOWNSIM_ADMIN_KEY set)", http.StatusForbidden)
			return
		}
		if !s.checkBearerToken(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.Eng.Snapshot()
	status := map[string]any{
		"run_id": snap.RunID,
		"tick":   snap.Tick,
		"time":   snap.Time,
		"day":    snap.Day,
		"paused": s.Eng.Paused(),
		"agents": len(snap.Agents),
		"stats":  s.Eng.Stats(),
		"stream": s.hub.size(),
	}
	if s.Journal != nil {
		v, err := s.Journal.GetMeta(journal.MetaLastDayTick)
		switch {
		case err == nil:
			if tick, err := strconv.ParseUint(v, 10, 64); err == nil {
				status["last_saved_day_tick"] = tick
			}
		case !errors.Is(err, journal.ErrNotFound):
			slog.Error("meta lookup failed", "key", journal.MetaLastDayTick, "error", err)
		}
	}
	writeJSON(w, status)
}

// fromJournal reports whether the request asks for the persisted history
// (?source=journal) rather than the engine's in-memory window.
func fromJournal(r *http.Request) bool {
	return r.URL.Query().Get("source") == "journal"
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Eng.Snapshot().Agents)
}

func (s *Server) handleAgent(w http.ResponseWriter, r *http.Request) {
	a, ok := s.Eng.Snapshot().Agent(r.PathValue("id"))
	if !ok {
		http.Error(w, "agent not found", http.StatusNotFound)
		return
	}
	writeJSON(w, a)
}

// dayParam reads ?day=N (0 = Monday). Missing means def.
func dayParam(r *http.Request, def int) (int, bool) {
	v := r.URL.Query().Get("day")
	if v == "" {
		return def, true
	}
	if d, ok := world.DayIndex(v); ok {
		return d, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 || n > 6 {
		return 0, false
	}
	return n, true
}

func (s *Server) handleMemories(w http.ResponseWriter, r *http.Request) {
	if fromJournal(r) {
		s.handleJournalMemories(w, r)
		return
	}
	day, ok := dayParam(r, -1)
	if !ok {
		http.Error(w, "invalid day", http.StatusBadRequest)
		return
	}
	mems, ok := s.Eng.Memories(r.PathValue("id"), day)
	if !ok {
		http.Error(w, "agent not found", http.StatusNotFound)
		return
	}
	if mems == nil {
		mems = []agents.Memory{}
	}
	writeJSON(w, mems)
}

// handleJournalMemories serves every saved memory of one weekday, across
// all weeks of the journal, oldest first.
func (s *Server) handleJournalMemories(w http.ResponseWriter, r *http.Request) {
	if s.Journal == nil {
		http.Error(w, "journal disabled", http.StatusNotFound)
		return
	}
	id := r.PathValue("id")
	if _, ok := s.Eng.AgentName(id); !ok {
		http.Error(w, "agent not found", http.StatusNotFound)
		return
	}
	day, ok := dayParam(r, s.previousDay())
	if !ok {
		http.Error(w, "invalid day", http.StatusBadRequest)
		return
	}
	mems, err := s.Journal.Memories(id, day)
	if err != nil {
		slog.Error("memory lookup failed", "agent", id, "day", day, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if mems == nil {
		mems = []agents.Memory{}
	}
	writeJSON(w, mems)
}

func (s *Server) handleDiary(w http.ResponseWriter, r *http.Request) {
	if s.Journal == nil {
		http.Error(w, "journal disabled", http.StatusNotFound)
		return
	}
	day, ok := dayParam(r, s.previousDay())
	if !ok {
		http.Error(w, "invalid day", http.StatusBadRequest)
		return
	}
	e, err := s.Journal.Diary(r.PathValue("id"), day)
	if errors.Is(err, journal.ErrNotFound) {
		http.Error(w, "no diary for that day", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("diary lookup failed", "agent", r.PathValue("id"), "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, e)
}

func (s *Server) handleStory(w http.ResponseWriter, r *http.Request) {
	if s.Journal == nil {
		http.Error(w, "journal disabled", http.StatusNotFound)
		return
	}
	day, ok := dayParam(r, s.previousDay())
	if !ok {
		http.Error(w, "invalid day", http.StatusBadRequest)
		return
	}
	stories, err := s.Journal.Entries(journal.KindStory, day)
	if err != nil {
		slog.Error("story lookup failed", "day", day, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if len(stories) == 0 {
		http.Error(w, "no story for that day", http.StatusNotFound)
		return
	}
	writeJSON(w, stories[len(stories)-1])
}

// previousDay is the most recently finished day.
func (s *Server) previousDay() int {
	return (s.Eng.Snapshot().DayIndex + 6) % 7
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	var events []engine.Event
	if fromJournal(r) {
		if s.Journal == nil {
			http.Error(w, "journal disabled", http.StatusNotFound)
			return
		}
		var err error
		if events, err = s.Journal.RecentEvents(limit); err != nil {
			slog.Error("event lookup failed", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
	} else {
		events = s.Eng.RecentEvents(limit)
	}
	if events == nil {
		events = []engine.Event{}
	}
	if agent := r.URL.Query().Get("agent"); agent != "" {
		filtered := events[:0]
		for _, e := range events {
			if e.AgentID == agent {
				filtered = append(filtered, e)
			}
		}
		events = filtered
	}
	writeJSON(w, events)
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	if s.Grid == nil {
		http.Error(w, "map unavailable", http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]any{
		"width":  s.Grid.Width,
		"height": s.Grid.Height,
		"rows":   s.Grid.Rows(),
		"places": s.Places,
	})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.Eng.Pause()
	s.broadcastStatus()
	writeJSON(w, map[string]bool{"paused": true})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.Eng.Resume()
	s.broadcastStatus()
	writeJSON(w, map[string]bool{"paused": false})
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
