package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/mini-town/internal/agents"
	"github.com/talgya/mini-town/internal/config"
	"github.com/talgya/mini-town/internal/engine"
	"github.com/talgya/mini-town/internal/journal"
	"github.com/talgya/mini-town/internal/world"
)

const adminKey = "secret"

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	f, err := config.Default()
	require.NoError(t, err)
	town, err := f.Build()
	require.NoError(t, err)
	sim, err := town.Simulation(slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	eng := engine.NewEngine(sim)
	for i := 0; i < 5; i++ {
		eng.Step()
	}

	s := NewServer(eng, "", adminKey)
	s.Grid = town.Grid
	s.Places = town.Places
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func post(t *testing.T, url, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	return resp
}

func TestStatusAndAgents(t *testing.T) {
	_, ts := newTestServer(t)

	var status map[string]any
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/v1/status", &status))
	assert.Equal(t, float64(5), status["tick"])
	assert.Equal(t, "07:10", status["time"])
	assert.Equal(t, false, status["paused"])
	assert.Equal(t, float64(6), status["agents"])

	var list []engine.AgentSnapshot
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/v1/agents", &list))
	assert.Len(t, list, 6)

	var one engine.AgentSnapshot
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/v1/agent/emily", &one))
	assert.Equal(t, "Emily Carter", one.Name)
	assert.Equal(t, http.StatusNotFound, getJSON(t, ts.URL+"/api/v1/agent/nobody", nil))
}

func TestMemories(t *testing.T) {
	s, ts := newTestServer(t)
	s.Eng.Step()

	var mems []agents.Memory
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/v1/agent/emily/memories?day=Monday", &mems))
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/v1/agent/emily/memories?day=0", &mems))
	assert.Equal(t, http.StatusBadRequest, getJSON(t, ts.URL+"/api/v1/agent/emily/memories?day=9", nil))
	assert.Equal(t, http.StatusBadRequest, getJSON(t, ts.URL+"/api/v1/agent/emily/memories?day=someday", nil))
	assert.Equal(t, http.StatusNotFound, getJSON(t, ts.URL+"/api/v1/agent/nobody/memories", nil))
}

func TestEventsAndMap(t *testing.T) {
	_, ts := newTestServer(t)

	var evs []engine.Event
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/v1/events?limit=3", &evs))
	assert.LessOrEqual(t, len(evs), 3)

	var m struct {
		Width  int                    `json:"width"`
		Height int                    `json:"height"`
		Rows   []string               `json:"rows"`
		Places map[string]world.Place `json:"places"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/v1/map", &m))
	assert.Equal(t, 30, m.Width)
	assert.Len(t, m.Rows, 22)
	assert.Contains(t, m.Places, "johnson_park")
}

func TestPauseResume_Auth(t *testing.T) {
	s, ts := newTestServer(t)

	assert.Equal(t, http.StatusUnauthorized, post(t, ts.URL+"/api/v1/pause", "").StatusCode)
	assert.Equal(t, http.StatusUnauthorized, post(t, ts.URL+"/api/v1/pause", "wrong").StatusCode)
	assert.False(t, s.Eng.Paused())

	assert.Equal(t, http.StatusOK, post(t, ts.URL+"/api/v1/pause", adminKey).StatusCode)
	assert.True(t, s.Eng.Paused())
	assert.Equal(t, http.StatusOK, post(t, ts.URL+"/api/v1/resume", adminKey).StatusCode)
	assert.False(t, s.Eng.Paused())

	resp, err := http.Get(ts.URL + "/api/v1/pause")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	s.AdminKey = ""
	assert.Equal(t, http.StatusForbidden, post(t, ts.URL+"/api/v1/pause", adminKey).StatusCode)
}

func TestJournalEndpoints(t *testing.T) {
	s, ts := newTestServer(t)
	assert.Equal(t, http.StatusNotFound, getJSON(t, ts.URL+"/api/v1/story", nil))

	db, err := journal.Open(journal.InMemory)
	require.NoError(t, err)
	defer db.Close()
	s.Journal = db

	_, err = db.SaveEntry(journal.Entry{Kind: journal.KindDiary, AgentID: "emily", Day: 6, DayName: "Sunday", Text: "Quiet day.", Source: "template"})
	require.NoError(t, err)
	_, err = db.SaveEntry(journal.Entry{Kind: journal.KindStory, Day: 6, DayName: "Sunday", Text: "The town rested.", Source: "template"})
	require.NoError(t, err)

	// The clock is on Monday, so the default is the Sunday just finished.
	var e journal.Entry
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/v1/agent/emily/diary", &e))
	assert.Equal(t, "Quiet day.", e.Text)
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/v1/story?day=Sunday", &e))
	assert.Equal(t, "The town rested.", e.Text)

	assert.Equal(t, http.StatusNotFound, getJSON(t, ts.URL+"/api/v1/agent/emily/diary?day=2", nil))
	assert.Equal(t, http.StatusNotFound, getJSON(t, ts.URL+"/api/v1/story?day=3", nil))
}

func dialStream(t *testing.T, ts *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/stream"
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

type frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var f frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func TestStream_SnapshotsAndControl(t *testing.T) {
	s, ts := newTestServer(t)
	conn := dialStream(t, ts, adminKey)

	hello := readFrame(t, conn)
	require.Equal(t, "snapshot", hello.Type)
	var snap engine.Snapshot
	require.NoError(t, json.Unmarshal(hello.Data, &snap))
	assert.Equal(t, uint64(5), snap.Tick)

	s.Publish(s.Eng.Step())
	next := readFrame(t, conn)
	require.Equal(t, "snapshot", next.Type)
	require.NoError(t, json.Unmarshal(next.Data, &snap))
	assert.Equal(t, uint64(6), snap.Tick)

	require.NoError(t, conn.WriteJSON(controlMsg{Type: "pause"}))
	status := readFrame(t, conn)
	require.Equal(t, "status", status.Type)
	assert.JSONEq(t, `{"paused":true}`, string(status.Data))
	assert.True(t, s.Eng.Paused())

	require.NoError(t, conn.WriteJSON(controlMsg{Type: "dance"}))
	bad := readFrame(t, conn)
	assert.Equal(t, "error", bad.Type)

	require.NoError(t, conn.WriteJSON(controlMsg{Type: "resume"}))
	status = readFrame(t, conn)
	assert.JSONEq(t, `{"paused":false}`, string(status.Data))
}

func TestStream_ControlNeedsToken(t *testing.T) {
	s, ts := newTestServer(t)
	conn := dialStream(t, ts, "")
	readFrame(t, conn)

	require.NoError(t, conn.WriteJSON(controlMsg{Type: "pause"}))
	f := readFrame(t, conn)
	assert.Equal(t, "error", f.Type)
	assert.JSONEq(t, `"unauthorized"`, string(f.Data))
	assert.False(t, s.Eng.Paused())
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	now := time.Unix(1000, 0)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("1.2.3.4"))
	assert.False(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("5.6.7.8"), "limits are per IP")
	assert.Equal(t, 61, rl.RetryAfter("1.2.3.4"))

	now = now.Add(time.Minute)
	assert.True(t, rl.Allow("1.2.3.4"))
	assert.Zero(t, rl.RetryAfter("9.9.9.9"))
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter(1, time.Hour)
	h := RateLimitMiddleware(rl, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	rec := httptest.NewRecorder()
	h(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	req.Header.Set("X-Forwarded-For", "10.0.0.2, 10.0.0.1")
	rec = httptest.NewRecorder()
	h(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestStream_ControlIsRateLimited(t *testing.T) {
	s, ts := newTestServer(t)
	s.control = NewRateLimiter(1, time.Hour)
	conn := dialStream(t, ts, adminKey)
	readFrame(t, conn)

	require.NoError(t, conn.WriteJSON(controlMsg{Type: "pause"}))
	assert.Equal(t, "status", readFrame(t, conn).Type)

	require.NoError(t, conn.WriteJSON(controlMsg{Type: "resume"}))
	f := readFrame(t, conn)
	assert.Equal(t, "error", f.Type)
	assert.JSONEq(t, `"rate limit exceeded"`, string(f.Data))
	assert.True(t, s.Eng.Paused())

	assert.Equal(t, http.StatusTooManyRequests, post(t, ts.URL+"/api/v1/resume", adminKey).StatusCode,
		"stream frames and HTTP share one budget")
}

func TestJournalHistory(t *testing.T) {
	s, ts := newTestServer(t)
	assert.Equal(t, http.StatusNotFound, getJSON(t, ts.URL+"/api/v1/events?source=journal", nil))
	assert.Equal(t, http.StatusNotFound, getJSON(t, ts.URL+"/api/v1/agent/emily/memories?source=journal", nil))

	db, err := journal.Open(journal.InMemory)
	require.NoError(t, err)
	defer db.Close()
	s.Journal = db

	var status map[string]any
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/v1/status", &status))
	assert.NotContains(t, status, "last_saved_day_tick")

	require.NoError(t, db.SaveEvents("run", []engine.Event{
		{Tick: 1, AgentID: "emily", Description: "old", Category: "movement"},
		{Tick: 2, AgentID: "ryan", Description: "other", Category: "movement"},
		{Tick: 3, AgentID: "emily", Description: "new", Category: "social"},
	}))
	require.NoError(t, db.SaveMemories("emily", []agents.Memory{
		{Seq: 1, Day: 6, DayName: "Sunday", Time: "10:00", Content: "Slept in.", Importance: 0.3},
		{Seq: 2, Day: 5, DayName: "Saturday", Time: "10:00", Content: "Went shopping.", Importance: 0.3},
	}))
	require.NoError(t, db.SaveMeta(journal.MetaLastDayTick, "720"))

	var evs []engine.Event
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/v1/events?source=journal&agent=emily", &evs))
	require.Len(t, evs, 2)
	assert.Equal(t, "new", evs[0].Description, "journal events come newest first")

	// Monday now, so the default is Sunday.
	var mems []agents.Memory
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/v1/agent/emily/memories?source=journal", &mems))
	require.Len(t, mems, 1)
	assert.Equal(t, "Slept in.", mems[0].Content)
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/v1/agent/emily/memories?source=journal&day=Tuesday", &mems))
	assert.Empty(t, mems)
	assert.Equal(t, http.StatusNotFound, getJSON(t, ts.URL+"/api/v1/agent/nobody/memories?source=journal", nil))

	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/v1/status", &status))
	assert.Equal(t, float64(720), status["last_saved_day_tick"])
}
