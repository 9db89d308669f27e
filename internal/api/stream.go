package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talgya/mini-town/internal/engine"
)

// streamMsg is a server-to-client stream frame.
type streamMsg struct {
	Type string `json:"type"` // "snapshot", "day", "status", "error"
	Data any    `json:"data,omitempty"`
}

// controlMsg is a client-to-server stream frame.
type controlMsg struct {
	Type string `json:"type"` // "pause" or "resume"
}

// Publish pushes a tick's snapshot, and the day change if any, to every
// stream client.
func (s *Server) Publish(res engine.Result) {
	if s.hub.size() == 0 {
		return
	}
	s.send(streamMsg{Type: "snapshot", Data: res.Snapshot})
	if res.DayChanged != nil {
		s.send(streamMsg{Type: "day", Data: res.DayChanged})
	}
}

func (s *Server) broadcastStatus() {
	s.send(streamMsg{Type: "status", Data: map[string]bool{"paused": s.Eng.Paused()}})
}

func (s *Server) send(m streamMsg) {
	b, err := json.Marshal(m)
	if err != nil {
		slog.Error("stream encode failed", "type", m.Type, "error", err)
		return
	}
	if dropped := s.hub.broadcast(b); dropped > 0 {
		slog.Debug("stream clients behind", "type", m.Type, "dropped", dropped)
	}
}

// handleStream upgrades to a websocket that receives snapshots every tick.
// Clients that connected with the admin token may send pause/resume.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if n := s.streamConns.Add(1); n > maxStreamConns {
		s.streamConns.Add(-1)
		http.Error(w, "too many stream connections", http.StatusServiceUnavailable)
		return
	}
	defer s.streamConns.Add(-1)

	canControl := s.checkBearerToken(r)
	ip := clientIP(r)
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	id, out := s.hub.join(streamBuffer)
	defer s.hub.leave(id)
	slog.Info("stream client connected", "id", id, "control", canControl)

	hello, _ := json.Marshal(streamMsg{Type: "snapshot", Data: s.Eng.Snapshot()})
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, hello); err != nil {
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	replies := make(chan streamMsg, 4)
	go func() {
		defer cancel()
		if err := s.readControl(ctx, conn, canControl, ip, replies); err != nil {
			slog.Debug("stream read ended", "id", id, "error", err)
		}
	}()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	for {
		var frame []byte
		select {
		case <-ctx.Done():
			slog.Info("stream client disconnected", "id", id)
			return
		case b, ok := <-out:
			if !ok {
				return
			}
			frame = b
		case m := <-replies:
			frame, _ = json.Marshal(m)
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
			continue
		}
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			return
		}
	}
}

// readControl applies control frames until the connection fails.
func (s *Server) readControl(ctx context.Context, conn *websocket.Conn, canControl bool, ip string, replies chan<- streamMsg) error {
	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(2 * pingPeriod))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(2 * pingPeriod))
	})

	for {
		var m controlMsg
		if err := conn.ReadJSON(&m); err != nil {
			return err
		}
		_ = conn.SetReadDeadline(time.Now().Add(2 * pingPeriod))

		reply, ok := s.applyControl(m, canControl, ip)
		if ok {
			continue
		}
		select {
		case replies <- reply:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// applyControl runs a control frame. On success every client is told the
// new status; otherwise the returned error frame goes to the sender only.
// Frames share the per-IP budget of the HTTP control endpoints.
func (s *Server) applyControl(m controlMsg, canControl bool, ip string) (streamMsg, bool) {
	if !canControl {
		return streamMsg{Type: "error", Data: "unauthorized"}, false
	}
	if !s.control.Allow(ip) {
		return streamMsg{Type: "error", Data: "rate limit exceeded"}, false
	}
	switch m.Type {
	case "pause":
		s.Eng.Pause()
	case "resume":
		s.Eng.Resume()
	default:
		return streamMsg{Type: "error", Data: "unknown message type " + m.Type}, false
	}
	s.broadcastStatus()
	return streamMsg{}, true
}
