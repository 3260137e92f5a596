// Websocket stream of game notifications and day ticks.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talgya/alt-history/internal/game"
)

const (
	streamBuffer    = 64
	streamHeartbeat = 15 * time.Second
	streamWriteWait = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // local single-player clients
	},
}

// StreamMessage is one frame on the stream.
type StreamMessage struct {
	Type         string             `json:"type"` // "notification", "day", "status"
	Notification *game.Notification `json:"notification,omitempty"`
	Date         *time.Time         `json:"date,omitempty"`
	DaysPassed   int                `json:"daysPassed"`
	Paused       bool               `json:"paused"`
	Speed        int                `json:"speed"`
}

// changes returns the frames a transition produces: one per new
// notification, then a day or status frame when the clock or flags moved.
func changes(prev, next game.State) []StreamMessage {
	var out []StreamMessage
	seen := make(map[string]bool, len(prev.Notifications))
	for _, n := range prev.Notifications {
		seen[n.ID] = true
	}
	for _, n := range next.Notifications {
		if !seen[n.ID] {
			out = append(out, StreamMessage{Type: "notification", Notification: &n, DaysPassed: next.Time.DaysPassed})
		}
	}

	frame := StreamMessage{
		Date:       &next.Time.CurrentDate,
		DaysPassed: next.Time.DaysPassed,
		Paused:     next.Meta.IsPaused,
		Speed:      next.Meta.Speed,
	}
	switch {
	case next.Time.DaysPassed != prev.Time.DaysPassed:
		frame.Type = "day"
		out = append(out, frame)
	case next.Meta != prev.Meta:
		frame.Type = "status"
		out = append(out, frame)
	}
	return out
}

// handleStream upgrades to a websocket and pushes frames as the game
// changes. Slow clients drop frames rather than block the game.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if !s.acquireStream() {
		http.Error(w, "too many stream connections", http.StatusServiceUnavailable)
		return
	}
	defer s.releaseStream()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("stream upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ch := make(chan StreamMessage, streamBuffer)
	unsub := s.Store.Subscribe(func(prev, next game.State) {
		for _, m := range changes(prev, next) {
			select {
			case ch <- m:
			default:
				slog.Debug("stream frame dropped", "type", m.Type)
			}
		}
	})
	defer unsub()

	// Catch-up frame so the client knows where the game stands.
	st := s.Store.State()
	hello := StreamMessage{Type: "status", Date: &st.Time.CurrentDate, DaysPassed: st.Time.DaysPassed,
		Paused: st.Meta.IsPaused, Speed: st.Meta.Speed}
	if err := conn.WriteJSON(hello); err != nil {
		return
	}

	// Reader detects client close; incoming messages are ignored.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	slog.Info("stream client connected", "remote", r.RemoteAddr)
	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case m := <-ch:
			conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteJSON(m); err != nil {
				return
			}
		case <-heartbeat.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
				return
			}
		case <-closed:
			slog.Info("stream client disconnected", "remote", r.RemoteAddr)
			return
		case <-r.Context().Done():
			return
		}
	}
}
