// Package api provides the HTTP API for observing and playing a game.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token when an admin key is configured.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/talgya/alt-history/internal/command"
	"github.com/talgya/alt-history/internal/engine"
	"github.com/talgya/alt-history/internal/format"
	"github.com/talgya/alt-history/internal/game"
	"github.com/talgya/alt-history/internal/persistence"
)

const maxStreamConns = 4

// Directory lists the playable eras and nations.
type Directory interface {
	Eras() []string
	Countries(era string) []string
}

// Server serves the game over HTTP.
type Server struct {
	Store     *engine.Store
	Scheduler *engine.Scheduler
	Directory Directory
	DB        *persistence.DB // nil disables save endpoints
	Port      int
	AdminKey  string // Bearer token for POST endpoints. Empty = POST open.

	// Active websocket connection count (atomic).
	streamConns int32
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	// Save/load hit the disk; keep clients from hammering them.
	saveLimiter := NewRateLimiter(30, time.Minute)

	mux := http.NewServeMux()

	// Public endpoints.
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/state", s.handleState)
	mux.HandleFunc("/api/v1/eras", s.handleEras)
	mux.HandleFunc("/api/v1/events", s.handleEvents)
	mux.HandleFunc("/api/v1/notifications", s.handleNotifications)
	mux.HandleFunc("/api/v1/notifications/history", s.handleNotificationHistory)
	mux.HandleFunc("/api/v1/saves", s.handleSaves)
	mux.HandleFunc("/api/v1/stream", s.handleStream)

	// Player endpoints (POST, bearer token when configured).
	mux.HandleFunc("/api/v1/new", s.adminOnly(s.handleNew))
	mux.HandleFunc("/api/v1/decision", s.adminOnly(s.handleDecision))
	mux.HandleFunc("/api/v1/command", s.adminOnly(s.handleCommand))
	mux.HandleFunc("/api/v1/speed", s.adminOnly(s.handleSpeed))
	mux.HandleFunc("/api/v1/pause", s.adminOnly(s.handlePause))
	mux.HandleFunc("/api/v1/resume", s.adminOnly(s.handleResume))
	mux.HandleFunc("/api/v1/skip", s.adminOnly(s.handleSkip))
	mux.HandleFunc("/api/v1/notifications/clear", s.adminOnly(s.handleClearNotifications))
	mux.HandleFunc("/api/v1/dispatch", s.adminOnly(s.handleDispatch))
	mux.HandleFunc("/api/v1/save", s.adminOnly(RateLimitMiddleware(saveLimiter, s.handleSave)))
	mux.HandleFunc("/api/v1/load", s.adminOnly(RateLimitMiddleware(saveLimiter, s.handleLoad)))
	mux.HandleFunc("/api/v1/saves/delete", s.adminOnly(s.handleDeleteSaves))

	return corsMiddleware(mux)
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "", "saves", s.DB != nil)

	go func() {
		if err := http.ListenAndServe(addr, s.Handler()); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS env var to a comma-separated list of allowed origins.
// Localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:4173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
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

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require POST and, when an admin key is
// set, a matching bearer token.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if s.AdminKey != "" && !s.checkBearerToken(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return false
	}
	return true
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.Store.State()
	status := map[string]any{
		"name":         "Alternate History",
		"game_started": st.Meta.GameStarted,
		"paused":       st.Meta.IsPaused,
		"speed":        st.Meta.Speed,
		"difficulty":   st.Meta.Difficulty,
	}
	if s.Scheduler != nil {
		status["running"] = s.Scheduler.Mode().Running
		status["ticks"] = s.Scheduler.Ticks()
	}
	if st.Meta.GameStarted {
		status["era"] = st.Identity.Era
		status["country"] = st.Identity.PlayerCountry
		status["date"] = format.Date(st.Time.CurrentDate)
		status["days_passed"] = st.Time.DaysPassed
		status["treasury"] = format.Currency(st.Resources.Treasury)
		status["morale"] = format.Morale(st.Morale.Current)
		status["research"] = st.Research.Progress()
		status["active_events"] = len(st.Events.ActiveEvents)
		status["pending_decisions"] = len(st.Events.PendingDecisions)
		status["wars"] = st.Diplomacy.Wars
		status["alliances"] = st.Diplomacy.Alliances
	}
	writeJSON(w, status)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Store.State())
}

func (s *Server) handleEras(w http.ResponseWriter, r *http.Request) {
	type era struct {
		Name      string   `json:"name"`
		Countries []string `json:"countries"`
	}
	var out []era
	if s.Directory != nil {
		for _, name := range s.Directory.Eras() {
			out = append(out, era{Name: name, Countries: s.Directory.Countries(name)})
		}
	}
	writeJSON(w, out)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	evs := s.Store.State().Events
	writeJSON(w, map[string]any{
		"active":  evs.ActiveEvents,
		"history": evs.EventHistory,
		"pending": evs.PendingDecisions,
	})
}

func limitParam(r *http.Request, def, max int) int {
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= max {
			return n
		}
	}
	return def
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	ns := s.Store.State().Notifications
	limit := limitParam(r, 50, 500)

	// Optional type filter.
	if kind := r.URL.Query().Get("type"); kind != "" {
		var filtered []game.Notification
		for _, n := range ns {
			if n.Type == kind {
				filtered = append(filtered, n)
			}
		}
		ns = filtered
	}

	start := 0
	if len(ns) > limit {
		start = len(ns) - limit
	}
	writeJSON(w, ns[start:])
}

func (s *Server) handleNotificationHistory(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}
	ns, err := s.DB.RecentNotifications(limitParam(r, 100, 1000))
	if err != nil {
		slog.Error("notification history failed", "error", err)
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, ns)
}

func (s *Server) handleClearNotifications(w http.ResponseWriter, r *http.Request) {
	s.Store.Dispatch(game.ClearNotifications{})
	writeJSON(w, map[string]any{"cleared": true})
}

func (s *Server) handleNew(w http.ResponseWriter, r *http.Request) {
	var req game.InitializeGame
	if !decodeBody(w, r, &req) {
		return
	}
	st := s.Store.Dispatch(req)
	if !st.Meta.GameStarted || st.Identity.Era != req.Era || st.Identity.PlayerCountry != req.Country {
		http.Error(w, fmt.Sprintf("unknown era or country: %q / %q", req.Era, req.Country), http.StatusBadRequest)
		return
	}
	slog.Info("new game", "era", req.Era, "country", req.Country, "difficulty", st.Meta.Difficulty)
	writeJSON(w, st)
}

func (s *Server) handleDecision(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EventID  string `json:"eventId"`
		ChoiceID string `json:"choiceId"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	st := s.Store.State()
	for _, ev := range st.Events.ActiveEvents {
		if ev.ID != req.EventID {
			continue
		}
		choice, ok := ev.Choice(req.ChoiceID)
		if !ok {
			http.Error(w, "unknown choice", http.StatusBadRequest)
			return
		}
		st = s.Store.Dispatch(game.MakeDecision{EventID: ev.ID, Choice: choice})
		slog.Info("decision made", "event", ev.ID, "choice", choice.ID)
		writeJSON(w, st)
		return
	}
	http.Error(w, "no such active event", http.StatusNotFound)
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req command.Command
	if !decodeBody(w, r, &req) {
		return
	}

	st, err := command.Run(s.Store, req)
	var ref *command.Refusal
	switch {
	case errors.As(err, &ref):
		writeJSONStatus(w, http.StatusConflict,
			map[string]any{"success": false, "message": ref.Title, "details": ref.Details})
	case errors.Is(err, command.ErrNoGame):
		http.Error(w, err.Error(), http.StatusConflict)
	case err != nil:
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		writeJSON(w, map[string]any{"success": true, "state": st})
	}
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Speed int `json:"speed"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Speed < 1 || req.Speed > engine.SkipSpeed {
		http.Error(w, fmt.Sprintf("speed must be 1-%d", engine.SkipSpeed), http.StatusBadRequest)
		return
	}
	st := s.Store.Dispatch(game.SetSpeed{Speed: req.Speed})
	slog.Info("speed changed", "speed", req.Speed)
	writeJSON(w, map[string]int{"speed": st.Meta.Speed})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	st := s.Store.Dispatch(game.PauseGame{})
	writeJSON(w, map[string]bool{"paused": st.Meta.IsPaused})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	pending := 0
	st := s.Store.Update(func(cur game.State) []game.Action {
		if pending = len(cur.Events.ActiveEvents); pending > 0 {
			return nil
		}
		return []game.Action{game.ResumeGame{}}
	})
	if pending > 0 {
		http.Error(w, fmt.Sprintf("%d event(s) await a decision", pending), http.StatusConflict)
		return
	}
	writeJSON(w, map[string]bool{"paused": st.Meta.IsPaused})
}

func (s *Server) handleSkip(w http.ResponseWriter, r *http.Request) {
	if s.Scheduler == nil {
		http.Error(w, "scheduler not available", http.StatusServiceUnavailable)
		return
	}
	st, err := s.Scheduler.SkipToNextEvent()
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, map[string]any{"speed": st.Meta.Speed, "paused": st.Meta.IsPaused})
}

// handleDispatch applies a raw action envelope. It is the wire form of
// the dispatch protocol and bypasses the command layer's checks.
func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	var env game.Envelope
	if !decodeBody(w, r, &env) {
		return
	}
	action, err := game.DecodeAction(env)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	slog.Info("raw dispatch", "kind", action.Kind())
	writeJSON(w, s.Store.Dispatch(action))
}

func (s *Server) requireDB(w http.ResponseWriter) bool {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return false
	}
	return true
}

type slotRequest struct {
	Slot string `json:"slot"`
	Name string `json:"name,omitempty"`
}

func (req *slotRequest) normalize() {
	if req.Slot == "" {
		req.Slot = persistence.SlotManual
	}
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if !s.requireDB(w) {
		return
	}
	var req slotRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.normalize()

	res, err := s.DB.Save(req.Slot, s.Store.State(), req.Name)
	if err != nil {
		slog.Error("save failed", "slot", req.Slot, "error", err)
		writeJSONStatus(w, http.StatusInternalServerError, res)
		return
	}
	writeJSON(w, res)
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	if !s.requireDB(w) {
		return
	}
	var req slotRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.normalize()

	snap, res, err := s.DB.Load(req.Slot)
	switch {
	case err != nil:
		slog.Error("load failed", "slot", req.Slot, "error", err)
		writeJSONStatus(w, http.StatusUnprocessableEntity, res)
	case !res.Success:
		writeJSONStatus(w, http.StatusNotFound, res)
	default:
		s.Store.Dispatch(game.LoadGame{State: snap.State})
		slog.Info("game loaded", "slot", req.Slot, "country", snap.Identity.PlayerCountry, "day", snap.Time.DaysPassed)
		writeJSON(w, res)
	}
}

func (s *Server) handleSaves(w http.ResponseWriter, r *http.Request) {
	if !s.requireDB(w) {
		return
	}
	list, err := s.DB.List()
	if err != nil {
		slog.Error("list saves failed", "error", err)
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []persistence.Info{}
	}
	writeJSON(w, list)
}

func (s *Server) handleDeleteSaves(w http.ResponseWriter, r *http.Request) {
	if !s.requireDB(w) {
		return
	}
	var req struct {
		Slots []string `json:"slots"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.DB.Delete(req.Slots...); err != nil {
		slog.Error("delete saves failed", "error", err)
		http.Error(w, "delete failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, persistence.Result{Success: true, Message: "Save deleted"})
}

func writeJSON(w http.ResponseWriter, data any) {
	writeJSONStatus(w, http.StatusOK, data)
}

func writeJSONStatus(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}

func (s *Server) acquireStream() bool {
	if atomic.AddInt32(&s.streamConns, 1) > maxStreamConns {
		atomic.AddInt32(&s.streamConns, -1)
		return false
	}
	return true
}

func (s *Server) releaseStream() { atomic.AddInt32(&s.streamConns, -1) }
