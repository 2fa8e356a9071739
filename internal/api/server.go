// Package api serves the simulation over HTTP.
// GET endpoints are read-only views of the latest snapshot.
// Control endpoints (pause, resume, toggle, speed) take a bearer token when an
// admin key is configured and are rate limited per client.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/talgya/homesim/internal/engine"
	"github.com/talgya/homesim/internal/environment"
	"github.com/talgya/homesim/internal/home"
	"github.com/talgya/homesim/internal/telemetry"
)

// Defaults for zero-valued Server fields.
const (
	DefaultMaxStreams  = 4
	DefaultControlRate = 60
	heartbeatInterval  = 15 * time.Second
)

var defaultOrigins = []string{
	"http://localhost:5173",
	"http://localhost:4173",
	"http://localhost:3000",
}

// Server serves the simulation over HTTP.
type Server struct {
	Sim     *engine.Simulation
	Eng     *engine.Engine
	Layout  *home.Layout
	Table   *environment.Table
	Metrics *telemetry.Metrics

	AdminKey    string // Bearer token for control endpoints. Empty = open.
	CORSOrigins []string
	ControlRate int // Control requests per client per minute.
	MaxStreams  int

	RunID   string
	Started time.Time

	// Active SSE connection count (atomic).
	sseConns int32
}

// Handler builds the routed, CORS-wrapped handler.
func (s *Server) Handler() http.Handler {
	if s.Started.IsZero() {
		s.Started = time.Now()
	}
	rate := s.ControlRate
	if rate <= 0 {
		rate = DefaultControlRate
	}
	limiter := NewRateLimiter(rate, time.Minute)
	control := func(h http.HandlerFunc) http.HandlerFunc {
		return RateLimitMiddleware(limiter, s.adminOnly(h))
	}

	r := mux.NewRouter()
	route := func(path string, h http.HandlerFunc, methods ...string) {
		r.Handle(path, s.Metrics.WrapHandler(path, h)).Methods(methods...)
	}

	route("/healthz", s.handleHealth, http.MethodGet)
	route("/api/v1/status", s.handleStatus, http.MethodGet)
	route("/api/v1/trail", s.handleTrail, http.MethodGet)
	route("/api/v1/metrics", s.handleSeries, http.MethodGet)
	route("/api/v1/rooms", s.handleRooms, http.MethodGet)
	route("/api/v1/arrivals", s.handleArrivals, http.MethodGet)
	route("/api/v1/table", s.handleTable, http.MethodGet)
	route("/api/v1/stream", s.handleStream, http.MethodGet)

	route("/api/v1/pause", control(s.handlePause), http.MethodPost)
	route("/api/v1/resume", control(s.handleResume), http.MethodPost)
	route("/api/v1/toggle", control(s.handleToggle), http.MethodPost)
	route("/api/v1/speed", s.handleSpeed, http.MethodGet)
	route("/api/v1/speed", control(s.handleSpeed), http.MethodPost)

	if s.Metrics != nil {
		r.Handle("/metrics", s.Metrics.Handler()).Methods(http.MethodGet)
	}

	origins := s.CORSOrigins
	if len(origins) == 0 {
		origins = defaultOrigins
	}
	cors := handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)
	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(slog.NewLogLogger(slog.Default().Handler(), slog.LevelError)),
	)
	return recovery(cors(r))
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "", "run_id", s.RunID)

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// checkBearerToken validates the Authorization header against AdminKey.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly requires the admin bearer token when one is configured.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.AdminKey != "" && !s.checkBearerToken(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.Eng.Halted(); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"status": "halted", "error": err.Error()})
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

type settingsView struct {
	Temperature float64 `json:"temperature"`
	Lighting    float64 `json:"lighting"`
	Music       int     `json:"music"`
	MusicLabel  string  `json:"music_label"`
}

type conditionsView struct {
	Temperature string `json:"temperature"`
	Lighting    string `json:"lighting"`
	Noise       string `json:"noise"`
}

func viewSettings(st environment.Settings) settingsView {
	return settingsView{
		Temperature: st.Temperature,
		Lighting:    st.Lighting,
		Music:       int(st.Music),
		MusicLabel:  st.Music.String(),
	}
}

func viewConditions(c environment.Conditions) conditionsView {
	return conditionsView{
		Temperature: c.Temperature.Title(),
		Lighting:    c.Lighting.Title(),
		Noise:       c.Noise.Title(),
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.Sim.Snapshot()
	st := snap.State

	var haltErr string
	if err := s.Eng.Halted(); err != nil {
		haltErr = err.Error()
	}

	status := map[string]any{
		"run_id":       s.RunID,
		"tick":         snap.Tick,
		"sim_time":     snap.SimTime,
		"sim_seconds":  snap.Seconds,
		"current_room": st.CurrentRoom,
		"target_room":  st.TargetRoom,
		"phase":        st.Phase,
		"progress":     st.Progress,
		"dwell":        st.Dwell,
		"position":     st.Position,
		"legs":         st.Legs,
		"distance":     st.Distance,
		"external":     viewConditions(st.External),
		"internal":     viewSettings(st.Internal),
		"paused":       s.Eng.Paused(),
		"halted":       haltErr != "",
		"halt_error":   haltErr,
		"speed":        s.Eng.Speed(),
		"started":      humanize.Time(s.Started),
		"uptime":       strings.TrimSpace(humanize.RelTime(s.Started, time.Now(), "", "")),
	}
	writeJSON(w, status)
}

func (s *Server) handleTrail(w http.ResponseWriter, r *http.Request) {
	snap := s.Sim.Snapshot()
	writeJSON(w, map[string]any{
		"tick":  snap.Tick,
		"trail": snap.Series.Trail,
	})
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	snap := s.Sim.Snapshot()
	labels := make([]string, len(snap.Series.Music))
	for i, g := range snap.Series.Music {
		labels[i] = g.String()
	}
	writeJSON(w, map[string]any{
		"tick":         snap.Tick,
		"temperature":  snap.Series.Temperature,
		"lighting":     snap.Series.Lighting,
		"music":        snap.Series.Music,
		"music_labels": labels,
	})
}

func (s *Server) handleRooms(w http.ResponseWriter, r *http.Request) {
	type roomView struct {
		Name home.Room `json:"name"`
		X    float64   `json:"x"`
		Y    float64   `json:"y"`
	}
	rooms := make([]roomView, 0, s.Layout.Len())
	for _, room := range s.Layout.Rooms() {
		p, err := s.Layout.Position(room)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		rooms = append(rooms, roomView{Name: room, X: p.X, Y: p.Y})
	}
	lo, hi := s.Layout.Bounds(1)
	writeJSON(w, map[string]any{
		"rooms":  rooms,
		"bounds": map[string]home.Point{"min": lo, "max": hi},
	})
}

func (s *Server) handleArrivals(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.Snapshot().Arrivals)
}

// handleTable looks up one row: /api/v1/table?room=Kitchen&temperature=low&lighting=high&noise=medium
func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	room := home.Room(q.Get("room"))
	if room == "" {
		http.Error(w, "room is required", http.StatusBadRequest)
		return
	}

	var key environment.Key
	key.Room = room
	for _, f := range []struct {
		name string
		dst  *environment.Level
	}{
		{"temperature", &key.Temperature},
		{"lighting", &key.Lighting},
		{"noise", &key.Noise},
	} {
		l, err := environment.ParseLevel(q.Get(f.name))
		if err != nil {
			http.Error(w, f.name+": "+err.Error(), http.StatusBadRequest)
			return
		}
		*f.dst = l
	}

	settings, err := s.Table.Lookup(key)
	if err != nil {
		var le *environment.LookupError
		if errors.As(err, &le) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{
		"room":     room,
		"external": viewConditions(key.Conditions),
		"internal": viewSettings(settings),
	})
}

func (s *Server) writeControlState(w http.ResponseWriter) {
	writeJSON(w, map[string]any{
		"paused": s.Eng.Paused(),
		"tick":   s.Eng.Tick(),
	})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.Eng.Pause()
	s.writeControlState(w)
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.Eng.Resume()
	s.writeControlState(w)
}

// handleToggle backs the Play/Pause button.
func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	s.Eng.Toggle()
	s.writeControlState(w)
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		var req struct {
			Speed float64 `json:"speed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if err := s.Eng.SetSpeed(req.Speed); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	writeJSON(w, map[string]float64{"speed": s.Eng.Speed()})
}

// handleStream provides an SSE endpoint for arrivals, with catch-up of the
// recent arrivals and a heartbeat comment.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	limit := s.MaxStreams
	if limit <= 0 {
		limit = DefaultMaxStreams
	}
	current := atomic.AddInt32(&s.sseConns, 1)
	if int(current) > limit {
		atomic.AddInt32(&s.sseConns, -1)
		http.Error(w, "too many SSE connections", http.StatusServiceUnavailable)
		return
	}
	defer atomic.AddInt32(&s.sseConns, -1)

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Subscribe before reading the catch-up so nothing falls in between.
	subID, ch := s.Sim.Subscribe()
	defer s.Sim.Unsubscribe(subID)

	var last uint64
	for _, e := range s.Sim.Snapshot().Arrivals {
		writeSSEEvent(w, e)
		last = e.Tick
	}
	flusher.Flush()

	slog.Info("SSE client connected", "sub_id", subID)

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case e, ok := <-ch:
			if !ok {
				return
			}
			if e.Tick <= last {
				continue
			}
			last = e.Tick
			writeSSEEvent(w, e)
			flusher.Flush()
		case <-heartbeat.C:
			fmt.Fprintf(w, ": heartbeat\n\n")
			flusher.Flush()
		case <-r.Context().Done():
			slog.Info("SSE client disconnected", "sub_id", subID)
			return
		}
	}
}

// writeSSEEvent writes a single arrival in SSE format.
func writeSSEEvent(w http.ResponseWriter, e engine.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "id: %d\nevent: arrival\ndata: %s\n\n", e.Tick, data)
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
