// Package server exposes the gesture pipeline over HTTP: definition
// listings and registration, frame ingestion, trajectory recording control,
// session recording and replay, and a WebSocket event stream.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/landmark"
	"github.com/ayusman/mudra/internal/pipeline"
	"github.com/ayusman/mudra/internal/sequence"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/trajectory"
)

// Config holds the server configuration.
type Config struct {
	Pipeline *pipeline.Pipeline
	// NewPipeline builds a fresh pipeline for session replay, configured
	// like the live one. When nil, replay uses the built-in defaults.
	NewPipeline func() *pipeline.Pipeline
	Store       *store.Store
}

// Server represents the HTTP surface over one pipeline instance.
//
// The pipeline itself is single-threaded; the server serializes all access
// to it behind a mutex.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
	events *EventsHandler

	mu sync.Mutex // guards config.Pipeline and the recording session

	recordingSession string
	recordingStart   time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
		events: NewEventsHandler(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.HandleFunc("/api/gestures", s.handleGestures)
	s.mux.HandleFunc("/api/sequences", s.handleSequences)
	s.mux.HandleFunc("/api/trajectories", s.handleTrajectories)
	s.mux.HandleFunc("/api/tracks", s.handleTracks)
	s.mux.HandleFunc("/api/stats", s.handleStats)
	s.mux.HandleFunc("/api/record", s.handleRecord)
	s.mux.HandleFunc("/api/canvas", s.handleCanvas)
	s.mux.HandleFunc("/api/frames", s.handleFrames)

	if s.config.Store != nil {
		s.mux.HandleFunc("/api/sessions", s.handleSessions)
		s.mux.HandleFunc("/api/sessions/", s.handleSessionItem)
	}

	s.mux.Handle("/ws/events", s.events)
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	})
}

// handleGestures lists registered gesture definitions on GET and registers
// a new one on POST.
func (s *Server) handleGestures(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.mu.Lock()
		defs := s.config.Pipeline.Gestures()
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"gestures": defs})
	case http.MethodPost:
		var def gesture.Definition
		if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		s.mu.Lock()
		err := s.config.Pipeline.RegisterGesture(def)
		s.mu.Unlock()
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err)
			return
		}
		writeJSON(w, http.StatusCreated, def)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleSequences lists registered sequence definitions on GET and registers
// a new one on POST.
func (s *Server) handleSequences(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.mu.Lock()
		defs := s.config.Pipeline.Sequences()
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"sequences": defs})
	case http.MethodPost:
		var def sequence.Definition
		if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		s.mu.Lock()
		err := s.config.Pipeline.RegisterSequence(def)
		s.mu.Unlock()
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err)
			return
		}
		writeJSON(w, http.StatusCreated, def)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleTrajectories lists registered trajectory templates on GET and
// registers a new one on POST.
func (s *Server) handleTrajectories(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.mu.Lock()
		tmpls := s.config.Pipeline.Trajectories()
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"trajectories": tmpls})
	case http.MethodPost:
		var tmpl trajectory.Template
		if err := json.NewDecoder(r.Body).Decode(&tmpl); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		s.mu.Lock()
		err := s.config.Pipeline.RegisterTrajectory(tmpl)
		s.mu.Unlock()
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err)
			return
		}
		writeJSON(w, http.StatusCreated, tmpl)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleTracks returns the currently live hand tracks.
func (s *Server) handleTracks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.mu.Lock()
	tracks := s.config.Pipeline.ActiveTracks()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"tracks": tracks})
}

// handleStats returns the pipeline counter snapshot.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.mu.Lock()
	stats := s.config.Pipeline.Stats()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, stats)
}

type recordRequest struct {
	Action   string  `json:"action"` // "start" or "stop"
	Name     string  `json:"name"`
	MinScore float64 `json:"min_score"`
}

// handleRecord controls trajectory template recording. GET reports the
// active recording name; POST starts or stops a capture.
func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.mu.Lock()
		name := s.config.Pipeline.Recording()
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]string{"recording": name})
	case http.MethodPost:
		var req recordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		switch req.Action {
		case "start":
			s.mu.Lock()
			err := s.config.Pipeline.StartRecording(req.Name)
			s.mu.Unlock()
			if err != nil {
				writeError(w, http.StatusUnprocessableEntity, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"recording": req.Name})
		case "stop":
			minScore := req.MinScore
			if minScore == 0 {
				minScore = 0.6
			}
			s.mu.Lock()
			tmpl, err := s.config.Pipeline.StopRecording(minScore)
			s.mu.Unlock()
			if err != nil {
				writeError(w, http.StatusUnprocessableEntity, err)
				return
			}
			writeJSON(w, http.StatusCreated, tmpl)
		default:
			writeError(w, http.StatusBadRequest, errors.New("action must be start or stop"))
		}
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleCanvas serves the drawing canvas: GET returns the full command
// history for new-client sync, DELETE wipes it.
func (s *Server) handleCanvas(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.mu.Lock()
		state := s.config.Pipeline.CanvasState()
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"commands": state})
	case http.MethodDelete:
		s.mu.Lock()
		s.config.Pipeline.ClearCanvas()
		s.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type frameRequest struct {
	// TimestampMs is the frame time in Unix milliseconds. Zero means the
	// server clock, for callers without their own timing.
	TimestampMs int64                `json:"timestamp_ms"`
	Hands       [][]landmark.Point3D `json:"hands"`
}

// handleFrames ingests one observation frame, runs it through the pipeline,
// broadcasts any events, and returns them. Hands failing the landmark
// contract are dropped individually.
func (s *Server) handleFrames(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req frameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	now := time.Now()
	if req.TimestampMs != 0 {
		now = time.UnixMilli(req.TimestampMs)
	}

	hands := make([]landmark.Hand, 0, len(req.Hands))
	dropped := 0
	for _, points := range req.Hands {
		h, err := landmark.FromSlice(points)
		if err != nil {
			dropped++
			continue
		}
		hands = append(hands, h)
	}

	s.mu.Lock()
	result := s.config.Pipeline.Process(hands, now)
	sessionID := s.recordingSession
	var offset time.Duration
	if sessionID != "" {
		if s.recordingStart.IsZero() {
			s.recordingStart = now
		}
		offset = now.Sub(s.recordingStart)
	}
	s.mu.Unlock()

	result.Dropped += dropped

	if sessionID != "" && s.config.Store != nil {
		frame := store.Frame{Offset: offset, Hands: hands}
		if err := s.config.Store.Sessions().AppendFrames(sessionID, []store.Frame{frame}); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
	}

	s.events.BroadcastResult(result)
	writeJSON(w, http.StatusOK, result)
}

type sessionStartRequest struct {
	Action string `json:"action"` // "start" or "stop"
	Name   string `json:"name"`
}

// handleSessions lists sessions on GET; POST starts or stops recording
// incoming frames into a new session.
func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		sessions, err := s.config.Store.Sessions().List()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
	case http.MethodPost:
		var req sessionStartRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		switch req.Action {
		case "start":
			sess, err := s.config.Store.Sessions().Create(req.Name)
			if err != nil {
				writeError(w, http.StatusInternalServerError, err)
				return
			}
			s.mu.Lock()
			s.recordingSession = sess.ID
			s.recordingStart = time.Time{}
			s.mu.Unlock()
			writeJSON(w, http.StatusCreated, sess)
		case "stop":
			s.mu.Lock()
			id := s.recordingSession
			s.recordingSession = ""
			s.recordingStart = time.Time{}
			s.mu.Unlock()
			if id == "" {
				writeError(w, http.StatusUnprocessableEntity, errors.New("no session recording"))
				return
			}
			sess, err := s.config.Store.Sessions().Get(id)
			if err != nil {
				writeError(w, http.StatusInternalServerError, err)
				return
			}
			writeJSON(w, http.StatusOK, sess)
		default:
			writeError(w, http.StatusBadRequest, errors.New("action must be start or stop"))
		}
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleSessionItem serves /api/sessions/{id} and /api/sessions/{id}/replay.
func (s *Server) handleSessionItem(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	id, rest, _ := strings.Cut(path, "/")
	if id == "" {
		http.NotFound(w, r)
		return
	}

	switch {
	case rest == "" && r.Method == http.MethodGet:
		sess, err := s.config.Store.Sessions().Get(id)
		if err != nil {
			s.writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sess)
	case rest == "" && r.Method == http.MethodDelete:
		if err := s.config.Store.Sessions().Delete(id); err != nil {
			s.writeStoreError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case rest == "replay" && r.Method == http.MethodPost:
		s.replaySession(w, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// replaySession runs a session's frames through a fresh pipeline, so the
// result is exactly what the live run produced, and returns the per-frame
// results that carried events.
func (s *Server) replaySession(w http.ResponseWriter, id string) {
	frames, err := s.config.Store.Sessions().Frames(id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	var p *pipeline.Pipeline
	if s.config.NewPipeline != nil {
		p = s.config.NewPipeline()
	} else {
		p = pipeline.New(pipeline.Config{})
	}

	base := time.Unix(0, 0)
	var results []pipeline.FrameResult
	for _, f := range frames {
		result := p.Process(f.Hands, base.Add(f.Offset))
		if len(result.Gestures) > 0 || len(result.Sequences) > 0 ||
			len(result.Trajectories) > 0 || len(result.Bimanual) > 0 ||
			len(result.Draw) > 0 {
			results = append(results, result)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"frames":  len(frames),
		"results": results,
		"stats":   p.Stats(),
	})
}

func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeError(w, http.StatusInternalServerError, err)
}
