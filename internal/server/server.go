// Package server exposes the pipeline over HTTP and WebSocket.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/internal/coach"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/internal/features"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/internal/logger"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/internal/metrics"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/internal/recorder"
)

// SnapshotSource returns the current feature averages, or false when no
// subject is visible
type SnapshotSource interface {
	Snapshot() (features.Snapshot, bool)
}

// Asker answers free-form coaching questions
type Asker interface {
	Ask(ctx context.Context, question string) (string, error)
}

// RecordingControl starts and stops pose recordings
type RecordingControl interface {
	Start() error
	Stop() error
	IsRecording() bool
	GetStatus() recorder.RecordingStatus
}

// Options wire the server to the rest of the process. Asker and Recorder
// may be nil; their endpoints then answer 503.
type Options struct {
	Snapshots      SnapshotSource
	Asker          Asker
	Recorder       RecordingControl
	Metrics        *metrics.Metrics
	Hub            *Hub
	StatusInterval time.Duration
	AllowOrigin    string
}

// Server serves the pose-coach HTTP endpoints
type Server struct {
	opts    Options
	started time.Time
}

// New returns a configured server
func New(opts Options) *Server {
	if opts.StatusInterval <= 0 {
		opts.StatusInterval = 2 * time.Second
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	if opts.Hub == nil {
		var latest func() (features.Snapshot, bool)
		if opts.Snapshots != nil {
			latest = opts.Snapshots.Snapshot
		}
		opts.Hub = NewHub(latest)
	}
	return &Server{opts: opts, started: time.Now()}
}

// Handler exposes the HTTP handler for the server
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/snapshot", s.cors(s.handleSnapshot))
	mux.HandleFunc("/api/status", s.cors(s.handleStatus))
	mux.HandleFunc("/api/status/stream", s.handleStatusStream)
	mux.HandleFunc("/api/ask", s.cors(s.handleAsk))
	mux.HandleFunc("/api/recording/start", s.cors(s.handleRecordingStart))
	mux.HandleFunc("/api/recording/stop", s.cors(s.handleRecordingStop))
	mux.HandleFunc("/api/recording/status", s.cors(s.handleRecordingStatus))
	mux.Handle("/ws", s.opts.Hub)
	mux.Handle("/metrics", s.opts.Metrics.Handler())

	return mux
}

// ListenAndServe serves on addr until ctx is cancelled
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.opts.Hub.Close()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("HTTP", "Listening on %s", addr)
	if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) cors(next http.HandlerFunc) http.HandlerFunc {
	if s.opts.AllowOrigin == "" {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.opts.AllowOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(indexHTML))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	recording := false
	if s.opts.Recorder != nil {
		recording = s.opts.Recorder.IsRecording()
	}
	writeJSON(w, map[string]any{
		"status":     "ok",
		"ws_clients": s.opts.Hub.ClientCount(),
		"recording":  recording,
		"uptime_s":   int64(time.Since(s.started).Seconds()),
	})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.opts.Snapshots == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	snap, ok := s.opts.Snapshots.Snapshot()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	accept := r.Header.Get("Accept")
	if strings.Contains(accept, "application/protobuf") ||
		strings.Contains(accept, "application/x-protobuf") {
		data, err := marshalSnapshotProto(snap)
		if err != nil {
			writeJSONWithStatus(w, map[string]any{"error": err.Error()}, http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/protobuf")
		_, _ = w.Write(data)
		return
	}
	writeJSON(w, snap)
}

func (s *Server) statusPayload() map[string]any {
	counters := s.opts.Metrics.Snapshot()
	payload := map[string]any{
		"metrics":    counters,
		"ws_clients": s.opts.Hub.ClientCount(),
		"ws_dropped": s.opts.Hub.Dropped(),
		"timestamp":  float64(time.Now().Unix()),
	}
	if s.opts.Snapshots != nil {
		_, visible := s.opts.Snapshots.Snapshot()
		payload["visible"] = visible
	}
	return payload
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.statusPayload())
}

func (s *Server) handleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(s.opts.StatusInterval)
	defer ticker.Stop()

	for {
		if err := writeSSE(w, s.statusPayload()); err != nil {
			return
		}
		flusher.Flush()
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.opts.Asker == nil {
		writeJSONWithStatus(w, map[string]any{"error": "coach is not configured"}, http.StatusServiceUnavailable)
		return
	}

	var req struct {
		Question string `json:"question"`
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 64<<10))
	if err != nil || json.Unmarshal(body, &req) != nil || strings.TrimSpace(req.Question) == "" {
		writeJSONWithStatus(w, map[string]any{"error": "Invalid question"}, http.StatusBadRequest)
		return
	}

	answer, err := s.opts.Asker.Ask(r.Context(), req.Question)
	switch {
	case errors.Is(err, coach.ErrNotVisible):
		writeJSON(w, map[string]any{"answer": coach.NotVisibleReply, "visible": false})
	case err != nil:
		logger.Warn("HTTP", "Ask failed: %v", err)
		writeJSONWithStatus(w, map[string]any{"error": err.Error()}, http.StatusBadGateway)
	default:
		writeJSON(w, map[string]any{"answer": answer, "visible": true})
	}
}

func (s *Server) handleRecordingStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.opts.Recorder == nil {
		writeJSONWithStatus(w, map[string]any{"error": "recorder is not configured"}, http.StatusServiceUnavailable)
		return
	}
	if err := s.opts.Recorder.Start(); err != nil {
		writeJSONWithStatus(w, map[string]any{"error": err.Error()}, http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]any{
		"success": true,
		"status":  s.opts.Recorder.GetStatus(),
	})
}

func (s *Server) handleRecordingStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.opts.Recorder == nil {
		writeJSONWithStatus(w, map[string]any{"error": "recorder is not configured"}, http.StatusServiceUnavailable)
		return
	}
	if err := s.opts.Recorder.Stop(); err != nil {
		writeJSONWithStatus(w, map[string]any{"error": err.Error()}, http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]any{
		"success": true,
		"status":  s.opts.Recorder.GetStatus(),
	})
}

func (s *Server) handleRecordingStatus(w http.ResponseWriter, r *http.Request) {
	if s.opts.Recorder == nil {
		writeJSONWithStatus(w, map[string]any{"error": "recorder is not configured"}, http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, s.opts.Recorder.GetStatus())
}

// marshalSnapshotProto encodes a snapshot as a google.protobuf.Struct
func marshalSnapshotProto(snap features.Snapshot) ([]byte, error) {
	angles := make(map[string]any, len(snap.Angles))
	for name, v := range snap.Angles {
		angles[name] = v
	}
	positions := make(map[string]any, len(snap.Positions))
	for name, p := range snap.Positions {
		positions[name] = map[string]any{"x": p.X, "y": p.Y, "z": p.Z}
	}
	st, err := structpb.NewStruct(map[string]any{
		"taken_at":  snap.TakenAt.Format(time.RFC3339Nano),
		"angles":    angles,
		"positions": positions,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build snapshot struct: %w", err)
	}
	return proto.Marshal(st)
}

func writeSSE(w http.ResponseWriter, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}

func writeJSON(w http.ResponseWriter, payload any) {
	writeJSONWithStatus(w, payload, http.StatusOK)
}

func writeJSONWithStatus(w http.ResponseWriter, payload any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		_, _ = fmt.Fprintf(w, `{"error":"%s"}`, err.Error())
	}
}
