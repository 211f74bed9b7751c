// Package server exposes the control API: stream lifecycle, stats,
// health, metrics and the prediction websocket.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"actionpipe/internal/auth"
	"actionpipe/internal/middleware"
	"actionpipe/internal/pipeline"
	"actionpipe/internal/ws"
)

// Server is the HTTP control plane in front of the stream manager.
type Server struct {
	httpServer    *http.Server
	manager       *pipeline.Manager
	hub           *ws.PredictionHub
	authenticator *auth.Authenticator
	detector      pipeline.Detector
	defaults      pipeline.Config
}

// Config holds the server settings.
type Config struct {
	Addr string

	// StreamDefaults fills unset fields of start-stream requests.
	StreamDefaults pipeline.Config
}

// New builds the server and its routes. registry backs /metrics.
func New(cfg Config, manager *pipeline.Manager, hub *ws.PredictionHub,
	authenticator *auth.Authenticator, detector pipeline.Detector,
	registry *prometheus.Registry) *Server {

	s := &Server{
		manager:       manager,
		hub:           hub,
		authenticator: authenticator,
		detector:      detector,
		defaults:      cfg.StreamDefaults,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.Handle("/ws/predictions/", ws.NewHandler(hub))

	api := http.NewServeMux()
	api.HandleFunc("GET /api/streams", s.handleListStreams)
	api.HandleFunc("POST /api/streams", s.handleStartStream)
	api.HandleFunc("DELETE /api/streams/{id}", s.handleStopStream)
	api.HandleFunc("POST /api/streams/{id}/flush", s.handleFlushStream)
	api.HandleFunc("GET /api/streams/{id}/stats", s.handleStreamStats)
	mux.Handle("/api/streams", middleware.AuthMiddleware(authenticator)(api))
	mux.Handle("/api/streams/", middleware.AuthMiddleware(authenticator)(api))

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Start serves until the listener fails or Stop is called.
func (s *Server) Start() error {
	log.Printf("[Server] Listening on %s", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	log.Printf("[Server] Stopped")
	return nil
}

// Handler exposes the route table for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.detector != nil && !s.detector.IsHealthy() {
		writeError(w, http.StatusServiceUnavailable, fmt.Errorf("inference backend unavailable"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body"))
		return
	}

	token, expiresAt, err := s.authenticator.Authenticate(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrAuthDisabled) {
			writeError(w, http.StatusConflict, err)
			return
		}
		writeError(w, http.StatusUnauthorized, auth.ErrInvalidCredentials)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token, ExpiresAt: expiresAt})
}

type startStreamRequest struct {
	StreamID        string `json:"stream_id"`
	Mode            string `json:"mode"`
	FrameCount      int    `json:"frame_count"`
	FrameSampleRate int    `json:"frame_sample_rate"`
	DetectRate      int    `json:"detect_rate"`
}

type startStreamResponse struct {
	StreamID string        `json:"stream_id"`
	Mode     pipeline.Mode `json:"mode"`
}

func (s *Server) handleStartStream(w http.ResponseWriter, r *http.Request) {
	var req startStreamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body"))
		return
	}

	cfg := s.defaults
	cfg.StreamID = req.StreamID
	if req.Mode != "" {
		cfg.Mode = pipeline.Mode(req.Mode)
	}
	if req.FrameCount > 0 {
		cfg.FrameCount = req.FrameCount
	}
	if req.FrameSampleRate > 0 {
		cfg.FrameSampleRate = req.FrameSampleRate
	}
	if req.DetectRate > 0 {
		cfg.DetectRate = req.DetectRate
	}

	id, err := s.manager.StartStream(cfg)
	if err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusCreated, startStreamResponse{StreamID: id, Mode: cfg.Mode})
}

func (s *Server) handleStopStream(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.manager.StopStream(id); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"stream_id": id, "status": "stopped"})
}

func (s *Server) handleFlushStream(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.manager.Flush(id); err != nil {
		if errors.Is(err, pipeline.ErrInvalidMode) {
			writeError(w, http.StatusConflict, err)
			return
		}
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"stream_id": id, "status": "flushing"})
}

func (s *Server) handleStreamStats(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	stats := s.manager.Stats(id)
	if stats == nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("stream %s not found", id))
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleListStreams(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"streams": s.manager.Streams()})
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[Server] Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
