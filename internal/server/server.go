// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the dialogue engine over HTTP for the map
// frontend. Conversation state lives entirely in the requests; the server
// keeps none between calls.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/rentsense/internal/dialogue"
	"github.com/pdiddy/rentsense/internal/policy"
	"github.com/pdiddy/rentsense/internal/rank"
	"github.com/pdiddy/rentsense/pkg/types"
)

// defaultModes are request modes served by the configured controller.
var defaultModes = []string{"", "discovery", "default"}

// Server is the HTTP front of the engine.
type Server struct {
	cfg         types.ServerConfig
	engine      *dialogue.Controller
	profiles    map[string]*dialogue.Controller
	datasetSize int
	log         *zap.Logger
	httpServer  *http.Server
	startTime   time.Time
}

// New builds a server around engine. datasetSize is reported by /health.
func New(cfg types.ServerConfig, engine *dialogue.Controller, datasetSize int, log *zap.Logger) (*Server, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}

	s := &Server{
		cfg:         cfg,
		engine:      engine,
		profiles:    make(map[string]*dialogue.Controller),
		datasetSize: datasetSize,
		log:         log,
		startTime:   time.Now(),
	}
	for _, name := range types.ProfileNames() {
		c, err := engine.WithProfile(name)
		if err != nil {
			return nil, fmt.Errorf("building profile %s: %w", name, err)
		}
		s.profiles[name] = c
	}
	for _, m := range defaultModes {
		s.profiles[m] = engine
	}

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s, nil
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("GET /api/dimensions", s.handleDimensions)
	mux.HandleFunc("GET /health", s.handleHealth)

	return s.withRequestLog(s.withCORS(mux))
}

// Start listens on the configured address. It returns
// http.ErrServerClosed after Shutdown.
func (s *Server) Start() error {
	s.log.Info("starting server", zap.String("addr", s.httpServer.Addr), zap.String("profile", s.engine.Config().Profile))
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on l.
func (s *Server) Serve(l net.Listener) error {
	s.log.Info("starting server", zap.String("addr", l.Addr().String()), zap.String("profile", s.engine.Config().Profile))
	return s.httpServer.Serve(l)
}

// Shutdown stops accepting connections and waits for in-flight turns.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down server")
	return s.httpServer.Shutdown(ctx)
}

// controllerFor maps a request mode to its controller.
func (s *Server) controllerFor(mode string) (*dialogue.Controller, error) {
	if c, ok := s.profiles[mode]; ok {
		return c, nil
	}
	if p, ok := types.Profile(mode); ok {
		return s.profiles[p.Profile], nil
	}
	return nil, fmt.Errorf("unknown mode %q", mode)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	engine, err := s.controllerFor(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	next, out := engine.AdvanceTurn(r.Context(), req.state(), req.action())
	writeJSON(w, http.StatusOK, newChatResponse(next, out))
}

type dimensionInfo struct {
	Name   types.Dimension `json:"name"`
	Column string          `json:"column"`
}

func (s *Server) handleDimensions(w http.ResponseWriter, _ *http.Request) {
	dims := types.Dimensions()
	info := make([]dimensionInfo, len(dims))
	for i, d := range dims {
		info[i] = dimensionInfo{Name: d, Column: d.Column()}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"dimensions":     info,
		"answer_options": types.LikertLabels,
		"profiles":       types.ProfileNames(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"profile":        s.engine.Config().Profile,
		"candidates":     s.datasetSize,
		"uptime_seconds": int(time.Since(s.startTime).Seconds()),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// resultsFor converts the ranked candidates of a show_results outcome.
func resultsFor(out dialogue.Outcome) []rank.Result {
	if out.Next != policy.Show {
		return nil
	}
	return rank.Results(out.Results)
}
