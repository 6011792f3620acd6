// Package server exposes the conversation loop over HTTP. It is a thin
// transport layer: all conversational semantics live in the runner.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/parley-ai/parley/core"
	"github.com/parley-ai/parley/engine"
	"github.com/parley-ai/parley/runner"
)

// AskRequest is the body of POST /ask.
type AskRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id,omitempty"`
}

// AskResponse is the body of a successful POST /ask.
type AskResponse struct {
	Answer    string `json:"answer"`
	SessionID string `json:"session_id"`
	Rounds    int    `json:"rounds"`
	LimitHit  bool   `json:"limit_hit,omitempty"`
}

// ResetRequest is the body of POST /reset.
type ResetRequest struct {
	SessionID string `json:"session_id,omitempty"`
}

// ResetResponse is the body of a successful POST /reset.
type ResetResponse struct {
	Status    string `json:"status"`
	SessionID string `json:"session_id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server serves the /ask and /reset endpoints on top of a runner.
type Server struct {
	runner *runner.Runner
	logger zerolog.Logger
}

// Options configure a Server.
type Options struct {
	Logger zerolog.Logger
}

// New creates a Server around r.
func New(r *runner.Runner, optFns ...func(o *Options)) *Server {
	opts := Options{Logger: zerolog.Nop()}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Server{runner: r, logger: opts.Logger}
}

// Router builds the HTTP handler with middleware and routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(s.requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Post("/ask", s.handleAsk)
	r.Post("/reset", s.handleReset)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "question must not be empty"})
		return
	}

	res, err := s.runner.SubmitTurn(r.Context(), req.SessionID, req.Question)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, AskResponse{
		Answer:    res.Answer,
		SessionID: res.SessionID,
		Rounds:    res.Rounds,
		LimitHit:  res.LimitHit,
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	// An absent body resets the default session.
	var req ResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	id := s.runner.ResetSession(req.SessionID)
	writeJSON(w, http.StatusOK, ResetResponse{Status: "reset", SessionID: id})
}

// writeError maps loop errors onto HTTP status codes. Raw engine errors
// never reach the client body.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var busy *core.SessionBusyError
	if errors.As(err, &busy) {
		writeJSON(w, http.StatusConflict, errorResponse{
			Error: "a turn is already in progress for this session",
		})
		return
	}

	var unavailable *engine.ReasoningUnavailableError
	if errors.As(err, &unavailable) {
		s.logger.Error().Err(err).Str("provider", unavailable.Provider).Msg("reasoning engine unavailable")
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{
			Error: "reasoning engine unavailable, try again later",
		})
		return
	}

	s.logger.Error().Err(err).Msg("turn failed")
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		event := s.logger.Info()
		if rw.statusCode >= 400 {
			event = s.logger.Warn()
		}
		if rw.statusCode >= 500 {
			event = s.logger.Error()
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rw.statusCode).
			Dur("duration", time.Since(start)).
			Str("remote", r.RemoteAddr).
			Msg("request")
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
