package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gorilla/websocket"

	"github.com/synapz-learn/signavatar/engine/sequencer"
	"github.com/synapz-learn/signavatar/engine/signs"
	"github.com/synapz-learn/signavatar/engine/skeleton"
	"github.com/synapz-learn/signavatar/internal/gloss"
	"github.com/synapz-learn/signavatar/internal/history"
)

var errNotHijacker = errors.New("response writer does not support hijacking")

// Server serves the sign table, the submission history and live signing sessions.
type Server struct {
	table   signs.Table
	rig     skeleton.Skeleton
	glosser gloss.Glosser
	history history.Store
	logger  *slog.Logger
	clock   clock.Clock

	stepSize       float32
	hold           time.Duration
	tickRate       float64
	resetOnPreempt bool
	maxTextBytes   int64
	pingInterval   time.Duration
	writeTimeout   time.Duration

	mux      *http.ServeMux
	upgrader websocket.Upgrader

	ctx      context.Context
	cancel   context.CancelFunc
	sessions sync.WaitGroup
}

// New creates a Server. The rig is a template: every session animates its own clone.
// A nil rig stands for an avatar that failed to load; sessions still stream captions and
// report every instruction as a missing joint.
//
// Parameters:
//   - table: the bone animation table, signs.Default() when nil
//   - rig: the avatar rig template
//   - options: functional options (glosser, history, playback, keepalive, logger)
//
// Returns:
//   - *Server: the server
func New(table signs.Table, rig skeleton.Skeleton, options ...ServerBuilderOption) *Server {
	if table == nil {
		table = signs.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		table:        table,
		rig:          rig,
		glosser:      gloss.Passthrough{},
		history:      history.NewMemory(history.MaxLimit),
		logger:       slog.Default(),
		clock:        clock.New(),
		stepSize:     sequencer.DefaultStepSize,
		hold:         sequencer.DefaultHold,
		tickRate:     60,
		maxTextBytes: 4096,
		pingInterval: 20 * time.Second,
		writeTimeout: 5 * time.Second,
		mux:          http.NewServeMux(),
		ctx:          ctx,
		cancel:       cancel,
	}
	for _, opt := range options {
		opt(s)
	}
	s.upgrader = websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /v1/signs", s.handleSigns)
	s.mux.HandleFunc("GET /v1/history", s.handleHistory)
	s.mux.HandleFunc("GET /v1/sign", s.handleSign)
}

// Handler returns the root handler with panic recovery and access logging.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = s.recoverer(h)
	h = s.accessLog(h)
	return h
}

// Close ends every live session and waits for them to finish.
func (s *Server) Close() {
	s.cancel()
	s.sessions.Wait()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	name, joints := "", 0
	if s.rig != nil {
		name, joints = s.rig.Name(), s.rig.Len()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"rig":    name,
		"joints": joints,
	})
}

func (s *Server) handleSigns(w http.ResponseWriter, _ *http.Request) {
	letters := s.table.Letters()
	out := make([]string, len(letters))
	for i, r := range letters {
		out[i] = string(r)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"words":   s.table.Words(),
		"letters": out,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, codeInvalidValue, "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("read history", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "history unavailable")
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (s *Server) handleSign(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	s.sessions.Add(1)
	defer s.sessions.Done()

	sess := newSession(s, conn)
	sess.run(s.ctx)
}

func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				s.logger.Error("handler panic", "panic", rec, "path", r.URL.Path)
				writeError(w, http.StatusInternalServerError, "internal", "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errNotHijacker
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorMessage{Type: msgError, Code: code, Message: message})
}
