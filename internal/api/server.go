// Package api serves an engine over HTTP.
//
//	POST /dispatch      body: one action as JSON, returns the snapshot
//	POST /undo          returns the snapshot
//	POST /redo          returns the snapshot
//	GET  /state         the whole tree
//	GET  /state/*       one value, e.g. /state/thing/a
//	GET  /history       undo and redo stacks
//	GET  /events        server-sent snapshots, one per dispatch cycle
//	GET  /health        liveness
//	GET  /info          versions
//
// Extra handlers (metrics, the counter service) are mounted with WithMount.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/roach88/rewind/internal/engine"
	"github.com/roach88/rewind/internal/ir"
	"github.com/roach88/rewind/internal/logging"
	"github.com/roach88/rewind/internal/state"
)

// MaxBodyBytes caps a dispatch request body.
const MaxBodyBytes = 1 << 20

// EventBuffer is the number of snapshots queued per /events client before
// newer ones are dropped.
const EventBuffer = 64

// Engine is the part of *engine.Engine the server needs.
type Engine interface {
	Dispatch(a ir.Action) engine.Snapshot
	State() state.Tree
	Select(path string) (any, error)
	Subscribe(l engine.Listener) (unsubscribe func())
}

var _ Engine = (*engine.Engine)(nil)

// Server holds the routes for one engine.
type Server struct {
	engine Engine
	logger *slog.Logger
	mounts []mount

	closing   chan struct{}
	closeOnce sync.Once
}

type mount struct {
	pattern string
	handler http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request error logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithMount serves h under pattern alongside the API routes.
func WithMount(pattern string, h http.Handler) Option {
	return func(s *Server) {
		s.mounts = append(s.mounts, mount{pattern: pattern, handler: h})
	}
}

// NewServer creates a server for e.
func NewServer(e Engine, opts ...Option) *Server {
	s := &Server{engine: e, logger: logging.NewNop(), closing: make(chan struct{})}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", s.health)
	r.Get("/info", s.info)

	r.Post("/dispatch", s.dispatch)
	r.Post("/undo", s.replay(ir.Undo{}))
	r.Post("/redo", s.replay(ir.Redo{}))

	r.Get("/state", s.state)
	r.Get("/state/*", s.selectPath)
	r.Get("/history", s.history)
	r.Get("/events", s.events)

	for _, m := range s.mounts {
		r.Mount(m.pattern, m.handler)
	}
	return r
}

// CloseStreams ends every open /events stream. http.Server.Shutdown does
// not cancel request contexts, so register it with RegisterOnShutdown.
func (s *Server) CloseStreams() {
	s.closeOnce.Do(func() { close(s.closing) })
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) info(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":            "rewind",
		"engine_version": ir.EngineVersion,
		"schema_version": ir.SchemaVersion,
	})
}

func (s *Server) dispatch(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("read body: %w", err))
		return
	}

	a, err := ir.Unmarshal(body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := checkCallerAction(a); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	s.writeJSON(w, http.StatusOK, s.engine.Dispatch(a))
}

// checkCallerAction rejects actions only the pipeline may produce.
func checkCallerAction(a ir.Action) error {
	if a.IsReplay() {
		return errors.New("replay actions are produced by undo and redo only")
	}
	if a.Kind() == ir.KindPushUndo {
		return errors.New("PushUndo is recorded by the engine and cannot be dispatched")
	}
	return nil
}

func (s *Server) replay(a ir.Action) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		s.writeJSON(w, http.StatusOK, s.engine.Dispatch(a))
	}
}

func (s *Server) state(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.engine.State())
}

func (s *Server) selectPath(w http.ResponseWriter, r *http.Request) {
	v, err := s.engine.Select(chi.URLParam(r, "*"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, state.ErrPathNotFound) {
			status = http.StatusNotFound
		}
		s.writeError(w, status, err)
		return
	}
	s.writeJSON(w, http.StatusOK, v)
}

type historyResponse struct {
	CanUndo bool `json:"can_undo"`
	CanRedo bool `json:"can_redo"`
	state.History
}

func (s *Server) history(w http.ResponseWriter, _ *http.Request) {
	h := s.engine.State().History
	s.writeJSON(w, http.StatusOK, historyResponse{
		CanUndo: h.CanUndo(),
		CanRedo: h.CanRedo(),
		History: h,
	})
}

// events streams one "snapshot" event per dispatch cycle. Listeners must
// not block the engine, so a client that falls behind loses snapshots.
func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	snaps := make(chan engine.Snapshot, EventBuffer)
	unsubscribe := s.engine.Subscribe(func(snap engine.Snapshot) {
		select {
		case snaps <- snap:
		default:
			s.logger.Warn("events client too slow, snapshot dropped", "seq", snap.Seq)
		}
	})
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-s.closing:
			return
		case snap := <-snaps:
			data, err := json.Marshal(snap)
			if err != nil {
				s.logger.Error("snapshot encode failed", "seq", snap.Seq, "error", err)
				continue
			}
			fmt.Fprintf(w, "event: snapshot\nid: %d\ndata: %s\n\n", snap.Seq, data)
			flusher.Flush()
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
