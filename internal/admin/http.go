// Package admin exposes the diagnostics-only HTTP and WebSocket surface
// spec.md §6 calls for: the Observable counters
// (Environment.num_received_effects, Entity.num_received_effects,
// Supervisor.num_environments/num_entities) and a live tap on an
// environment's broadcast. It talks to the core exclusively through
// Supervisor's public methods and an Environment's own
// broadcast.Ring.Subscribe() — never by reaching into core internals.
package admin

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/webitel/eee-runtime/internal/supervisor"
)

// Server is the admin HTTP/WebSocket server.
type Server struct {
	sv      *supervisor.Supervisor
	recent  *recentEffects
	log     *slog.Logger
	httpSrv *http.Server
}

// NewServer builds an admin Server bound to addr, recording up to
// recentPerEnv delivered effects per environment for diagnostics.
func NewServer(sv *supervisor.Supervisor, addr string, recentPerEnv int, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{sv: sv, recent: newRecentEffects(256, recentPerEnv), log: log}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/healthz", s.handleHealthz)
	r.Get("/environments", s.handleListEnvironments)
	r.Get("/environments/{name}", s.handleGetEnvironment)
	r.Get("/environments/{name}/stream", s.handleStreamEnvironment)
	r.Get("/entities/{uuid}", s.handleGetEntity)

	s.httpSrv = &http.Server{Addr: addr, Handler: r}
	return s
}

// Start begins serving in a background goroutine and returns immediately.
// Serve errors other than http.ErrServerClosed are logged.
func (s *Server) Start() {
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("admin server exited", "error", err)
		}
	}()
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// WatchEnvironment taps env's broadcast so the admin server can keep a
// recent-effects sample for diagnostics. Call once per environment after
// creation.
func (s *Server) WatchEnvironment(name string) {
	env, ok := s.sv.Environment(name)
	if !ok {
		return
	}
	ch := env.Subscribe()
	go func() {
		for eff := range ch {
			s.recent.record(name, eff)
		}
	}()
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListEnvironments(w http.ResponseWriter, r *http.Request) {
	names := s.sv.EnvironmentNames()
	writeJSON(w, http.StatusOK, map[string]any{
		"num_environments": s.sv.NumEnvironments(),
		"num_entities":     s.sv.NumEntities(),
		"environments":     names,
	})
}

func (s *Server) handleGetEnvironment(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	env, ok := s.sv.Environment(name)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown environment"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":                  env.Name(),
		"num_received_effects":  env.NumReceivedEffects(),
		"joined_entities":       env.NumJoinedEntities(),
		"recent_effects":        s.recent.snapshot(name),
	})
}

func (s *Server) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "uuid")
	entity, ok := s.sv.Entity(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown entity"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"uuid":                 entity.UUID(),
		"num_received_effects": entity.NumReceivedEffects(),
		"joined_environments":  entity.JoinedEnvironments(),
		"affected_environments": entity.AffectedEnvironments(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
