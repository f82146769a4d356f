// Package supervisor implements the registry and controller that creates,
// names, and destroys Environments and Entities, wires their join/affect
// edges, and submits effects on their behalf.
package supervisor

import (
	"context"
	"log/slog"
	"sync"

	"github.com/webitel/eee-runtime/internal/eee"
	"github.com/webitel/eee-runtime/internal/effect"
	"github.com/webitel/eee-runtime/internal/errors"
	"github.com/webitel/eee-runtime/internal/queue"
	"github.com/webitel/eee-runtime/internal/trigger"
)

type envConnection struct {
	queue *queue.Unbounded[effect.Effect]
	env   *eee.Environment
}

type entityConnection struct {
	entity *eee.Entity
}

// Supervisor is the registry and controller for one process's Entities
// and Environments.
type Supervisor struct {
	mu           sync.RWMutex
	environments map[string]*envConnection
	entities     map[string]*entityConnection

	broadcastBufferSize int
	shutdown             trigger.Handle
	log                  *slog.Logger
	done                 chan struct{}
}

// New builds an empty registry. broadcastBufferSize is spec.md's
// BROADCAST_BUFFER_SIZE and must be >= 2.
func New(shutdown trigger.Handle, broadcastBufferSize int, log *slog.Logger) (*Supervisor, error) {
	if broadcastBufferSize < 2 {
		return nil, errors.App("broadcast buffer size must be >= 2")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Supervisor{
		environments:         make(map[string]*envConnection),
		entities:             make(map[string]*entityConnection),
		broadcastBufferSize:  broadcastBufferSize,
		shutdown:             shutdown,
		log:                  log,
		done:                 make(chan struct{}),
	}, nil
}

// Run is the Supervisor's own cooperative task: it only observes the
// shutdown trigger and returns when pulled. It never routes effects
// directly.
func (s *Supervisor) Run(ctx context.Context) {
	defer close(s.done)
	select {
	case <-ctx.Done():
	case <-s.shutdown.Done():
		s.log.Info("supervisor received sig-term")
	}
}

// Done is closed once Run returns.
func (s *Supervisor) Done() <-chan struct{} { return s.done }

// CreateEnvironment rejects a duplicate name; otherwise it builds and
// spawns a new Environment and returns its handle.
func (s *Supervisor) CreateEnvironment(ctx context.Context, name string) (*eee.Environment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.environments[name]; exists {
		return nil, errors.App("environment with that name already exists")
	}

	q := queue.New[effect.Effect]()
	env := eee.NewEnvironment(name, q, s.broadcastBufferSize, s.shutdown, s.log)

	s.environments[name] = &envConnection{queue: q, env: env}
	env.Spawn(ctx)

	return env, nil
}

// DeleteEnvironment removes the connection and pulls the Environment's
// drop notifier; joined Entities will unsubscribe on their next poll.
func (s *Supervisor) DeleteEnvironment(name string) error {
	s.mu.Lock()
	conn, exists := s.environments[name]
	if exists {
		delete(s.environments, name)
	}
	s.mu.Unlock()

	if !exists {
		return errors.App("no environment with this name available")
	}
	return conn.env.SendSigTerm()
}

// CreateEntity builds and spawns a new Entity and returns its handle.
func (s *Supervisor) CreateEntity(ctx context.Context) (*eee.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entity := eee.NewEntity(s.shutdown, s.log)
	s.entities[entity.UUID()] = &entityConnection{entity: entity}
	entity.Spawn(ctx)

	return entity, nil
}

// DeleteEntity removes the connection and pulls the Entity's own
// termination trigger.
func (s *Supervisor) DeleteEntity(id string) error {
	s.mu.Lock()
	conn, exists := s.entities[id]
	if exists {
		delete(s.entities, id)
	}
	s.mu.Unlock()

	if !exists {
		return errors.App("no entity with this uuid available")
	}
	return conn.entity.SendSigTerm()
}

// JoinEnvironments validates that every listed name exists, then for each
// calls the Environment's RegisterJoiningEntity. Validation is
// all-or-nothing; registration is sequential and not rolled back on a
// mid-sequence failure (spec.md §9 leaves this unrepaired; see
// DESIGN.md).
func (s *Supervisor) JoinEnvironments(entity *eee.Entity, names []string) error {
	envs, err := s.resolveEnvironments(names)
	if err != nil {
		return err
	}
	for _, env := range envs {
		if err := env.RegisterJoiningEntity(entity); err != nil {
			return err
		}
	}
	return nil
}

// AffectEnvironments is symmetric to JoinEnvironments.
func (s *Supervisor) AffectEnvironments(entity *eee.Entity, names []string) error {
	envs, err := s.resolveEnvironments(names)
	if err != nil {
		return err
	}
	for _, env := range envs {
		if err := env.RegisterAffectingEntity(entity); err != nil {
			return err
		}
	}
	return nil
}

func (s *Supervisor) resolveEnvironments(names []string) ([]*eee.Environment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	envs := make([]*eee.Environment, 0, len(names))
	for _, name := range names {
		conn, ok := s.environments[name]
		if !ok {
			return nil, errors.App("at least one of the specified environments is unknown to this supervisor")
		}
		envs = append(envs, conn.env)
	}
	return envs, nil
}

// SubmitEffect looks up the named environment's connection, enqueues the
// effect on its inbound queue, and notifies its waker.
func (s *Supervisor) SubmitEffect(eff effect.Effect, envName string) error {
	s.mu.RLock()
	conn, ok := s.environments[envName]
	s.mu.RUnlock()

	if !ok {
		return errors.App("no environment with this name available")
	}

	conn.queue.Send(eff)
	conn.env.Waker().Notify()
	return nil
}

// NumEnvironments returns the number of supervised environments.
func (s *Supervisor) NumEnvironments() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.environments)
}

// NumEntities returns the number of supervised entities.
func (s *Supervisor) NumEntities() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entities)
}

// Environment looks up a previously created Environment by name, for
// adapters (internal/admin) that need read access without a direct
// reference passed at creation time.
func (s *Supervisor) Environment(name string) (*eee.Environment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conn, ok := s.environments[name]
	if !ok {
		return nil, false
	}
	return conn.env, true
}

// Entity looks up a previously created Entity by uuid.
func (s *Supervisor) Entity(id string) (*eee.Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conn, ok := s.entities[id]
	if !ok {
		return nil, false
	}
	return conn.entity, true
}

// EnvironmentNames returns the names of every supervised environment.
func (s *Supervisor) EnvironmentNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.environments))
	for name := range s.environments {
		names = append(names, name)
	}
	return names
}

// Environments returns a snapshot of every currently supervised
// Environment, for a host that needs to wait on each one's own Done()
// rather than just the Supervisor's.
func (s *Supervisor) Environments() []*eee.Environment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	envs := make([]*eee.Environment, 0, len(s.environments))
	for _, conn := range s.environments {
		envs = append(envs, conn.env)
	}
	return envs
}

// Entities returns a snapshot of every currently supervised Entity, for
// a host that needs to wait on each one's own Done() rather than just
// the Supervisor's.
func (s *Supervisor) Entities() []*eee.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entities := make([]*eee.Entity, 0, len(s.entities))
	for _, conn := range s.entities {
		entities = append(entities, conn.entity)
	}
	return entities
}
