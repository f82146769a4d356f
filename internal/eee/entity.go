package eee

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/webitel/eee-runtime/internal/effect"
	"github.com/webitel/eee-runtime/internal/errors"
	"github.com/webitel/eee-runtime/internal/trigger"
	"github.com/webitel/eee-runtime/internal/waker"
)

// Entity is a subscriber/producer task: it receives effects from joined
// Environments, optionally transforms them via an injected Core, and may
// emit effects into affected Environments.
type Entity struct {
	uuid string

	mu          sync.Mutex
	joined      map[string]*joinedEnv
	joinedOrder []string
	affected    map[string]*affectedEnv
	core        Core
	spawned     bool

	numReceived atomic.Uint64

	shutdown   trigger.Handle
	ownTrigger *trigger.Trigger
	waker      waker.Waker
	done       chan struct{}
	log        *slog.Logger
}

type joinedEnv struct {
	in   <-chan effect.Effect
	term trigger.Handle
}

type affectedEnv struct {
	inbound Inbound
}

// Inbound is the handle an Environment hands to an affecting Entity: a
// push into its unbounded inbound queue plus its Waker, so the Entity can
// publish effects and schedule the Environment's next poll without ever
// acquiring the Environment's own lock (spec.md §5's lock-ordering rule).
type Inbound struct {
	Push  func(effect.Effect)
	Waker waker.Waker
}

// NewEntity creates an Entity with a fresh uuid, empty joined/affected
// maps, and zero received count. log may be nil, in which case
// slog.Default() is used.
func NewEntity(shutdown trigger.Handle, log *slog.Logger) *Entity {
	if log == nil {
		log = slog.Default()
	}
	id := uuid.NewString()
	own := trigger.New()
	return &Entity{
		uuid:       id,
		joined:     make(map[string]*joinedEnv),
		affected:   make(map[string]*affectedEnv),
		core:       IdentityCore,
		shutdown:   shutdown,
		ownTrigger: own,
		waker:      waker.New(),
		done:       make(chan struct{}),
		log:        log.With("entity", shortID(id)),
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// UUID returns the unique identifier of this Entity.
func (e *Entity) UUID() string { return e.uuid }

// Waker returns a handle that allows another task to reschedule this
// Entity's poll loop.
func (e *Entity) Waker() waker.Waker { return e.waker }

// Done is closed once the Entity's poll loop returns.
func (e *Entity) Done() <-chan struct{} { return e.done }

// NumReceivedEffects returns the number of effects successfully delivered
// to this Entity so far.
func (e *Entity) NumReceivedEffects() uint64 { return e.numReceived.Load() }

// InjectCore installs the transformer applied to every received effect.
// It may be called before or after Spawn, as long as the entity has not
// yet received any effect; once it has, InjectCore is an App error.
func (e *Entity) InjectCore(core Core) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.numReceived.Load() > 0 {
		return errors.App("core must be injected before the entity receives any effect")
	}
	e.core = core
	return nil
}

// JoinEnvironment records one joined Environment. It fails with an App
// error if the name is already present.
func (e *Entity) JoinEnvironment(name string, in <-chan effect.Effect, term trigger.Handle) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.joined[name]; ok {
		return errors.App("this entity already joined that environment")
	}
	e.joined[name] = &joinedEnv{in: in, term: term}
	e.joinedOrder = append(e.joinedOrder, name)
	return nil
}

// AffectEnvironment records one affected Environment. It fails with an
// App error on duplicate.
func (e *Entity) AffectEnvironment(name string, inbound Inbound) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.affected[name]; ok {
		return errors.App("this entity already affects that environment")
	}
	e.affected[name] = &affectedEnv{inbound: inbound}
	return nil
}

// JoinedEnvironments returns the names of every environment currently
// joined, in insertion order.
func (e *Entity) JoinedEnvironments() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.joinedOrder))
	copy(out, e.joinedOrder)
	return out
}

// AffectedEnvironments returns the names of every environment currently
// affected.
func (e *Entity) AffectedEnvironments() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.affected))
	for name := range e.affected {
		out = append(out, name)
	}
	return out
}

// HasJoined reports whether this entity has joined the named environment.
func (e *Entity) HasJoined(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.joined[name]
	return ok
}

// IsAffecting reports whether this entity affects the named environment.
func (e *Entity) IsAffecting(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.affected[name]
	return ok
}

// NumJoined returns the number of joined environments.
func (e *Entity) NumJoined() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.joined)
}

// NumAffected returns the number of affected environments.
func (e *Entity) NumAffected() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.affected)
}

// SendSigTerm triggers this Entity's own termination, independent of the
// process-wide shutdown trigger. Supervisor.DeleteEntity calls this.
func (e *Entity) SendSigTerm() error {
	return e.ownTrigger.Pull()
}

// Spawn starts the poll-loop goroutine. It is idempotent: calling Spawn
// twice is a no-op after the first call. ctx cancellation ends the loop
// exactly like a pulled shutdown trigger.
func (e *Entity) Spawn(ctx context.Context) {
	e.mu.Lock()
	if e.spawned {
		e.mu.Unlock()
		return
	}
	e.spawned = true
	e.mu.Unlock()

	go e.run(ctx)
}

func (e *Entity) run(ctx context.Context) {
	defer close(e.done)
	for {
		e.pollOnce()

		select {
		case <-ctx.Done():
			return
		case <-e.shutdown.Done():
			e.log.Debug("entity received sig-term")
			return
		case <-e.ownTrigger.Handle().Done():
			e.log.Debug("entity received own sig-term")
			return
		case <-e.waker.C():
			continue
		}
	}
}

// pollOnce runs one full poll: drain every joined environment until a
// clean sweep yields nothing, apply the core to each received effect,
// publish to affected environments, then retire any environment whose
// term signal fired.
func (e *Entity) pollOnce() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for {
		sweepReceivedAny := false

		for _, name := range e.joinedOrder {
			je, ok := e.joined[name]
			if !ok {
				continue
			}
			for {
				eff, ok := tryRecv(je.in)
				if !ok {
					break
				}
				sweepReceivedAny = true
				e.deliver(name, eff)
				e.numReceived.Add(1)
			}
		}

		// §9: require one additional clean pass before suspending, not
		// merely "every channel was dry in this pass" — a channel
		// visited early in joinedOrder could have been refilled by the
		// time a later channel is checked.
		if !sweepReceivedAny {
			break
		}
	}

	e.retireTerminated()
}

func tryRecv(ch <-chan effect.Effect) (effect.Effect, bool) {
	select {
	case v, ok := <-ch:
		if !ok {
			return nil, false
		}
		return v, true
	default:
		return nil, false
	}
}

func (e *Entity) deliver(fromEnv string, in effect.Effect) {
	out, ok := e.core(in)
	if !ok {
		return
	}
	for _, ae := range e.affected {
		ae.inbound.Push(out.Clone())
		ae.inbound.Waker.Notify()
	}
}

// retireTerminated must be called with e.mu held.
func (e *Entity) retireTerminated() {
	var toDrop []string
	for _, name := range e.joinedOrder {
		je := e.joined[name]
		if je == nil {
			continue
		}
		if je.term.Pulled() {
			toDrop = append(toDrop, name)
		}
	}
	if len(toDrop) == 0 {
		return
	}
	for _, name := range toDrop {
		delete(e.joined, name)
		e.log.Debug("entity unsubscribed from environment", "environment", name)
	}
	e.joinedOrder = removeAll(e.joinedOrder, toDrop)
}

func removeAll(order []string, drop []string) []string {
	dropSet := make(map[string]struct{}, len(drop))
	for _, d := range drop {
		dropSet[d] = struct{}{}
	}
	out := order[:0:0]
	for _, name := range order {
		if _, dropped := dropSet[name]; !dropped {
			out = append(out, name)
		}
	}
	return out
}
