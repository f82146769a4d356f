package eee

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/webitel/eee-runtime/internal/broadcast"
	"github.com/webitel/eee-runtime/internal/effect"
	"github.com/webitel/eee-runtime/internal/queue"
	"github.com/webitel/eee-runtime/internal/trigger"
	"github.com/webitel/eee-runtime/internal/waker"
)

// Environment is a named broadcast node: it receives effects from the
// Supervisor (or from affecting Entities) on a single inbound queue and
// fans them out to every joined Entity.
type Environment struct {
	name string

	mu                sync.Mutex
	joinedEntities    []joinedEntity
	affectingEntities []*Entity

	in         *queue.Unbounded[effect.Effect]
	out        *broadcast.Ring[effect.Effect]
	dropNotifier *trigger.Trigger
	shutdown   trigger.Handle
	waker      waker.Waker

	numReceived atomic.Uint64

	spawned bool
	done    chan struct{}
	log     *slog.Logger
}

type joinedEntity struct {
	entity *Entity
	waker  waker.Waker
}

// NewEnvironment creates a named Environment wired to the given inbound
// queue. broadcastBufferSize is spec.md's BROADCAST_BUFFER_SIZE, the
// per-subscriber capacity of the fan-out ring; callers must pass a value
// >= 2.
func NewEnvironment(name string, in *queue.Unbounded[effect.Effect], broadcastBufferSize int, shutdown trigger.Handle, log *slog.Logger) *Environment {
	if log == nil {
		log = slog.Default()
	}
	return &Environment{
		name:         name,
		in:           in,
		out:          broadcast.New[effect.Effect](broadcastBufferSize),
		dropNotifier: trigger.New(),
		shutdown:     shutdown,
		waker:        waker.New(),
		done:         make(chan struct{}),
		log:          log.With("environment", name),
	}
}

// Name returns the immutable name of this environment.
func (env *Environment) Name() string { return env.name }

// Waker returns a handle that allows another task to reschedule this
// Environment's poll loop.
func (env *Environment) Waker() waker.Waker { return env.waker }

// Done is closed once the Environment's poll loop returns.
func (env *Environment) Done() <-chan struct{} { return env.done }

// NumReceivedEffects returns the number of effects read off the inbound
// queue so far.
func (env *Environment) NumReceivedEffects() uint64 { return env.numReceived.Load() }

// NumJoinedEntities returns the number of entities currently joined.
func (env *Environment) NumJoinedEntities() int {
	env.mu.Lock()
	defer env.mu.Unlock()
	return len(env.joinedEntities)
}

// Subscribe hands back a raw tap on this environment's broadcast fan-out,
// for diagnostics consumers (internal/admin) that want to observe
// delivered effects without being a registered Entity. Callers must
// Unsubscribe when done.
func (env *Environment) Subscribe() <-chan effect.Effect { return env.out.Subscribe() }

// Unsubscribe detaches a previously Subscribe'd channel.
func (env *Environment) Unsubscribe(ch <-chan effect.Effect) { env.out.Unsubscribe(ch) }

// Inbound returns the handle an affecting Entity publishes through: a
// push into this environment's unbounded inbound queue plus this
// environment's Waker.
func (env *Environment) Inbound() Inbound {
	return Inbound{
		Push:  env.in.Send,
		Waker: env.waker,
	}
}

// RegisterJoiningEntity subscribes entity to this environment's broadcast
// and wires up entity's JoinEnvironment bookkeeping.
func (env *Environment) RegisterJoiningEntity(entity *Entity) error {
	rx := env.out.Subscribe()
	term := env.dropNotifier.Handle()

	if err := entity.JoinEnvironment(env.name, rx, term); err != nil {
		env.out.Unsubscribe(rx)
		return err
	}

	env.mu.Lock()
	env.joinedEntities = append(env.joinedEntities, joinedEntity{entity: entity, waker: entity.Waker()})
	env.mu.Unlock()

	return nil
}

// RegisterAffectingEntity wires entity to publish into this environment.
func (env *Environment) RegisterAffectingEntity(entity *Entity) error {
	if err := entity.AffectEnvironment(env.name, env.Inbound()); err != nil {
		return err
	}

	env.mu.Lock()
	env.affectingEntities = append(env.affectingEntities, entity)
	env.mu.Unlock()

	return nil
}

// SendSigTerm pulls the drop notifier: every joined Entity unsubscribes
// this environment on its next poll, and this Environment's own poll loop
// keeps running until the Supervisor-wide shutdown trigger fires (a
// deleted Environment stops delivering, but its goroutine only exits on
// shutdown, matching spec.md's "Environment future completes" after the
// drop notifier fires AND the shared shutdown path is taken).
func (env *Environment) SendSigTerm() error {
	env.log.Debug("environment sending sig-term to joined entities")
	return env.dropNotifier.Pull()
}

// Spawn starts the poll-loop goroutine. Idempotent.
func (env *Environment) Spawn(ctx context.Context) {
	env.mu.Lock()
	if env.spawned {
		env.mu.Unlock()
		return
	}
	env.spawned = true
	env.mu.Unlock()

	go env.run(ctx)
}

func (env *Environment) run(ctx context.Context) {
	defer close(env.done)
	for {
		env.pollOnce()

		select {
		case <-ctx.Done():
			return
		case <-env.shutdown.Done():
			env.log.Debug("environment received sig-term")
			return
		case <-env.waker.C():
			continue
		}
	}
}

// pollOnce drains the inbound queue non-blockingly, broadcasting each
// effect to out, applying the half-full wake heuristic from spec.md
// §4.4 so a bursty producer can't starve joined Entities of wakeups
// while the ring is still filling.
func (env *Environment) pollOnce() {
	env.mu.Lock()
	joined := append([]joinedEntity(nil), env.joinedEntities...)
	env.mu.Unlock()

	halfBuffer := env.out.Cap() / 2
	if halfBuffer < 1 {
		halfBuffer = 1
	}

	sinceWake := 0
	for {
		eff, ok := env.in.TryRecv()
		if !ok {
			break
		}

		env.out.Publish(eff)
		env.numReceived.Add(1)
		sinceWake++

		if sinceWake >= halfBuffer {
			wakeAll(joined)
			sinceWake = 0
		}
	}

	wakeAll(joined)
	env.checkTerminatedEntities()
}

func wakeAll(joined []joinedEntity) {
	for _, je := range joined {
		je.waker.Notify()
	}
}

// checkTerminatedEntities prunes joined entities whose poll goroutine has
// already exited, so a long-lived Environment doesn't keep notifying dead
// wakers forever. This is informational bookkeeping only: the
// authoritative unjoin happens inside the Entity itself via its term_sig,
// per spec.md §4.3 step 5.
func (env *Environment) checkTerminatedEntities() {
	env.mu.Lock()
	defer env.mu.Unlock()

	live := env.joinedEntities[:0:0]
	for _, je := range env.joinedEntities {
		select {
		case <-je.entity.Done():
			continue
		default:
			live = append(live, je)
		}
	}
	env.joinedEntities = live
}
