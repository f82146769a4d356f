// Package node implements the thin host that owns a Supervisor, the
// process-wide shutdown trigger, and the goroutine group every Environment
// and Entity runs on. spec.md names the Node as an external collaborator
// out of the core's scope; this package is the minimal glue a host process
// needs to actually run the core, with no messaging logic of its own.
package node

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/webitel/eee-runtime/internal/eee"
	"github.com/webitel/eee-runtime/internal/supervisor"
	"github.com/webitel/eee-runtime/internal/trigger"
)

// Node owns a Supervisor and the shutdown trigger that cascades to every
// task it spawns.
type Node struct {
	ctx    context.Context
	cancel context.CancelFunc

	shutdown   *trigger.Trigger
	supervisor *supervisor.Supervisor
	log        *slog.Logger
}

// New creates a Node with a fresh Supervisor. broadcastBufferSize is
// spec.md's BROADCAST_BUFFER_SIZE.
func New(broadcastBufferSize int, log *slog.Logger) (*Node, error) {
	if log == nil {
		log = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())

	shutdown := trigger.New()
	sv, err := supervisor.New(shutdown.Handle(), broadcastBufferSize, log)
	if err != nil {
		cancel()
		return nil, err
	}

	n := &Node{ctx: ctx, cancel: cancel, shutdown: shutdown, supervisor: sv, log: log}
	go sv.Run(ctx)
	return n, nil
}

// Supervisor returns the Node's Supervisor handle.
func (n *Node) Supervisor() *supervisor.Supervisor { return n.supervisor }

// CreateEnvironment creates and spawns an Environment through the
// Supervisor.
func (n *Node) CreateEnvironment(name string) (*eee.Environment, error) {
	return n.supervisor.CreateEnvironment(n.ctx, name)
}

// CreateEntity creates and spawns an Entity through the Supervisor.
func (n *Node) CreateEntity() (*eee.Entity, error) {
	return n.supervisor.CreateEntity(n.ctx)
}

// Shutdown pulls the process-wide shutdown trigger, cancels the Node's
// context, and concurrently drains the Supervisor's own task plus every
// Environment and Entity it still holds a reference to, so Shutdown only
// returns once every spawned task has actually reached completion (spec.md's
// "every spawned task reaches Ready and complete" property), not just the
// Supervisor's own goroutine.
func (n *Node) Shutdown() error {
	if err := n.shutdown.Pull(); err != nil {
		return err
	}
	n.cancel()
	n.log.Info("shutting down")

	var g errgroup.Group
	g.Go(func() error {
		<-n.supervisor.Done()
		return nil
	})
	for _, env := range n.supervisor.Environments() {
		env := env
		g.Go(func() error {
			<-env.Done()
			return nil
		})
	}
	for _, entity := range n.supervisor.Entities() {
		entity := entity
		g.Go(func() error {
			<-entity.Done()
			return nil
		})
	}
	return g.Wait()
}
