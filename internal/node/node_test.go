package node

import (
	"testing"
	"time"

	"github.com/webitel/eee-runtime/internal/effect"
)

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met within %s", timeout)
		}
		time.Sleep(time.Millisecond)
	}
}

// TestShutdownDrainsEverySpawnedTask builds a real Node, spawns two
// Environments and two Entities joined across them, and verifies that
// Shutdown only returns once the Supervisor's own task and every one of
// those Environments' and Entities' Done() channels have closed (property 7:
// every spawned task reaches Ready and complete).
func TestShutdownDrainsEverySpawnedTask(t *testing.T) {
	n, err := New(8, nil)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	x, err := n.CreateEnvironment("X")
	if err != nil {
		t.Fatalf("create X: %v", err)
	}
	y, err := n.CreateEnvironment("Y")
	if err != nil {
		t.Fatalf("create Y: %v", err)
	}

	a, err := n.CreateEntity()
	if err != nil {
		t.Fatalf("create a: %v", err)
	}
	if err := n.Supervisor().JoinEnvironments(a, []string{"X", "Y"}); err != nil {
		t.Fatalf("join a: %v", err)
	}

	b, err := n.CreateEntity()
	if err != nil {
		t.Fatalf("create b: %v", err)
	}
	if err := n.Supervisor().JoinEnvironments(b, []string{"Y"}); err != nil {
		t.Fatalf("join b: %v", err)
	}

	if err := n.Supervisor().SubmitEffect(effect.ASCII("hello"), "X"); err != nil {
		t.Fatalf("submit to X: %v", err)
	}
	waitUntil(t, time.Second, func() bool { return x.NumReceivedEffects() == 1 })

	done := make(chan error, 1)
	go func() { done <- n.Shutdown() }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("shutdown: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("shutdown did not return within 2s")
	}

	for name, ch := range map[string]<-chan struct{}{
		"supervisor": n.Supervisor().Done(),
		"X":          x.Done(),
		"Y":          y.Done(),
		"a":          a.Done(),
		"b":          b.Done(),
	} {
		select {
		case <-ch:
		default:
			t.Fatalf("expected %s to be done once Shutdown returned", name)
		}
	}
}
