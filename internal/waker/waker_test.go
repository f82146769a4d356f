package waker

import "testing"

func TestNotifyWakesPendingReceive(t *testing.T) {
	w := New()

	select {
	case <-w.C():
		t.Fatalf("expected no pending wakeup before Notify")
	default:
	}

	w.Notify()

	select {
	case <-w.C():
	default:
		t.Fatalf("expected a pending wakeup after Notify")
	}
}

func TestNotifyCoalesces(t *testing.T) {
	w := New()

	w.Notify()
	w.Notify()
	w.Notify()

	// Three notifies between polls must collapse into exactly one
	// pending resumption.
	select {
	case <-w.C():
	default:
		t.Fatalf("expected a pending wakeup")
	}

	select {
	case <-w.C():
		t.Fatalf("expected only one coalesced wakeup, got a second")
	default:
	}
}

func TestWakerValueCopySharesState(t *testing.T) {
	w := New()
	clone := w

	clone.Notify()

	select {
	case <-w.C():
	default:
		t.Fatalf("expected the original handle to observe a notify sent via a copy")
	}
}
