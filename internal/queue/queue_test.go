package queue

import "testing"

func TestSendThenTryRecvFIFO(t *testing.T) {
	q := New[int]()

	q.Send(1)
	q.Send(2)
	q.Send(3)

	for _, want := range []int{1, 2, 3} {
		got, ok := q.TryRecv()
		if !ok {
			t.Fatalf("expected a value, got none")
		}
		if got != want {
			t.Fatalf("expected %d, got %d", want, got)
		}
	}

	if _, ok := q.TryRecv(); ok {
		t.Fatalf("expected empty queue to report no value")
	}
}

func TestTryRecvOnEmptyQueueDoesNotBlock(t *testing.T) {
	q := New[string]()

	if v, ok := q.TryRecv(); ok {
		t.Fatalf("expected no value, got %q", v)
	}
}

func TestLenReflectsPendingItems(t *testing.T) {
	q := New[int]()
	if q.Len() != 0 {
		t.Fatalf("expected 0, got %d", q.Len())
	}

	q.Send(1)
	q.Send(2)
	if q.Len() != 2 {
		t.Fatalf("expected 2, got %d", q.Len())
	}

	q.TryRecv()
	if q.Len() != 1 {
		t.Fatalf("expected 1, got %d", q.Len())
	}
}

func TestSendAfterCloseIsDropped(t *testing.T) {
	q := New[int]()
	q.Close()
	q.Send(1)

	if _, ok := q.TryRecv(); ok {
		t.Fatalf("expected a send after Close to be silently dropped")
	}
}
