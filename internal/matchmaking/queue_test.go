package matchmaking

import "testing"

func TestQueuePairsInArrivalOrder(t *testing.T) {
	q := New()
	if _, paired := q.Offer("a"); paired {
		t.Fatal("first offer should wait")
	}
	if w, ok := q.Waiting(); !ok || w != "a" {
		t.Fatalf("expected a waiting, got %q %v", w, ok)
	}
	opp, paired := q.Offer("b")
	if !paired || opp != "a" {
		t.Fatalf("expected pairing with a, got %q %v", opp, paired)
	}
	if _, ok := q.Waiting(); ok {
		t.Fatal("queue should be empty after pairing")
	}
}

func TestQueueRepeatOfferKeepsWaiting(t *testing.T) {
	q := New()
	q.Offer("a")
	if _, paired := q.Offer("a"); paired {
		t.Fatal("a connection must not pair with itself")
	}
	if w, _ := q.Waiting(); w != "a" {
		t.Fatalf("expected a waiting, got %q", w)
	}
}

func TestQueueRemoveIfWaiting(t *testing.T) {
	q := New()
	q.Offer("a")
	if q.RemoveIfWaiting("b") {
		t.Fatal("removed a connection that was not waiting")
	}
	if !q.RemoveIfWaiting("a") {
		t.Fatal("expected a to be removed")
	}
	if _, ok := q.Waiting(); ok {
		t.Fatal("queue should be empty")
	}
	if _, paired := q.Offer("c"); paired {
		t.Fatal("c should wait on an empty queue")
	}
}
