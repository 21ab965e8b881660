package session

import "testing"

func TestRegistrySeats(t *testing.T) {
	r := New()
	r.Attach("a", Profile{})
	r.Attach("b", Profile{UserID: "u1", Name: "alice"})

	if got := r.DisplayName("a", 0); got != "Player 1" {
		t.Errorf("expected default name, got %q", got)
	}
	if got := r.DisplayName("b", 1); got != "alice" {
		t.Errorf("expected profile name, got %q", got)
	}

	r.Seat("a", "room1", 0)
	s, ok := r.Lookup("a")
	if !ok || s.RoomID != "room1" || s.Player != 0 {
		t.Fatalf("unexpected seat %+v %v", s, ok)
	}

	r.Unseat("a", "other")
	if _, ok := r.Lookup("a"); !ok {
		t.Fatal("unseat with the wrong room removed the seat")
	}
	r.Unseat("a", "room1")
	if _, ok := r.Lookup("a"); ok {
		t.Fatal("seat not removed")
	}

	r.Seat("b", "room2", 1)
	r.Detach("b")
	if _, ok := r.Lookup("b"); ok || r.Connections() != 1 {
		t.Fatalf("detach left state behind")
	}
}
