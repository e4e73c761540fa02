package tracker

import (
	"errors"
	"testing"
	"time"
)

func TestDuplicateLoginDoesNotReplaceSession(t *testing.T) {
	r := NewRegistry()
	t0 := time.Now()

	if err := r.Add("alice", "10.0.0.1", 4040, t0); err != nil {
		t.Fatalf("first Add failed: %v", err)
	}

	// Second login for the same username arrives later from elsewhere.
	err := r.Add("alice", "10.0.0.9", 5050, t0.Add(time.Second))
	if !errors.Is(err, ErrAlreadyLoggedIn) {
		t.Fatalf("expected ErrAlreadyLoggedIn, got %v", err)
	}

	s, ok := r.Get("alice")
	if !ok {
		t.Fatal("session disappeared after duplicate login")
	}
	if s.Address != "10.0.0.1" || s.TCPPort != 4040 {
		t.Errorf("duplicate login replaced the session: %+v", s)
	}
	if !s.LastSeen.Equal(t0.Add(time.Second)) {
		t.Errorf("duplicate login should refresh LastSeen, got %v", s.LastSeen)
	}
}

func TestTouchUnknownUserIsNoOp(t *testing.T) {
	r := NewRegistry()
	if r.Touch("ghost", time.Now()) {
		t.Error("Touch reported success for a user with no session")
	}
	if r.Len() != 0 {
		t.Errorf("Touch on unknown user mutated the registry: %d sessions", r.Len())
	}
}

func TestSweepEvictsExactlyExpiredSessions(t *testing.T) {
	r := NewRegistry()
	t0 := time.Now()
	timeout := 3 * time.Second

	r.Add("stale", "10.0.0.1", 1111, t0)
	r.Add("fresh", "10.0.0.2", 2222, t0)
	r.Add("edge", "10.0.0.3", 3333, t0)

	// fresh is touched inside the window; edge sits exactly on the
	// boundary and must survive (eviction requires strictly greater).
	now := t0.Add(4 * time.Second)
	r.Touch("fresh", now.Add(-time.Second))
	r.Touch("edge", now.Add(-timeout))

	evicted := r.Sweep(now, timeout)
	if len(evicted) != 1 || evicted[0] != "stale" {
		t.Fatalf("expected only stale evicted, got %v", evicted)
	}
	if _, ok := r.Get("fresh"); !ok {
		t.Error("fresh session was evicted")
	}
	if _, ok := r.Get("edge"); !ok {
		t.Error("boundary session was evicted")
	}
}

func TestListOthersExcludesCaller(t *testing.T) {
	r := NewRegistry()
	now := time.Now()
	r.Add("alice", "10.0.0.1", 1111, now)
	r.Add("bob", "10.0.0.2", 2222, now)
	r.Add("carol", "10.0.0.3", 3333, now)

	others := r.ListOthers("bob")
	if len(others) != 2 || others[0] != "alice" || others[1] != "carol" {
		t.Errorf("ListOthers(bob) = %v", others)
	}
	if got := r.ListOthers("nobody"); len(got) != 3 {
		t.Errorf("ListOthers for a non-session name should list everyone, got %v", got)
	}
}
