package peer

import (
	"errors"
	"net"
	"testing"
	"time"
)

func TestRoundTripSurfacesTimeoutWhenRepliesAreLost(t *testing.T) {
	// A socket that swallows every request stands in for a lossy
	// network; the bounded wait must turn silence into ErrTimeout.
	sink, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatal(err)
	}
	defer sink.Close()

	c := NewTrackerClient(sink.LocalAddr().String(), 50*time.Millisecond)
	c.maxRetries = 1

	start := time.Now()
	_, err = c.Search("alice", "notes")
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Errorf("bounded wait took %s", elapsed)
	}
}

func TestHeartbeatIsFireAndForget(t *testing.T) {
	sink, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatal(err)
	}
	defer sink.Close()

	c := NewTrackerClient(sink.LocalAddr().String(), 50*time.Millisecond)

	done := make(chan error, 1)
	go func() { done <- c.Heartbeat("alice") }()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("heartbeat errored: %v", err)
		}
	case <-time.After(time.Second):
		t.Error("heartbeat blocked waiting for a reply")
	}
}
