package peer

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"bittrickle/internal/tracker"
)

// startTracker runs a real tracker on a loopback UDP socket.
func startTracker(t *testing.T, creds tracker.Credentials) string {
	t.Helper()
	srv := tracker.NewServer(creds, 30*time.Second)
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go srv.Serve(ctx, conn)
	return conn.LocalAddr().String()
}

func TestEndToEndPublishSearchGet(t *testing.T) {
	addr := startTracker(t, tracker.Credentials{"alice": "secret", "bob": "hunter2"})

	// Peer A holds notes.txt and publishes it.
	dirA := t.TempDir()
	content := bytes.Repeat([]byte("shared between peers\n"), 1024)
	if err := os.WriteFile(filepath.Join(dirA, "notes.txt"), content, 0o644); err != nil {
		t.Fatal(err)
	}

	clientA := NewTrackerClient(addr, 2*time.Second)
	sessA, err := NewSession(clientA, dirA, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := sessA.Login("alice", "secret"); err != nil {
		t.Fatalf("peer A login: %v", err)
	}
	sessA.Start(context.Background())
	t.Cleanup(sessA.Close)

	if resp, err := clientA.Publish("alice", "notes.txt"); err != nil || !resp.OK() {
		t.Fatalf("publish: %v / %+v", err, resp)
	}

	// Peer B discovers the file by substring and fetches it.
	dirB := t.TempDir()
	clientB := NewTrackerClient(addr, 2*time.Second)
	sessB, err := NewSession(clientB, dirB, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := sessB.Login("bob", "hunter2"); err != nil {
		t.Fatalf("peer B login: %v", err)
	}
	sessB.Start(context.Background())
	t.Cleanup(sessB.Close)

	search, err := clientB.Search("bob", "note")
	if err != nil || !search.OK() {
		t.Fatalf("search: %v / %+v", err, search)
	}
	if !slices.Contains(search.Files, "notes.txt") {
		t.Fatalf("search did not find notes.txt: %v", search.Files)
	}

	resolve, err := clientB.Get("bob", "notes.txt")
	if err != nil || !resolve.OK() {
		t.Fatalf("get: %v / %+v", err, resolve)
	}
	if err := Download(resolve.PeerAddress, resolve.PeerPort, "notes.txt", dirB); err != nil {
		t.Fatalf("download: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dirB, "notes.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("downloaded file differs from the original (%d vs %d bytes)", len(got), len(content))
	}
}

func TestLoginRetryAfterRejection(t *testing.T) {
	addr := startTracker(t, tracker.Credentials{"alice": "secret"})

	sess, err := NewSession(NewTrackerClient(addr, 2*time.Second), t.TempDir(), time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	if msg, err := sess.Login("alice", "wrong"); err == nil {
		t.Fatalf("login with bad password succeeded: %q", msg)
	}
	// The same session can simply try again with the right password.
	if _, err := sess.Login("alice", "secret"); err != nil {
		t.Fatalf("retry login failed: %v", err)
	}
	if sess.Username() != "alice" {
		t.Errorf("session username = %q", sess.Username())
	}
	sess.Start(context.Background())
	sess.Close()
}
