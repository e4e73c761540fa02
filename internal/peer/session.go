package peer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"time"
)

// ErrAuthRejected means the tracker refused a login attempt, either for
// bad credentials or because the username is already active.
var ErrAuthRejected = errors.New("authentication rejected")

// Session owns a peer's side of the overlay: the transfer-accept
// listener, the authentication handshake, the recurring heartbeat and
// shutdown coordination. The listener is opened before authenticating
// so the advertised transfer port is valid the instant login succeeds.
type Session struct {
	tracker  *TrackerClient
	shareDir string
	interval time.Duration

	username string
	listener net.Listener

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSession opens the transfer-accept endpoint on an ephemeral port
// and prepares an unauthenticated session sharing files from shareDir.
func NewSession(tracker *TrackerClient, shareDir string, interval time.Duration) (*Session, error) {
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		return nil, fmt.Errorf("open transfer endpoint: %w", err)
	}
	return &Session{
		tracker:  tracker,
		shareDir: shareDir,
		interval: interval,
		listener: ln,
	}, nil
}

// TransferPort is the port the transfer-accept endpoint listens on.
func (s *Session) TransferPort() int {
	return s.listener.Addr().(*net.TCPAddr).Port
}

// Username is the name the session authenticated as, if it has.
func (s *Session) Username() string {
	return s.username
}

// Login authenticates with the tracker, advertising the transfer port.
// It returns the tracker's message; on a refused attempt the error
// wraps ErrAuthRejected and the session may simply try again.
func (s *Session) Login(username, password string) (string, error) {
	resp, err := s.tracker.Login(username, password, s.TransferPort())
	if err != nil {
		return "", err
	}
	if !resp.OK() {
		return resp.Message, fmt.Errorf("%w: %s", ErrAuthRejected, resp.Message)
	}
	s.username = username
	return resp.Message, nil
}

// Start launches the two background activities of an active session:
// the heartbeat emitter and the transfer responder. Both stop when ctx
// is cancelled; Close waits for them.
func (s *Session) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(2)
	go s.heartbeatLoop(ctx)
	go s.serveTransfers(ctx)
}

func (s *Session) heartbeatLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.tracker.Heartbeat(s.username); err != nil {
				log.Printf("Heartbeat: %v", err)
			}
		}
	}
}

// Close shuts the session down: cancel both background activities,
// unblock the responder by closing the listener, then join.
func (s *Session) Close() {
	if s.cancel != nil {
		s.cancel()
	}
	s.listener.Close()
	s.wg.Wait()
}
