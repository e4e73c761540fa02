package peer

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"bittrickle/internal/wire"

	"github.com/cenkalti/backoff"
	"github.com/google/uuid"
)

// ErrTimeout means every attempt at a discovery round trip ran out its
// read deadline without a matching reply. The protocol itself has no
// delivery guarantee, so the client bounds the wait and retries.
var ErrTimeout = errors.New("no reply from tracker")

// TrackerClient issues discovery-protocol requests over UDP, one
// datagram out and one reply back per request.
type TrackerClient struct {
	addr       string
	timeout    time.Duration // per-attempt read deadline
	maxRetries uint64
}

// NewTrackerClient creates a client for the tracker at addr (host:port).
func NewTrackerClient(addr string, timeout time.Duration) *TrackerClient {
	return &TrackerClient{
		addr:       addr,
		timeout:    timeout,
		maxRetries: 3,
	}
}

// Login authenticates username and advertises the peer's transfer port.
func (c *TrackerClient) Login(username, password string, tcpPort int) (wire.Response, error) {
	return c.roundTrip(wire.Request{
		Type:     wire.KindLogin,
		Username: username,
		Password: password,
		TCPPort:  tcpPort,
	})
}

// Heartbeat reports liveness. It is fire and forget: the reply, if any,
// is never read, matching the protocol's lack of delivery guarantees.
func (c *TrackerClient) Heartbeat(username string) error {
	req := wire.Request{ID: uuid.NewString(), Type: wire.KindHeartbeat, Username: username}
	payload, err := wire.EncodeRequest(req)
	if err != nil {
		return err
	}
	conn, err := net.Dial("udp", c.addr)
	if err != nil {
		return fmt.Errorf("dial tracker: %w", err)
	}
	defer conn.Close()
	if _, err := conn.Write(payload); err != nil {
		return fmt.Errorf("send heartbeat: %w", err)
	}
	return nil
}

// ListPublished asks for the filenames the caller has published.
func (c *TrackerClient) ListPublished(username string) (wire.Response, error) {
	return c.roundTrip(wire.Request{Type: wire.KindListFiles, Username: username})
}

// ListActive asks for the other currently-active usernames.
func (c *TrackerClient) ListActive(username string) (wire.Response, error) {
	return c.roundTrip(wire.Request{Type: wire.KindListPeers, Username: username})
}

// Publish advertises a file held by username.
func (c *TrackerClient) Publish(username, filename string) (wire.Response, error) {
	return c.roundTrip(wire.Request{Type: wire.KindPublish, Username: username, Filename: filename})
}

// Unpublish withdraws a previously published file.
func (c *TrackerClient) Unpublish(username, filename string) (wire.Response, error) {
	return c.roundTrip(wire.Request{Type: wire.KindUnpublish, Username: username, Filename: filename})
}

// Search asks for published filenames containing substring, excluding
// the caller's own files.
func (c *TrackerClient) Search(username, substring string) (wire.Response, error) {
	return c.roundTrip(wire.Request{Type: wire.KindSearch, Username: username, Substring: substring})
}

// Get resolves filename to the address and transfer port of the peer
// currently serving it.
func (c *TrackerClient) Get(username, filename string) (wire.Response, error) {
	return c.roundTrip(wire.Request{Type: wire.KindGet, Username: username, Filename: filename})
}

// roundTrip sends one request and waits for the reply carrying the same
// request id. Each attempt has a bounded read deadline; attempts are
// retried with exponential backoff before ErrTimeout is surfaced.
func (c *TrackerClient) roundTrip(req wire.Request) (wire.Response, error) {
	req.ID = uuid.NewString()
	payload, err := wire.EncodeRequest(req)
	if err != nil {
		return wire.Response{}, err
	}

	var resp wire.Response
	attempt := func() error {
		conn, err := net.Dial("udp", c.addr)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("dial tracker: %w", err))
		}
		defer conn.Close()

		if _, err := conn.Write(payload); err != nil {
			return fmt.Errorf("send request: %w", err)
		}
		if err := conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
			return backoff.Permanent(err)
		}

		buf := make([]byte, wire.MaxDatagramSize)
		for {
			n, err := conn.Read(buf)
			if err != nil {
				if errors.Is(err, os.ErrDeadlineExceeded) {
					return ErrTimeout
				}
				return fmt.Errorf("read reply: %w", err)
			}
			r, err := wire.DecodeResponse(buf[:n])
			if err != nil || r.ID != req.ID {
				// Stale reply from an earlier attempt; keep waiting
				// out the deadline for ours.
				continue
			}
			resp = r
			return nil
		}
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries)
	if err := backoff.Retry(attempt, policy); err != nil {
		return wire.Response{}, err
	}
	return resp, nil
}
