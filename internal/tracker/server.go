package tracker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"bittrickle/internal/wire"
)

// Server is the tracker's request loop over one UDP socket. Datagrams
// are processed one at a time; the mutex exists so the per-kind
// handlers stay correct if serving is ever parallelized, and it guards
// the registry and catalog together so an eviction can never race a
// get resolution.
type Server struct {
	creds          Credentials
	sessionTimeout time.Duration
	now            func() time.Time

	mu       sync.Mutex
	registry *Registry
	catalog  *Catalog
}

// NewServer creates a tracker serving the given credentials with the
// given session decay timeout.
func NewServer(creds Credentials, sessionTimeout time.Duration) *Server {
	return &Server{
		creds:          creds,
		sessionTimeout: sessionTimeout,
		now:            time.Now,
		registry:       NewRegistry(),
		catalog:        NewCatalog(),
	}
}

// Serve reads request datagrams from conn until ctx is cancelled. Every
// request gets exactly one reply datagram sent back to its source.
func (s *Server) Serve(ctx context.Context, conn *net.UDPConn) error {
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	buf := make([]byte, wire.MaxDatagramSize)
	for {
		n, raddr, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("read datagram: %w", err)
		}

		req, err := wire.DecodeRequest(buf[:n])
		if err != nil {
			log.Printf("Recv: dropping malformed datagram from %s: %v", raddr, err)
			continue
		}

		resp := s.handle(req, raddr.IP.String())

		payload, err := wire.EncodeResponse(resp)
		if err != nil {
			log.Printf("Send: encoding reply for %s: %v", raddr, err)
			continue
		}
		if _, err := conn.WriteToUDP(payload, raddr); err != nil {
			log.Printf("Send: reply to %s: %v", raddr, err)
		}
	}
}

// handle sweeps expired sessions and dispatches one request. The sweep
// runs first so no handler ever observes a logically-stale session.
func (s *Server) handle(req wire.Request, sourceIP string) wire.Response {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for _, username := range s.registry.Sweep(now, s.sessionTimeout) {
		log.Printf("Sweep: evicted %q (unseen for over %s)", username, s.sessionTimeout)
	}

	log.Printf("Recv: %s from %q", req.Type, req.Username)

	switch req.Type {
	case wire.KindLogin:
		return s.handleLogin(req, sourceIP, now)
	case wire.KindHeartbeat:
		return s.handleHeartbeat(req, now)
	case wire.KindListFiles:
		return s.handleListFiles(req, now)
	case wire.KindListPeers:
		return s.handleListPeers(req, now)
	case wire.KindPublish:
		return s.handlePublish(req, now)
	case wire.KindUnpublish:
		return s.handleUnpublish(req, now)
	case wire.KindSearch:
		return s.handleSearch(req, now)
	case wire.KindGet:
		return s.handleGet(req, now)
	default:
		log.Printf("Recv: unrecognized request type %q from %q", req.Type, req.Username)
		return fail(req, "Unrecognized request type")
	}
}

func (s *Server) handleLogin(req wire.Request, sourceIP string, now time.Time) wire.Response {
	if !s.creds.Verify(req.Username, req.Password) {
		log.Printf("Login: rejected %q: %v", req.Username, ErrBadCredentials)
		return fail(req, "Authentication failed. Please try again.")
	}
	if err := s.registry.Add(req.Username, sourceIP, req.TCPPort, now); err != nil {
		// The duplicate attempt still refreshed the live session.
		log.Printf("Login: rejected %q: %v", req.Username, err)
		return fail(req, "Authentication failed. You are already logged in.")
	}
	log.Printf("Login: %q active at %s:%d", req.Username, sourceIP, req.TCPPort)
	return success(req, "Welcome to BitTrickle!")
}

func (s *Server) handleHeartbeat(req wire.Request, now time.Time) wire.Response {
	if !s.registry.Touch(req.Username, now) {
		log.Printf("Heartbeat: %v: %q", ErrUnknownUser, req.Username)
		return fail(req, "Unknown user")
	}
	return success(req, "Heartbeat received")
}

func (s *Server) handleListFiles(req wire.Request, now time.Time) wire.Response {
	s.registry.Touch(req.Username, now)
	files := s.catalog.ListOwnedBy(req.Username)
	if len(files) == 0 {
		return fail(req, "No files published")
	}
	resp := success(req, "Files listed")
	resp.Files = files
	return resp
}

func (s *Server) handleListPeers(req wire.Request, now time.Time) wire.Response {
	s.registry.Touch(req.Username, now)
	users := s.registry.ListOthers(req.Username)
	if len(users) == 0 {
		return fail(req, "No active peers")
	}
	resp := success(req, "Active peers listed")
	resp.Users = users
	return resp
}

func (s *Server) handlePublish(req wire.Request, now time.Time) wire.Response {
	s.registry.Touch(req.Username, now)
	// An empty filename is a real failure here, unlike the historical
	// behavior of acknowledging it inside a success envelope.
	if err := s.catalog.Publish(req.Filename, req.Username); err != nil {
		return fail(req, "File publish was unsuccessful: filename required")
	}
	return success(req, "File published successfully")
}

func (s *Server) handleUnpublish(req wire.Request, now time.Time) wire.Response {
	s.registry.Touch(req.Username, now)
	switch err := s.catalog.Unpublish(req.Filename, req.Username); {
	case errors.Is(err, ErrNotFound):
		return fail(req, "No file published with that name")
	case errors.Is(err, ErrNotOwner):
		return fail(req, "File cannot be unpublished as you are not its publisher")
	}
	return success(req, "File unpublished successfully")
}

func (s *Server) handleSearch(req wire.Request, now time.Time) wire.Response {
	s.registry.Touch(req.Username, now)
	files := s.catalog.Search(req.Substring, req.Username)
	if len(files) == 0 {
		return fail(req, "No matching files found")
	}
	resp := success(req, "Matching files found")
	resp.Files = files
	return resp
}

func (s *Server) handleGet(req wire.Request, now time.Time) wire.Response {
	s.registry.Touch(req.Username, now)
	owner, ok := s.catalog.ResolveOwner(req.Filename)
	if !ok {
		return fail(req, "File not found")
	}
	// Only the session recorded at the owner's login is trusted for the
	// transfer address; a catalog entry may outlive it.
	sess, ok := s.registry.Get(owner)
	if !ok {
		log.Printf("Get: %q by %q: %v", req.Filename, req.Username, ErrPeerUnavailable)
		return fail(req, "File owner is not active")
	}
	resp := success(req, "File owner resolved")
	resp.PeerAddress = sess.Address
	resp.PeerPort = sess.TCPPort
	return resp
}

func success(req wire.Request, message string) wire.Response {
	return wire.Response{ID: req.ID, Status: wire.StatusSuccess, Message: message}
}

func fail(req wire.Request, message string) wire.Response {
	return wire.Response{ID: req.ID, Status: wire.StatusFail, Message: message}
}
