package tracker

import (
	"sort"
	"time"
)

// Session is the tracker-side record of one logged-in peer.
type Session struct {
	Username string
	Address  string // IP observed on the login datagram
	TCPPort  int    // transfer port the peer advertised
	LastSeen time.Time
}

// Registry maps usernames to live sessions. It is pure data plus the
// decay policy; callers serialize access.
type Registry struct {
	sessions map[string]*Session
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Add records a new session. It returns ErrAlreadyLoggedIn if the
// username already has one; the existing session is refreshed, not
// replaced, so a duplicate login still counts as a liveness signal.
func (r *Registry) Add(username, address string, tcpPort int, now time.Time) error {
	if s, ok := r.sessions[username]; ok {
		s.LastSeen = now
		return ErrAlreadyLoggedIn
	}
	r.sessions[username] = &Session{
		Username: username,
		Address:  address,
		TCPPort:  tcpPort,
		LastSeen: now,
	}
	return nil
}

// Get returns the session for username, if any.
func (r *Registry) Get(username string) (*Session, bool) {
	s, ok := r.sessions[username]
	return s, ok
}

// Touch refreshes a session's last-seen time. It reports whether the
// username had a session; touching an unknown user is a no-op.
func (r *Registry) Touch(username string, now time.Time) bool {
	s, ok := r.sessions[username]
	if !ok {
		return false
	}
	s.LastSeen = now
	return true
}

// Sweep evicts every session unseen for longer than timeout and returns
// the evicted usernames.
func (r *Registry) Sweep(now time.Time, timeout time.Duration) []string {
	var evicted []string
	for username, s := range r.sessions {
		if now.Sub(s.LastSeen) > timeout {
			delete(r.sessions, username)
			evicted = append(evicted, username)
		}
	}
	return evicted
}

// ListOthers returns the usernames of every session except excluding,
// sorted for stable output.
func (r *Registry) ListOthers(excluding string) []string {
	others := make([]string, 0, len(r.sessions))
	for username := range r.sessions {
		if username != excluding {
			others = append(others, username)
		}
	}
	sort.Strings(others)
	return others
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	return len(r.sessions)
}
