package wire

import "time"

const (
	// ServiceName is the mDNS service name for tracker discovery.
	ServiceName = "_bittrickle._udp"
	// ServiceDomain is the mDNS service domain.
	ServiceDomain = "local."

	// MaxDatagramSize bounds a single discovery request or reply.
	MaxDatagramSize = 4096

	// DefaultSessionTimeout is how long a session may go unseen before the
	// tracker evicts it. One missed heartbeat survives, two do not.
	DefaultSessionTimeout = 3 * time.Second
	// DefaultHeartbeatInterval is how often a peer reports liveness.
	DefaultHeartbeatInterval = 2 * time.Second
)

// Kind identifies a discovery-protocol request.
type Kind string

const (
	KindLogin     Kind = "login"
	KindHeartbeat Kind = "heartbeat"
	KindListFiles Kind = "lpf"
	KindListPeers Kind = "lap"
	KindPublish   Kind = "pub"
	KindUnpublish Kind = "unp"
	KindSearch    Kind = "sch"
	KindGet       Kind = "get"
)

// Status is the outcome field of a reply.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFail    Status = "fail"
)

// Request is one discovery-protocol datagram from a peer to the tracker.
// ID is echoed back in the reply so a late datagram from a previous
// attempt can be told apart from the one being waited on.
type Request struct {
	ID        string `json:"id"`
	Type      Kind   `json:"type"`
	Username  string `json:"username,omitempty"`
	Password  string `json:"password,omitempty"`
	TCPPort   int    `json:"tcp_port,omitempty"`
	Filename  string `json:"filename,omitempty"`
	Substring string `json:"substring,omitempty"`
}

// Response is the tracker's single reply datagram for a Request.
type Response struct {
	ID          string   `json:"id"`
	Status      Status   `json:"status"`
	Message     string   `json:"message,omitempty"`
	Files       []string `json:"files,omitempty"`
	Users       []string `json:"users,omitempty"`
	PeerAddress string   `json:"peer_address,omitempty"`
	PeerPort    int      `json:"peer_port,omitempty"`
}

// OK reports whether the reply carries a success status.
func (r Response) OK() bool {
	return r.Status == StatusSuccess
}
