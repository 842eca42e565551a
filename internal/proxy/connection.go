// Package proxy implements the per-connection data model and the
// event-driven supervisor that drives it, generalizing
// original_source/agent-beeper.c's connection/epoll design into a
// payload-agnostic local agent proxy.
package proxy

// Kind identifies which side of a spliced connection an Endpoint is.
type Kind int

const (
	KindPeer Kind = iota
	KindAgent
)

func (k Kind) String() string {
	if k == KindPeer {
		return "peer"
	}
	return "agent"
}

// Phase is a Connection's state.
type Phase int

const (
	// PhaseAgentConnecting: the agent endpoint is subscribed for
	// write-readiness only; the peer endpoint is not yet subscribed.
	PhaseAgentConnecting Phase = iota
	// PhaseEstablished: both endpoints are subscribed for read-readiness
	// only.
	PhaseEstablished
)

// Endpoint is one side of a Connection's byte-stream pair together with
// its readiness subscription. FD is a raw, non-blocking, close-on-exec
// descriptor; the multiplexer registration itself lives in the
// netpoll.Poller, not here — Endpoint only needs to carry enough for the
// supervisor to recover its owning Connection and partner: the
// multiplexer's per-event payload resolves to exactly one Endpoint, from
// which the owning Connection and the partner Endpoint are derivable.
type Endpoint struct {
	Kind Kind
	FD   int
	conn *Connection
}

// Partner returns the other Endpoint of the same Connection.
func (e *Endpoint) Partner() *Endpoint {
	if e.Kind == KindPeer {
		return &e.conn.Agent
	}
	return &e.conn.Peer
}

// Conn returns the owning Connection.
func (e *Endpoint) Conn() *Connection { return e.conn }

// Connection is the per-session state machine: two Endpoints, a phase,
// and the peer's credentials.
type Connection struct {
	Peer  Endpoint
	Agent Endpoint
	Phase Phase

	// PeerPID is the peer-credential pid reported at accept time. Set
	// once, before the notifier is spawned, and never mutated afterward.
	PeerPID int32

	// ID is a short per-connection correlation id for log lines; purely
	// a logging aid, not part of the wire protocol.
	ID string

	poolIdx int
}

// init wires both Endpoints' back-reference to conn and assigns their
// Kind. Must be called once, immediately after a Connection is pulled
// from the pool and before either Endpoint is registered with a poller.
func (c *Connection) init(poolIdx int) {
	c.poolIdx = poolIdx
	c.Peer.Kind = KindPeer
	c.Peer.conn = c
	c.Agent.Kind = KindAgent
	c.Agent.conn = c
}
