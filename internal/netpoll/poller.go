// Package netpoll wraps the OS readiness multiplexer (epoll on Linux,
// kqueue on darwin/freebsd/dragonfly) behind one small interface, so
// internal/proxy's supervisor can drive its event loop without depending
// on the backend. This mirrors the epoll_create1/epoll_ctl/epoll_wait
// calls in original_source/agent-beeper.c one-for-one on Linux, and
// generalizes to kqueue the way the wider pack's event-loop code
// (e.g. an epoll/kqueue-backed proxy event loop built on
// golang.org/x/sys/unix) does for the BSDs.
package netpoll

// Payload is attached to a registration and returned verbatim in the
// matching Event; the supervisor uses it to recover the owning
// Connection/Endpoint (or a listener sentinel) without a second lookup,
// matching the original's epoll_event.data.ptr idiom.
type Payload interface{}

// Event is one readiness notification.
type Event struct {
	Payload  Payload
	Readable bool
	Writable bool
	// Err reports EPOLLERR/EPOLLHUP (Linux) or EV_EOF/EV_ERROR (kqueue):
	// the descriptor needs tearing down regardless of Readable/Writable.
	Err bool
}

// Poller is the minimal readiness-multiplexer contract the supervisor
// needs: register a descriptor for read or write readiness, flip an
// existing registration between the two (the AgentConnecting ->
// Established transition), remove it, and block for the next batch of
// events with no timeout.
type Poller interface {
	// AddRead registers fd for read-readiness only.
	AddRead(fd int, payload Payload) error
	// AddWrite registers fd for write-readiness only.
	AddWrite(fd int, payload Payload) error
	// ModifyRead switches an existing registration to read-readiness only.
	ModifyRead(fd int, payload Payload) error
	// Remove withdraws fd's registration. Safe to call on an fd that is
	// about to be closed; closing a descriptor also drops epoll/kqueue
	// interest implicitly, so Remove is best-effort cleanup, not load-bearing.
	Remove(fd int) error
	// Wait blocks until at least one event is ready (no timeout) and
	// appends ready events to the provided slice, returning the updated
	// slice. A wakeup interrupted by a signal is retried transparently.
	Wait(events []Event) ([]Event, error)
	// Close releases the underlying kernel object.
	Close() error
}
