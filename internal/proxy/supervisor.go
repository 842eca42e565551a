// +build !windows

package proxy

import (
	"errors"
	"fmt"
	"os/user"
	"strconv"
	"time"

	grouplru "github.com/golang/groupcache/lru"
	lru "github.com/hashicorp/golang-lru"
	"github.com/op/go-logging"
	"golang.org/x/sys/unix"

	"krypt.co/authproxy"
	"krypt.co/authproxy/internal/netpoll"
	"krypt.co/authproxy/internal/pool"
)

// listenerSentinel is the netpoll.Payload registered for the listening
// descriptor, distinguishable from any *Endpoint by its dynamic type
// alone.
type listenerSentinel struct{}

var theListenerSentinel = &listenerSentinel{}

// notifierRecord is one entry of the notifier-outcome cache.
type notifierRecord struct {
	PID       int
	PeerPID   int32
	ConnID    string
	SpawnedAt time.Time
}

// Supervisor owns the listening descriptor, the readiness multiplexer,
// and the pool, and drives every Connection's state machine.
// Not safe for concurrent use: apart from DumpNotifiers, only Run's
// goroutine ever touches it.
type Supervisor struct {
	poller netpoll.Poller

	listenFD        int
	agentPath       string
	notifierProgram string
	notifierArgs    []string

	pool  *pool.Pool
	conns []*Connection

	ownUID uint32
	log    *logging.Logger

	usernames *grouplru.Cache // uid -> username, single-threaded only
	notifiers *lru.Cache      // recent notifier spawns, thread-safe

	buf []byte // scratch pump buffer, reused across calls (single-threaded)
}

// Config bundles the supervisor's external inputs.
type Config struct {
	ListenPath      string
	AgentPath       string
	NotifierProgram string
	NotifierArgs    []string
	MaxConnections  int
	Log             *logging.Logger
}

// NewSupervisor builds and binds the listener, but does not yet run the
// event loop.
func NewSupervisor(cfg Config) (*Supervisor, error) {
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = 64 // suggested default
	}

	poller, err := netpoll.New()
	if err != nil {
		return nil, fmt.Errorf("%w: multiplexer create: %v", authproxy.ErrStartup, err)
	}

	listenFD, err := CreateListener(cfg.ListenPath)
	if err != nil {
		poller.Close()
		return nil, fmt.Errorf("%w: listener: %v", authproxy.ErrStartup, err)
	}

	if err := poller.AddRead(listenFD, theListenerSentinel); err != nil {
		unixClose(listenFD)
		poller.Close()
		return nil, fmt.Errorf("%w: register listener: %v", authproxy.ErrStartup, err)
	}

	usernames := grouplru.New(128)
	notifiers, err := lru.New(128)
	if err != nil {
		unixClose(listenFD)
		poller.Close()
		return nil, fmt.Errorf("%w: notifier cache: %v", authproxy.ErrStartup, err)
	}

	s := &Supervisor{
		poller:          poller,
		listenFD:        listenFD,
		agentPath:       cfg.AgentPath,
		notifierProgram: cfg.NotifierProgram,
		notifierArgs:    cfg.NotifierArgs,
		pool:            pool.New(cfg.MaxConnections),
		conns:           make([]*Connection, cfg.MaxConnections),
		ownUID:          unix.Getuid(),
		log:             cfg.Log,
		usernames:       usernames,
		notifiers:       notifiers,
		buf:             make([]byte, 8192),
	}
	return s, nil
}

// Close releases the listener and multiplexer. Live connections are not
// individually torn down; Close is for startup-failure unwinding and
// process shutdown, not a per-connection operation.
func (s *Supervisor) Close() {
	unixClose(s.listenFD)
	s.poller.Close()
}

// Run blocks, driving the event loop until the multiplexer reports a
// non-transient failure.
func (s *Supervisor) Run() error {
	var events []netpoll.Event
	for {
		var err error
		events, err = s.poller.Wait(events[:0])
		if err != nil {
			return fmt.Errorf("multiplexer wait: %w", err)
		}
		for _, ev := range events {
			if _, isListener := ev.Payload.(*listenerSentinel); isListener {
				s.handleListener()
				continue
			}
			ep, ok := ev.Payload.(*Endpoint)
			if !ok {
				continue
			}
			s.handleEndpoint(ep, ev)
		}
	}
}

// wrapAdmissionError reports a peer-credential lookup failure as a
// %w-wrapped authproxy.ErrAdmissionRefusal.
func wrapAdmissionError(cause error) error {
	return fmt.Errorf("%w: credential lookup: %v", authproxy.ErrAdmissionRefusal, cause)
}

// admissionRefusedError reports a denied peer (uid mismatch) as a
// %w-wrapped authproxy.ErrAdmissionRefusal.
func admissionRefusedError(uid uint32, resolvedName string) error {
	return fmt.Errorf("%w: uid %d (%s)", authproxy.ErrAdmissionRefusal, uid, resolvedName)
}

// poolExhaustedError reports a full connection arena as a %w-wrapped
// authproxy.ErrPoolExhausted.
func poolExhaustedError() error {
	return fmt.Errorf("%w", authproxy.ErrPoolExhausted)
}

// handleListener accepts and admits one peer connection.
func (s *Supervisor) handleListener() {
	fd, err := AcceptPeer(s.listenFD)
	if err != nil {
		if errors.Is(err, authproxy.ErrAcceptTransient) {
			return // spurious wakeup
		}
		s.log.Warning("accept: ", err)
		return
	}

	// Credential check before pool acquisition:
	// a denied peer never consumes a pool slot.
	uid, pid, err := peerCredentials(fd)
	if err != nil {
		s.log.Error(wrapAdmissionError(err))
		unixClose(fd)
		return
	}
	if uid != s.ownUID {
		err := admissionRefusedError(uid, s.resolveUsername(uid))
		s.log.Warning(authproxy.Yellow(fmt.Sprintf("denied: %v", err)))
		unixClose(fd)
		return
	}

	idx, ok := s.pool.Acquire()
	if !ok {
		s.log.Warning(authproxy.Yellow(poolExhaustedError().Error()))
		unixClose(fd)
		return
	}

	conn := &Connection{}
	conn.init(idx)
	conn.Peer.FD = fd
	conn.PeerPID = pid
	if id, err := authproxy.ConnID(); err == nil {
		conn.ID = id
	}
	s.conns[idx] = conn

	agentFD, established, err := ConnectAgent(s.agentPath)
	if err != nil {
		s.log.Error(fmt.Sprintf("[%s] connect to agent failed: %v", conn.ID, err))
		unixClose(fd)
		s.pool.Release(idx)
		s.conns[idx] = nil
		return
	}
	conn.Agent.FD = agentFD

	if established {
		conn.Phase = PhaseEstablished
		if err := s.poller.AddRead(agentFD, &conn.Agent); err != nil {
			s.log.Error("register agent endpoint: ", err)
			s.teardown(conn)
			return
		}
		if err := s.poller.AddRead(fd, &conn.Peer); err != nil {
			s.log.Error("register peer endpoint: ", err)
			s.teardown(conn)
			return
		}
	} else {
		conn.Phase = PhaseAgentConnecting
		if err := s.poller.AddWrite(agentFD, &conn.Agent); err != nil {
			s.log.Error("register agent endpoint: ", err)
			s.teardown(conn)
			return
		}
		// peer intentionally left unsubscribed until the connect resolves
	}

	notifierPID, err := SpawnNotifier(s.notifierProgram, s.notifierArgs, conn.PeerPID, conn.ID)
	if err != nil {
		s.log.Error(fmt.Sprintf("[%s] notifier spawn failed: %v", conn.ID, err))
		s.teardown(conn)
		return
	}
	s.recordNotifierSpawn(conn, notifierPID)
	s.log.Notice(authproxy.Cyan(fmt.Sprintf("[%s] accepted peer pid=%d, notifier pid=%d", conn.ID, conn.PeerPID, notifierPID)))
}

// handleEndpoint dispatches one readiness event for an established or
// still-connecting endpoint.
func (s *Supervisor) handleEndpoint(ep *Endpoint, ev netpoll.Event) {
	conn := ep.Conn()
	if s.conns[conn.poolIdx] != conn {
		return // torn down by an earlier event of the same batch
	}

	if ep.Kind == KindAgent && conn.Phase == PhaseAgentConnecting {
		if err := s.finishAgentConnect(conn); err != nil {
			s.log.Warning(fmt.Sprintf("[%s] agent connect failed: %v", conn.ID, err))
			s.teardown(conn)
		}
		return
	}

	dst := ep.Partner()
	result, err := pump(ep.FD, dst.FD, s.buf)
	switch result {
	case pumpContinue:
	case pumpEOF:
		s.log.Info(fmt.Sprintf("[%s] %v", conn.ID, err))
		s.teardown(conn)
	case pumpFatal:
		s.log.Warning(fmt.Sprintf("[%s] %v", conn.ID, err))
		s.teardown(conn)
	}
}

// finishAgentConnect implements the AgentConnecting -> Established
// transition.
func (s *Supervisor) finishAgentConnect(conn *Connection) error {
	errno, err := unix.GetsockoptInt(conn.Agent.FD, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return fmt.Errorf("%w: %v", authproxy.ErrUpstreamConnectFailed, err)
	}
	if errno != 0 {
		return fmt.Errorf("%w: %v", authproxy.ErrUpstreamConnectFailed, unix.Errno(errno))
	}

	conn.Phase = PhaseEstablished
	if err := s.poller.ModifyRead(conn.Agent.FD, &conn.Agent); err != nil {
		return err
	}
	if err := s.poller.AddRead(conn.Peer.FD, &conn.Peer); err != nil {
		return err
	}
	return nil
}

// teardown closes both descriptors (which withdraws their multiplexer
// registrations implicitly), then releases the pool slot. Called at
// most once per Connection lifecycle.
func (s *Supervisor) teardown(conn *Connection) {
	s.poller.Remove(conn.Agent.FD)
	s.poller.Remove(conn.Peer.FD)
	unixClose(conn.Agent.FD)
	unixClose(conn.Peer.FD)
	s.conns[conn.poolIdx] = nil
	s.pool.Release(conn.poolIdx)
}

func (s *Supervisor) recordNotifierSpawn(conn *Connection, notifierPID int) {
	s.notifiers.Add(notifierPID, notifierRecord{
		PID:       notifierPID,
		PeerPID:   conn.PeerPID,
		ConnID:    conn.ID,
		SpawnedAt: time.Now(),
	})
}

// DumpNotifiers logs the recent notifier-spawn cache.
// golang-lru is safe for concurrent use, so this may be called from the
// signal-triggered goroutine in cmd/proxyd while Run's goroutine keeps
// writing to the same cache.
func (s *Supervisor) DumpNotifiers() {
	s.log.Notice(authproxy.Magenta(fmt.Sprintf("notifier cache dump, %d entries", s.notifiers.Len())))
	for _, key := range s.notifiers.Keys() {
		v, ok := s.notifiers.Peek(key)
		if !ok {
			continue
		}
		rec := v.(notifierRecord)
		s.log.Notice(fmt.Sprintf("notifier pid=%d peer_pid=%d conn=%s spawned_at=%s",
			rec.PID, rec.PeerPID, rec.ConnID, rec.SpawnedAt.Format(time.RFC3339)))
	}
}

// resolveUsername resolves uid to a username for a denial log line,
// caching the result. Only ever called from Run's
// goroutine, so the non-thread-safe groupcache/lru cache is safe.
func (s *Supervisor) resolveUsername(uid uint32) string {
	if name, ok := s.usernames.Get(uid); ok {
		return name.(string)
	}
	name := "unknown"
	if u, err := user.LookupId(strconv.FormatUint(uint64(uid), 10)); err == nil {
		name = u.Username
	}
	s.usernames.Add(uid, name)
	return name
}

func unixClose(fd int) {
	if fd >= 0 {
		unix.Close(fd)
	}
}
