// +build windows

package proxy

import (
	"io"
	"net"
	"os"
	"os/exec"

	"github.com/op/go-logging"

	"krypt.co/authproxy"
)

// WindowsConfig bundles a Windows supervisor's inputs. There is no
// MaxConnections pool on this build: each accepted pipe
// connection gets its own pair of goroutines for the lifetime of the
// session, the same shape as kr's ServeKRAgent accept loop.
type WindowsConfig struct {
	ListenPath      string
	AgentPath       string
	NotifierProgram string
	NotifierArgs    []string
	Log             *logging.Logger
}

// WindowsSupervisor is the named-pipe fallback supervisor: a blocking
// accept loop with one goroutine pair splicing each connection, in place
// of the Unix build's single-threaded readiness loop.
type WindowsSupervisor struct {
	cfg      WindowsConfig
	listener net.Listener
}

// NewWindowsSupervisor opens the named pipe listener but does not yet
// accept connections.
func NewWindowsSupervisor(cfg WindowsConfig) (*WindowsSupervisor, error) {
	l, err := CreateListenerPipe(cfg.ListenPath)
	if err != nil {
		return nil, err
	}
	return &WindowsSupervisor{cfg: cfg, listener: l}, nil
}

// Close stops accepting new connections.
func (s *WindowsSupervisor) Close() error {
	return s.listener.Close()
}

// Run accepts connections and serves each on its own goroutine. The
// first Accept error of any kind (including the listener being closed)
// ends the loop and is returned; no accept error is logged and retried.
func (s *WindowsSupervisor) Run() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return err
		}
		go authproxy.RecoverToLog(func() { s.serve(conn) }, s.cfg.Log)
	}
}

func (s *WindowsSupervisor) serve(peer net.Conn) {
	defer peer.Close()

	connID, err := authproxy.ConnID()
	if err != nil {
		s.cfg.Log.Error("connection id: ", err)
		return
	}

	agentConn, err := DialAgentPipe(s.cfg.AgentPath)
	if err != nil {
		s.cfg.Log.Warning("connect to agent failed: ", err)
		return
	}
	defer agentConn.Close()

	if _, err := spawnNotifierWindows(s.cfg.NotifierProgram, s.cfg.NotifierArgs, connID); err != nil {
		s.cfg.Log.Error("notifier spawn failed: ", err)
		return
	}
	s.cfg.Log.Notice("accepted connection ", connID)

	done := make(chan struct{}, 2)
	go splice(agentConn, peer, done)
	go splice(peer, agentConn, done)
	<-done
	<-done
}

func splice(dst io.Writer, src io.Reader, done chan<- struct{}) {
	io.Copy(dst, src)
	done <- struct{}{}
}

// spawnNotifierWindows starts the notifier with SSH_CONN_ID exported.
// There is no peer-pid credential equivalent on a named pipe the way
// SO_PEERCRED provides one on AF_UNIX, so SSH_CONN_PID is not set on
// this build.
func spawnNotifierWindows(program string, args []string, connID string) (pid int, err error) {
	cmd := exec.Command(program, args...)
	cmd.Env = append(os.Environ(), "SSH_CONN_ID="+connID)
	if err := cmd.Start(); err != nil {
		return 0, err
	}
	return cmd.Process.Pid, nil
}
