// +build !windows

package proxy

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/op/go-logging"
)

func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	return logging.MustGetLogger("proxy_test")
}

// stubAgent is a trivial echo server standing in for the real agent,
// reachable over the same AF_UNIX transport the supervisor dials.
func stubAgent(t *testing.T, path string) (stop func()) {
	t.Helper()
	l, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("stub agent listen: %v", err)
	}
	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				buf := make([]byte, 4096)
				for {
					n, err := conn.Read(buf)
					if n > 0 {
						conn.Write(buf[:n])
					}
					if err != nil {
						return
					}
				}
			}()
		}
	}()
	return func() { l.Close() }
}

func waitUntil(t *testing.T, timeout time.Duration, ok func() bool) {
	t.Helper()
	deadline := time.After(timeout)
	tick := time.NewTicker(time.Millisecond)
	defer tick.Stop()
	for {
		if ok() {
			return
		}
		select {
		case <-tick.C:
		case <-deadline:
			t.Fatal("condition not met before timeout")
		}
	}
}

func TestSupervisorEstablishesAndSplicesConnection(t *testing.T) {
	dir := t.TempDir()
	listenPath := filepath.Join(dir, "listen.sock")
	agentPath := filepath.Join(dir, "agent.sock")

	stop := stubAgent(t, agentPath)
	defer stop()

	sup, err := NewSupervisor(Config{
		ListenPath:      listenPath,
		AgentPath:       agentPath,
		NotifierProgram: "/bin/true",
		MaxConnections:  2,
		Log:             testLogger(t),
	})
	if err != nil {
		t.Fatalf("NewSupervisor: %v", err)
	}
	defer sup.Close()

	go sup.Run()

	waitUntil(t, time.Second, func() bool {
		_, err := os.Stat(listenPath)
		return err == nil
	})

	conn, err := net.Dial("unix", listenPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	want := []byte("hello agent")
	if _, err := conn.Write(want); err != nil {
		t.Fatalf("write: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(time.Second))
	got := make([]byte, len(want))
	n, err := conn.Read(got)
	if err != nil {
		t.Fatalf("read echo: %v", err)
	}
	if string(got[:n]) != string(want) {
		t.Fatalf("got %q, want %q", got[:n], want)
	}
}

func TestSupervisorRefusesBeyondCapacity(t *testing.T) {
	dir := t.TempDir()
	listenPath := filepath.Join(dir, "listen.sock")
	agentPath := filepath.Join(dir, "agent.sock")

	stop := stubAgent(t, agentPath)
	defer stop()

	sup, err := NewSupervisor(Config{
		ListenPath:      listenPath,
		AgentPath:       agentPath,
		NotifierProgram: "/bin/true",
		MaxConnections:  1,
		Log:             testLogger(t),
	})
	if err != nil {
		t.Fatalf("NewSupervisor: %v", err)
	}
	defer sup.Close()

	go sup.Run()

	waitUntil(t, time.Second, func() bool {
		_, err := os.Stat(listenPath)
		return err == nil
	})

	first, err := net.Dial("unix", listenPath)
	if err != nil {
		t.Fatalf("dial first: %v", err)
	}
	defer first.Close()

	waitUntil(t, time.Second, func() bool { return sup.pool.InUse() == 1 })

	second, err := net.Dial("unix", listenPath)
	if err != nil {
		t.Fatalf("dial second: %v", err)
	}
	defer second.Close()

	second.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 1)
	_, err = second.Read(buf)
	if err == nil {
		t.Fatal("expected the pool-exhausted connection to be closed, got a successful read")
	}
}
