// +build !windows

package proxy

import (
	"errors"
	"path/filepath"
	"testing"

	"golang.org/x/sys/unix"

	"krypt.co/authproxy"
)

func TestWrapAdmissionErrorWrapsSentinel(t *testing.T) {
	err := wrapAdmissionError(errors.New("boom"))
	if !errors.Is(err, authproxy.ErrAdmissionRefusal) {
		t.Fatalf("wrapAdmissionError() = %v, want wrapped ErrAdmissionRefusal", err)
	}
}

func TestAdmissionRefusedErrorWrapsSentinel(t *testing.T) {
	err := admissionRefusedError(501, "nobody")
	if !errors.Is(err, authproxy.ErrAdmissionRefusal) {
		t.Fatalf("admissionRefusedError() = %v, want wrapped ErrAdmissionRefusal", err)
	}
}

func TestPoolExhaustedErrorWrapsSentinel(t *testing.T) {
	if err := poolExhaustedError(); !errors.Is(err, authproxy.ErrPoolExhausted) {
		t.Fatalf("poolExhaustedError() = %v, want wrapped ErrPoolExhausted", err)
	}
}

func TestAcceptPeerReportsTransientSentinelOnEmptyListener(t *testing.T) {
	dir := t.TempDir()
	fd, err := CreateListener(filepath.Join(dir, "listen.sock"))
	if err != nil {
		t.Fatalf("CreateListener: %v", err)
	}
	defer unix.Close(fd)

	_, err = AcceptPeer(fd)
	if !errors.Is(err, authproxy.ErrAcceptTransient) {
		t.Fatalf("AcceptPeer() on an idle listener = %v, want wrapped ErrAcceptTransient", err)
	}
}

func TestConnectAgentReportsUpstreamSentinelOnMissingAgent(t *testing.T) {
	dir := t.TempDir()
	_, _, err := ConnectAgent(filepath.Join(dir, "no-such-agent.sock"))
	if !errors.Is(err, authproxy.ErrUpstreamConnectFailed) {
		t.Fatalf("ConnectAgent() against a missing socket = %v, want wrapped ErrUpstreamConnectFailed", err)
	}
}

func TestSpawnNotifierReportsSpawnSentinelOnMissingProgram(t *testing.T) {
	_, err := SpawnNotifier(filepath.Join(t.TempDir(), "no-such-program"), nil, 0, "conn-id")
	if !errors.Is(err, authproxy.ErrSpawnFailure) {
		t.Fatalf("SpawnNotifier() with a missing program = %v, want wrapped ErrSpawnFailure", err)
	}
}

func TestNewSupervisorReportsStartupSentinelOnBadListenPath(t *testing.T) {
	_, err := NewSupervisor(Config{
		ListenPath: filepath.Join(t.TempDir(), "missing-dir", "listen.sock"),
		AgentPath:  filepath.Join(t.TempDir(), "agent.sock"),
		Log:        testLogger(t),
	})
	if !errors.Is(err, authproxy.ErrStartup) {
		t.Fatalf("NewSupervisor() with an unreachable listen directory = %v, want wrapped ErrStartup", err)
	}
}
