// +build linux darwin freebsd dragonfly

package netpoll

import (
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

func TestPollerReportsReadReadiness(t *testing.T) {
	p, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK, 0)
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	payload := "marker"
	if err := p.AddRead(fds[0], payload); err != nil {
		t.Fatalf("AddRead: %v", err)
	}

	if _, err := unix.Write(fds[1], []byte("x")); err != nil {
		t.Fatalf("write: %v", err)
	}

	results := make(chan []Event, 1)
	errs := make(chan error, 1)
	go func() {
		events, err := p.Wait(nil)
		if err != nil {
			errs <- err
			return
		}
		results <- events
	}()

	select {
	case events := <-results:
		if len(events) != 1 {
			t.Fatalf("got %d events, want 1", len(events))
		}
		if events[0].Payload != payload {
			t.Fatalf("payload = %v, want %v", events[0].Payload, payload)
		}
		if !events[0].Readable {
			t.Fatal("expected Readable=true")
		}
	case err := <-errs:
		t.Fatalf("Wait: %v", err)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for readiness event")
	}
}

func TestPollerRemoveWithdrawsRegistration(t *testing.T) {
	p, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK, 0)
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}
	defer unix.Close(fds[1])

	if err := p.AddRead(fds[0], "marker"); err != nil {
		t.Fatalf("AddRead: %v", err)
	}
	if err := p.Remove(fds[0]); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	// A withdrawn descriptor can be registered afresh; epoll rejects an
	// ADD for a descriptor that is still registered (EEXIST).
	if err := p.AddRead(fds[0], "marker"); err != nil {
		t.Fatalf("AddRead after Remove: %v", err)
	}
	unix.Close(fds[0])
}
