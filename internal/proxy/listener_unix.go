// +build !windows

package proxy

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"krypt.co/authproxy"
)

// CreateListener binds a non-blocking, close-on-exec AF_UNIX listening
// socket at path, mode 0700, backlog 5 — a direct port of
// original_source/agent-beeper.c's create_listener.
func CreateListener(path string) (fd int, err error) {
	fd, err = unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return -1, fmt.Errorf("socket: %w", err)
	}

	if err = unix.Fchmod(fd, 0700); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("fchmod: %w", err)
	}

	// remove a stale socket left by an uncleanly-killed previous instance
	_ = os.Remove(path)

	if err = unix.Bind(fd, &unix.SockaddrUnix{Name: path}); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("bind: %w", err)
	}

	if err = unix.Listen(fd, 5); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("listen: %w", err)
	}

	return fd, nil
}

// ConnectAgent opens a non-blocking, close-on-exec AF_UNIX connection to
// the agent socket at path. established is true when the connect
// completed synchronously; false means EINPROGRESS, i.e. the connection
// is pending and the caller must subscribe for write-readiness instead.
func ConnectAgent(path string) (fd int, established bool, err error) {
	fd, err = unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return -1, false, fmt.Errorf("socket: %w", err)
	}

	err = unix.Connect(fd, &unix.SockaddrUnix{Name: path})
	if err == nil {
		return fd, true, nil
	}
	if err == unix.EINPROGRESS {
		return fd, false, nil
	}
	unix.Close(fd)
	return -1, false, fmt.Errorf("%w: connect: %v", authproxy.ErrUpstreamConnectFailed, err)
}

// AcceptPeer accepts one non-blocking, close-on-exec connection from the
// listener: exactly one peer per listener-readiness wakeup. A spurious
// wakeup is reported as a %w-wrapped authproxy.ErrAcceptTransient, which
// the caller tests with errors.Is and treats as a quiet return.
func AcceptPeer(listenFD int) (fd int, err error) {
	fd, _, err = unix.Accept4(listenFD, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
		return fd, fmt.Errorf("%w: %v", authproxy.ErrAcceptTransient, err)
	}
	return fd, err
}
