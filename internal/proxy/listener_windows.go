// +build windows

package proxy

import (
	"net"

	"github.com/Microsoft/go-winio"
)

// CreateListenerPipe opens a named pipe listener, the Windows analogue
// of CreateListener's AF_UNIX socket, matching the
// pattern in kr's socket_windows.go (winio.ListenPipe).
func CreateListenerPipe(path string) (net.Listener, error) {
	return winio.ListenPipe(path, nil)
}

// DialAgentPipe connects to the upstream agent's named pipe. Named pipe
// connects are synchronous from the caller's perspective, so there is no
// EINPROGRESS-equivalent phase to report; supervisor_windows.go never
// enters PhaseAgentConnecting.
func DialAgentPipe(path string) (net.Conn, error) {
	return winio.DialPipe(path, nil)
}
