// +build linux

package proxy

import (
	"golang.org/x/sys/unix"
)

// peerCredentials reports the uid/pid of the process on the other end
// of a connected AF_UNIX socket, via SO_PEERCRED — the same mechanism
// original_source/agent-beeper.c uses (getsockopt(..., SO_PEERCRED, ...)).
func peerCredentials(fd int) (uid uint32, pid int32, err error) {
	ucred, err := unix.GetsockoptUcred(fd, unix.SOL_SOCKET, unix.SO_PEERCRED)
	if err != nil {
		return 0, 0, err
	}
	return ucred.Uid, ucred.Pid, nil
}
