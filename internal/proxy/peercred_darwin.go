// +build darwin

package proxy

import (
	"golang.org/x/sys/unix"
)

// Darwin has no SO_PEERCRED; the uid comes from LOCAL_PEERCRED
// (getsockopt returning a struct xucred) and the pid from the
// Darwin-specific LOCAL_PEEREPID option, which golang.org/x/sys/unix
// does not name as a constant, so it is given literally here (matching
// the numeric value <sys/un.h> defines it to on Darwin).
const (
	solLocal      = 0
	localPeerCred = 0x001
	localPeerEPID = 0x003
)

func peerCredentials(fd int) (uid uint32, pid int32, err error) {
	xucred, err := unix.GetsockoptXucred(fd, solLocal, localPeerCred)
	if err != nil {
		return 0, 0, err
	}
	rawPID, err := unix.GetsockoptInt(fd, solLocal, localPeerEPID)
	if err != nil {
		return 0, 0, err
	}
	return xucred.Uid, int32(rawPID), nil
}
