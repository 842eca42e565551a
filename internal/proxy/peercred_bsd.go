// +build freebsd dragonfly

package proxy

import (
	"golang.org/x/sys/unix"
)

// FreeBSD and DragonFly share Darwin's LOCAL_PEERCRED/xucred mechanism
// for the uid, but neither defines Darwin's LOCAL_PEEREPID option, so
// there is no portable way to recover the peer pid through the socket
// itself here. Admission only ever checks uid; pid is carried for
// notifier/logging purposes only, so it is reported as 0 on these two
// platforms rather than guessed from a sysctl walk.
const (
	solLocalBSD      = 0
	localPeerCredBSD = 0x001
)

func peerCredentials(fd int) (uid uint32, pid int32, err error) {
	xucred, err := unix.GetsockoptXucred(fd, solLocalBSD, localPeerCredBSD)
	if err != nil {
		return 0, 0, err
	}
	return xucred.Uid, 0, nil
}
