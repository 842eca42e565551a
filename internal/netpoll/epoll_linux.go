// +build linux

package netpoll

import (
	"golang.org/x/sys/unix"
)

// epollPoller is the Linux backend, a thin wrapper over epoll_create1/
// epoll_ctl/epoll_wait matching original_source/agent-beeper.c's use of
// the same three calls.
type epollPoller struct {
	fd       int
	payloads map[int32]Payload
}

// New creates the platform readiness multiplexer.
func New() (Poller, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &epollPoller{fd: fd, payloads: make(map[int32]Payload)}, nil
}

func (p *epollPoller) add(fd int, events uint32, payload Payload) error {
	p.payloads[int32(fd)] = payload
	ev := unix.EpollEvent{Events: events, Fd: int32(fd)}
	if err := unix.EpollCtl(p.fd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		delete(p.payloads, int32(fd))
		return err
	}
	return nil
}

func (p *epollPoller) AddRead(fd int, payload Payload) error {
	return p.add(fd, unix.EPOLLIN, payload)
}

func (p *epollPoller) AddWrite(fd int, payload Payload) error {
	return p.add(fd, unix.EPOLLOUT, payload)
}

func (p *epollPoller) ModifyRead(fd int, payload Payload) error {
	p.payloads[int32(fd)] = payload
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}
	return unix.EpollCtl(p.fd, unix.EPOLL_CTL_MOD, fd, &ev)
}

func (p *epollPoller) Remove(fd int) error {
	delete(p.payloads, int32(fd))
	err := unix.EpollCtl(p.fd, unix.EPOLL_CTL_DEL, fd, nil)
	if err == unix.ENOENT || err == unix.EBADF {
		return nil
	}
	return err
}

func (p *epollPoller) Wait(events []Event) ([]Event, error) {
	raw := make([]unix.EpollEvent, 64)
	for {
		n, err := unix.EpollWait(p.fd, raw, -1)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return events, err
		}
		for i := 0; i < n; i++ {
			payload, ok := p.payloads[raw[i].Fd]
			if !ok {
				continue // withdrawn between wakeup and dispatch
			}
			events = append(events, Event{
				Payload:  payload,
				Readable: raw[i].Events&unix.EPOLLIN != 0,
				Writable: raw[i].Events&unix.EPOLLOUT != 0,
				Err:      raw[i].Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0,
			})
		}
		return events, nil
	}
}

func (p *epollPoller) Close() error {
	return unix.Close(p.fd)
}
