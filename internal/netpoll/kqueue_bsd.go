// +build darwin freebsd dragonfly

package netpoll

import (
	"golang.org/x/sys/unix"
)

// kqueuePoller is the BSD/Darwin backend. kqueue has no MOD verb the way
// epoll does; ModifyRead is implemented as delete-then-add, which is
// what every kqueue-based Go event loop in the wider pack (and libevent
// itself) does for this transition.
type kqueuePoller struct {
	fd       int
	payloads map[int]Payload
}

func New() (Poller, error) {
	fd, err := unix.Kqueue()
	if err != nil {
		return nil, err
	}
	unix.CloseOnExec(fd)
	return &kqueuePoller{fd: fd, payloads: make(map[int]Payload)}, nil
}

func (p *kqueuePoller) register(fd int, filter int16, payload Payload) error {
	p.payloads[fd] = payload
	ev := unix.Kevent_t{
		Ident:  uint64(fd),
		Filter: filter,
		Flags:  unix.EV_ADD | unix.EV_ENABLE,
	}
	_, err := unix.Kevent(p.fd, []unix.Kevent_t{ev}, nil, nil)
	if err != nil {
		delete(p.payloads, fd)
	}
	return err
}

func (p *kqueuePoller) AddRead(fd int, payload Payload) error {
	return p.register(fd, unix.EVFILT_READ, payload)
}

func (p *kqueuePoller) AddWrite(fd int, payload Payload) error {
	return p.register(fd, unix.EVFILT_WRITE, payload)
}

func (p *kqueuePoller) ModifyRead(fd int, payload Payload) error {
	del := unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: unix.EV_DELETE}
	unix.Kevent(p.fd, []unix.Kevent_t{del}, nil, nil) // best effort; fd may not have been registered for write
	return p.register(fd, unix.EVFILT_READ, payload)
}

func (p *kqueuePoller) Remove(fd int) error {
	delete(p.payloads, fd)
	for _, filter := range [...]int16{unix.EVFILT_READ, unix.EVFILT_WRITE} {
		ev := unix.Kevent_t{Ident: uint64(fd), Filter: filter, Flags: unix.EV_DELETE}
		unix.Kevent(p.fd, []unix.Kevent_t{ev}, nil, nil)
	}
	return nil
}

func (p *kqueuePoller) Wait(events []Event) ([]Event, error) {
	raw := make([]unix.Kevent_t, 64)
	for {
		n, err := unix.Kevent(p.fd, nil, raw, nil)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return events, err
		}
		for i := 0; i < n; i++ {
			fd := int(raw[i].Ident)
			payload, ok := p.payloads[fd]
			if !ok {
				continue
			}
			events = append(events, Event{
				Payload:  payload,
				Readable: raw[i].Filter == unix.EVFILT_READ,
				Writable: raw[i].Filter == unix.EVFILT_WRITE,
				Err:      raw[i].Flags&unix.EV_EOF != 0 || raw[i].Flags&unix.EV_ERROR != 0,
			})
		}
		return events, nil
	}
}

func (p *kqueuePoller) Close() error {
	return unix.Close(p.fd)
}
