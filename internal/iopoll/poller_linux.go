//go:build linux

package iopoll

import "golang.org/x/sys/unix"

type epollPoller struct {
	epfd int
}

func newPlatformPoller() (platformPoller, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &epollPoller{epfd: fd}, nil
}

func newWakeFD() (readFD, writeFD int, err error) {
	fd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		return 0, 0, err
	}
	return fd, fd, nil
}

func drainWakeFD(fd int) {
	var buf [8]byte
	for {
		if _, err := unix.Read(fd, buf[:]); err != nil {
			return
		}
	}
}

func signalWakeFD(fd int) {
	var buf [8]byte
	buf[7] = 1
	_, _ = unix.Write(fd, buf[:])
}

func toEpollEvents(ev IOEvents) uint32 {
	var r uint32
	if ev&EventRead != 0 {
		r |= unix.EPOLLIN
	}
	if ev&EventWrite != 0 {
		r |= unix.EPOLLOUT
	}
	return r
}

func fromEpollEvents(ev uint32) IOEvents {
	var r IOEvents
	if ev&unix.EPOLLIN != 0 {
		r |= EventRead
	}
	if ev&unix.EPOLLOUT != 0 {
		r |= EventWrite
	}
	if ev&unix.EPOLLERR != 0 {
		r |= EventError
	}
	if ev&unix.EPOLLHUP != 0 {
		r |= EventHangup
	}
	return r
}

func (p *epollPoller) Add(fd int, events IOEvents) error {
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{
		Events: toEpollEvents(events),
		Fd:     int32(fd),
	})
}

func (p *epollPoller) Modify(fd int, events IOEvents) error {
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &unix.EpollEvent{
		Events: toEpollEvents(events),
		Fd:     int32(fd),
	})
}

func (p *epollPoller) Remove(fd int) error {
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

func (p *epollPoller) Wait(timeoutMillis int, out []Event) (int, error) {
	raw := make([]unix.EpollEvent, len(out))
	n, err := unix.EpollWait(p.epfd, raw, timeoutMillis)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, err
	}
	for i := 0; i < n; i++ {
		out[i] = Event{FD: int(raw[i].Fd), Events: fromEpollEvents(raw[i].Events)}
	}
	return n, nil
}

func (p *epollPoller) Close() error { return unix.Close(p.epfd) }
