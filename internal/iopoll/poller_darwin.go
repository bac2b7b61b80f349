//go:build darwin

package iopoll

import "golang.org/x/sys/unix"

type kqueuePoller struct {
	kq int
}

func newPlatformPoller() (platformPoller, error) {
	fd, err := unix.Kqueue()
	if err != nil {
		return nil, err
	}
	return &kqueuePoller{kq: fd}, nil
}

// Darwin's kqueue has no eventfd equivalent; a self-pipe is the standard
// substitute for breaking a blocked Wait from another goroutine.
func newWakeFD() (readFD, writeFD int, err error) {
	var fds [2]int
	if err := unix.Pipe(fds[:]); err != nil {
		return 0, 0, err
	}
	_ = unix.SetNonblock(fds[0], true)
	_ = unix.SetNonblock(fds[1], true)
	return fds[0], fds[1], nil
}

func drainWakeFD(fd int) {
	var buf [64]byte
	for {
		if _, err := unix.Read(fd, buf[:]); err != nil {
			return
		}
	}
}

func signalWakeFD(fd int) {
	var buf [1]byte
	_, _ = unix.Write(fd, buf[:])
}

func (p *kqueuePoller) changeList(fd int, events IOEvents, flags uint16) []unix.Kevent_t {
	var changes []unix.Kevent_t
	if events&EventRead != 0 {
		changes = append(changes, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: flags})
	}
	if events&EventWrite != 0 {
		changes = append(changes, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: flags})
	}
	return changes
}

func (p *kqueuePoller) Add(fd int, events IOEvents) error {
	_, err := unix.Kevent(p.kq, p.changeList(fd, events, unix.EV_ADD|unix.EV_ENABLE), nil, nil)
	return err
}

func (p *kqueuePoller) Modify(fd int, events IOEvents) error {
	return p.Add(fd, events)
}

func (p *kqueuePoller) Remove(fd int) error {
	_, err := unix.Kevent(p.kq, p.changeList(fd, EventRead|EventWrite, unix.EV_DELETE), nil, nil)
	return err
}

func (p *kqueuePoller) Wait(timeoutMillis int, out []Event) (int, error) {
	raw := make([]unix.Kevent_t, len(out))
	var ts *unix.Timespec
	if timeoutMillis >= 0 {
		ts = &unix.Timespec{
			Sec:  int64(timeoutMillis / 1000),
			Nsec: int64(timeoutMillis%1000) * 1e6,
		}
	}
	n, err := unix.Kevent(p.kq, nil, raw, ts)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, err
	}
	for i := 0; i < n; i++ {
		var ev IOEvents
		switch raw[i].Filter {
		case unix.EVFILT_READ:
			ev = EventRead
		case unix.EVFILT_WRITE:
			ev = EventWrite
		}
		if raw[i].Flags&unix.EV_EOF != 0 {
			ev |= EventHangup
		}
		if raw[i].Flags&unix.EV_ERROR != 0 {
			ev |= EventError
		}
		out[i] = Event{FD: int(raw[i].Ident), Events: ev}
	}
	return n, nil
}

func (p *kqueuePoller) Close() error { return unix.Close(p.kq) }
