// Package iopoll integrates an OS-native readiness poller (epoll on Linux,
// kqueue on Darwin/BSD) into each worker's driver loop, grounded on the
// fast-path poller design used elsewhere in this dependency stack: direct
// syscalls via golang.org/x/sys/unix, an eventfd/pipe-based wake mechanism
// to interrupt a blocked wait, and a small registry of interested waiters
// keyed by file descriptor.
package iopoll

import "sync"

// IOEvents is a bitmask of readiness conditions.
type IOEvents uint32

const (
	EventRead IOEvents = 1 << iota
	EventWrite
	EventError
	EventHangup
)

// Event is a single readiness notification delivered by a platform poller.
type Event struct {
	FD     int
	Events IOEvents
}

// platformPoller is the minimal surface each OS-specific backend provides;
// Loop drives it uniformly.
type platformPoller interface {
	Add(fd int, events IOEvents) error
	Modify(fd int, events IOEvents) error
	Remove(fd int) error
	Wait(timeoutMillis int, out []Event) (int, error)
	Close() error
}

// WakeupHandle is what a coroutine blocked on I/O registers with a Loop so
// the loop can deliver a readiness event back to it.
type WakeupHandle struct {
	FD      int
	Want    IOEvents
	Deliver func(Event)
}

// Loop is the per-worker event-loop integration: a platform poller plus a
// wake fd used to break a blocked Wait when the scheduler needs this
// worker's attention (new work on the global injector, or scheduler
// shutdown).
type Loop struct {
	poller      platformPoller
	wakeReadFD  int
	wakeWriteFD int
	wakeCh      chan struct{}

	mu      sync.Mutex
	waiters map[int]*WakeupHandle

	closeOnce sync.Once
}

// NewLoop constructs a Loop using the current platform's native poller.
func NewLoop() (*Loop, error) {
	p, err := newPlatformPoller()
	if err != nil {
		return nil, err
	}
	rfd, wfd, err := newWakeFD()
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	l := &Loop{
		poller:      p,
		wakeReadFD:  rfd,
		wakeWriteFD: wfd,
		wakeCh:      make(chan struct{}, 1),
		waiters:     make(map[int]*WakeupHandle),
	}
	if err := p.Add(rfd, EventRead); err != nil {
		_ = p.Close()
		return nil, err
	}
	return l, nil
}

// WakeChan exposes a channel that receives a value whenever Wake breaks a
// concurrent Poll call early, for callers that want to observe it without
// relying solely on Poll's own return.
func (l *Loop) WakeChan() <-chan struct{} { return l.wakeCh }

// Wake interrupts a concurrent, or imminent, blocking Poll call.
func (l *Loop) Wake() {
	signalWakeFD(l.wakeWriteFD)
	select {
	case l.wakeCh <- struct{}{}:
	default:
	}
}

// Register installs (or updates) interest in fd's readiness.
func (l *Loop) Register(h *WakeupHandle) error {
	l.mu.Lock()
	_, exists := l.waiters[h.FD]
	l.waiters[h.FD] = h
	l.mu.Unlock()
	if exists {
		return l.poller.Modify(h.FD, h.Want)
	}
	return l.poller.Add(h.FD, h.Want)
}

// Unregister removes interest in fd.
func (l *Loop) Unregister(fd int) {
	l.mu.Lock()
	delete(l.waiters, fd)
	l.mu.Unlock()
	_ = l.poller.Remove(fd)
}

// Poll blocks for up to timeoutMillis (or indefinitely if negative),
// delivering ready events to their registered handles. It is also this
// worker's parking mechanism: an idle worker's "park" is simply a Poll
// call with a bounded timeout, which doubles as the self-wake safety net
// when nothing else arrives before the timeout elapses.
func (l *Loop) Poll(timeoutMillis int) {
	buf := make([]Event, 128)
	n, err := l.poller.Wait(timeoutMillis, buf)
	if err != nil || n == 0 {
		return
	}
	for i := 0; i < n; i++ {
		ev := buf[i]
		if ev.FD == l.wakeReadFD {
			drainWakeFD(l.wakeReadFD)
			continue
		}
		l.mu.Lock()
		h := l.waiters[ev.FD]
		l.mu.Unlock()
		if h != nil && h.Deliver != nil {
			h.Deliver(ev)
		}
	}
}

// Close closes the platform poller; the wake fds are not closed. Safe to
// call more than once.
func (l *Loop) Close() error {
	var err error
	l.closeOnce.Do(func() {
		err = l.poller.Close()
	})
	return err
}
