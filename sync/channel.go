package sync

import (
	stdsync "sync"

	"github.com/zephyrrt/zephyr"
)

// closedMarker is the value a closed Chan delivers to every coroutine
// parked in Send or Recv, distinguishing "woken because the channel
// closed" from "woken with a real value" without a second shared flag
// read after waking.
type closedMarker struct{}

type sendWaiter[T any] struct {
	w     *waiter
	value T
}

// Chan is a generic, coroutine-suspending channel. The runtime makes no
// type-level distinction between mpsc and mpmc use — exactly as with Go's
// own chan, that is purely a function of how many coroutines call Send and
// Recv concurrently. A zero capacity makes Send block until a concurrent
// Recv is ready to take the value directly: the same synchronous
// rendezvous an unbuffered Go channel provides.
type Chan[T any] struct {
	mu     stdsync.Mutex
	cap    int
	buf    []T
	sendQ  []*sendWaiter[T]
	recvQ  []*waiter
	closed bool
}

// NewChan creates a Chan with the given buffer capacity; 0 is a
// synchronous, unbuffered channel.
func NewChan[T any](capacity int) *Chan[T] {
	if capacity < 0 {
		capacity = 0
	}
	return &Chan[T]{cap: capacity}
}

// Send delivers v, suspending the calling coroutine while the channel is
// full and no receiver is currently waiting. Returns zephyr.ErrClosed if
// the channel is, or becomes, closed before v is accepted.
func (c *Chan[T]) Send(v T) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return zephyr.ErrClosed
	}

	// Hand off straight to a coroutine already parked in Recv.
	if len(c.recvQ) > 0 {
		w := c.recvQ[0]
		c.recvQ = c.recvQ[1:]
		c.mu.Unlock()
		w.deliver(v)
		return nil
	}

	if len(c.buf) < c.cap {
		c.buf = append(c.buf, v)
		c.mu.Unlock()
		return nil
	}

	w := newWaiter()
	c.sendQ = append(c.sendQ, &sendWaiter[T]{w: w, value: v})
	c.mu.Unlock()

	if _, closed := w.wait().(closedMarker); closed {
		return zephyr.ErrClosed
	}
	return nil
}

// Recv takes the next value, suspending the calling coroutine while the
// channel is empty. ok is false if the channel is closed and drained.
func (c *Chan[T]) Recv() (v T, ok bool) {
	c.mu.Lock()

	if len(c.buf) > 0 {
		v = c.buf[0]
		c.buf = c.buf[1:]
		if len(c.sendQ) > 0 {
			sw := c.sendQ[0]
			c.sendQ = c.sendQ[1:]
			c.buf = append(c.buf, sw.value)
			c.mu.Unlock()
			sw.w.deliver(nil)
			return v, true
		}
		c.mu.Unlock()
		return v, true
	}

	if len(c.sendQ) > 0 {
		sw := c.sendQ[0]
		c.sendQ = c.sendQ[1:]
		c.mu.Unlock()
		sw.w.deliver(nil)
		return sw.value, true
	}

	if c.closed {
		c.mu.Unlock()
		var zero T
		return zero, false
	}

	w := newWaiter()
	c.recvQ = append(c.recvQ, w)
	c.mu.Unlock()

	result := w.wait()
	if _, closed := result.(closedMarker); closed {
		var zero T
		return zero, false
	}
	return result.(T), true
}

// Close closes the channel, waking every parked Send and Recv with
// zephyr.ErrClosed / ok=false. Safe to call more than once.
func (c *Chan[T]) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	sendQ := c.sendQ
	recvQ := c.recvQ
	c.sendQ = nil
	c.recvQ = nil
	c.mu.Unlock()

	for _, sw := range sendQ {
		sw.w.deliver(closedMarker{})
	}
	for _, w := range recvQ {
		w.deliver(closedMarker{})
	}
}

// Len reports the number of buffered values not yet received.
func (c *Chan[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buf)
}

// Cap reports the channel's buffer capacity.
func (c *Chan[T]) Cap() int { return c.cap }
