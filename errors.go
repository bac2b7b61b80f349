package zephyr

import "errors"

// ErrCancelled is the panic value JoinHandle.Join raises for a coroutine
// that was cancelled before it completed.
var ErrCancelled = errors.New("zephyr: cancelled")

// ErrTimeout is returned by an operation that raced a deadline and lost.
var ErrTimeout = errors.New("zephyr: i/o timeout")

// ErrClosed is returned by operations on a primitive or connection that
// has already been closed.
var ErrClosed = errors.New("zephyr: use of closed resource")

// ErrNotInCoroutine is returned by operations that only make sense inside
// a coroutine spawned by this package (for example, the socket operations
// in the net subpackage).
var ErrNotInCoroutine = errors.New("zephyr: not running inside a coroutine")
