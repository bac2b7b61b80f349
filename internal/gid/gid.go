// Package gid provides a portable "what goroutine am I" identifier, used in
// place of the OS thread identity (ThreadId) the original scheduler keyed
// its per-worker bookkeeping on. A worker in this runtime is a goroutine
// pinned to its OS thread for the process lifetime, so its goroutine id is
// a stable stand-in for "which worker is this" and for "am I inside a
// coroutine's own goroutine right now".
package gid

import (
	"bytes"
	"runtime"
	"strconv"
)

// Current returns an identifier for the calling goroutine, parsed from the
// "goroutine N [state]:" header runtime.Stack always emits first. This is
// the well-known portable idiom for obtaining a goroutine id without
// assembly or cgo; it costs one small stack capture per call, so callers
// that need it on a hot path should cache it once per goroutine.
func Current() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := buf[:n]

	const prefix = "goroutine "
	if !bytes.HasPrefix(b, []byte(prefix)) {
		return 0
	}
	b = b[len(prefix):]

	i := bytes.IndexByte(b, ' ')
	if i < 0 {
		return 0
	}

	id, err := strconv.ParseUint(string(b[:i]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
