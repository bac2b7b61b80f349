package zephyr

import "sync"

// Scope provides structured concurrency: every coroutine spawned through
// it is joined, and its panic (if any) propagated, before RunScope
// returns, even if the caller never explicitly joins it.
type Scope struct {
	mu      sync.Mutex
	pending int
	gate    completionGate
	panics  []interface{}
}

// RunScope runs body with a fresh Scope, blocking until every coroutine
// spawned through it has finished — cooperatively suspending the calling
// coroutine if RunScope itself runs inside one, or parking the calling OS
// thread otherwise — then re-raises the first captured child panic, if
// any.
func RunScope(body func(sc *Scope)) {
	sc := &Scope{gate: newCompletionGate()}
	body(sc)

	sc.mu.Lock()
	done := sc.pending == 0
	sc.mu.Unlock()
	if !done {
		sc.gate.wait()
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	if len(sc.panics) > 0 {
		panic(sc.panics[0])
	}
}

// Go spawns a scoped coroutine running entry. Any panic its Join raises
// (including ErrCancelled for a cancelled child) is captured and
// re-raised by the enclosing RunScope call instead of escaping here.
func (sc *Scope) Go(entry func()) {
	sc.mu.Lock()
	sc.pending++
	sc.mu.Unlock()

	h := SpawnSized[struct{}](0, func() struct{} {
		entry()
		return struct{}{}
	})
	go sc.await(h)
}

func (sc *Scope) await(h *JoinHandle[struct{}]) {
	defer func() {
		if r := recover(); r != nil {
			sc.mu.Lock()
			sc.panics = append(sc.panics, r)
			sc.mu.Unlock()
		}

		sc.mu.Lock()
		sc.pending--
		fire := sc.pending == 0
		sc.mu.Unlock()
		if fire {
			sc.gate.fire()
		}
	}()
	h.Join()
}
