// Package zephyr implements a user-space stackful coroutine runtime:
// lightweight, cooperatively-scheduled coroutines multiplexed onto a fixed
// pool of OS threads, with work-stealing scheduling, an integrated
// event-driven I/O and timer subsystem, and structured cancellation.
//
// A coroutine is started with Spawn, which returns a JoinHandle used to
// wait for its result. Coroutines cooperatively suspend at blocking calls
// — YieldNow, Sleep, channel operations, network I/O, and the primitives
// in the sync subpackage — never blocking the OS thread driving them, so
// a single worker pool can drive an arbitrarily large number of them.
//
// Coroutines spawned by this package own a goroutine of their own under
// the hood, but that goroutine's execution is strictly serialized with
// whatever worker is resuming it: only one of {the worker, the coroutine}
// is ever runnable at a time, which is what makes the programming model
// feel like a stackful coroutine rather than an ordinary goroutine.
package zephyr
