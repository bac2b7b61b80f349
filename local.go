package zephyr

import (
	"reflect"
	"sync"

	"github.com/zephyrrt/zephyr/internal/gid"
	"github.com/zephyrrt/zephyr/internal/sched"
)

// LocalKey is a typed coroutine-local storage slot: each coroutine sees
// its own independent value, lazily created by init on first access
// within that coroutine. Used outside any coroutine, it falls back to a
// goroutine-keyed map instead — and that fallback is intentionally never
// unified with the per-coroutine maps, so a coroutine and whatever
// goroutine happened to spawn it never observe each other's values
// through the same key.
//
// Slots are keyed by the value type T, not by the LocalKey instance: two
// LocalKeys with the same T share one slot per coroutine, and only the
// first one accessed supplies its init.
type LocalKey[T any] struct {
	init func() T
}

// NewLocalKey creates a coroutine-local slot whose value is produced by
// init the first time it's observed on a given coroutine (or goroutine,
// outside one).
func NewLocalKey[T any](init func() T) *LocalKey[T] {
	return &LocalKey[T]{init: init}
}

var (
	fallbackMu   sync.Mutex
	fallbackData = map[uint64]map[reflect.Type]interface{}{}
)

// With invokes f with this key's value for the calling coroutine, or for
// the calling goroutine if called outside one, creating it via init first
// if this is the first access.
func (k *LocalKey[T]) With(f func(v T)) {
	t := reflect.TypeOf(k)

	if co := sched.CurrentCoroutine(); co != nil {
		m, mu := co.LocalData()
		mu.Lock()
		defer mu.Unlock()
		f(k.fromMap(m, t))
		return
	}

	g := gid.Current()
	fallbackMu.Lock()
	m, ok := fallbackData[g]
	if !ok {
		m = make(map[reflect.Type]interface{})
		fallbackData[g] = m
	}
	fallbackMu.Unlock()

	f(k.fromMap(m, t))
}

func (k *LocalKey[T]) fromMap(m map[reflect.Type]interface{}, t reflect.Type) T {
	if v, ok := m[t]; ok {
		return v.(T)
	}
	v := k.init()
	m[t] = v
	return v
}
