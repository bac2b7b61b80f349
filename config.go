package zephyr

import "time"

// Option configures the process-wide runtime singleton. Options are
// applied once, at first use — the first Spawn, SpawnSized, NumWorkers, or
// explicit Configure call, whichever happens first. Options passed to a later
// Configure call have no effect on an already-running scheduler.
type Option func(*runtimeConfig)

type runtimeConfig struct {
	workers   int
	poolSize  int
	timerTick time.Duration
}

func defaultConfig() runtimeConfig {
	return runtimeConfig{poolSize: 256, timerTick: time.Millisecond}
}

// WithWorkers sets the number of worker threads the scheduler runs. Zero
// (the default) uses runtime.GOMAXPROCS(0).
func WithWorkers(n int) Option {
	return func(c *runtimeConfig) { c.workers = n }
}

// WithStackPoolCapacity bounds how many idle coroutine shells each stack
// size bucket keeps ready for reuse before letting the backing goroutine
// (and its stack) exit instead.
func WithStackPoolCapacity(n int) Option {
	return func(c *runtimeConfig) { c.poolSize = n }
}

// WithTimerTick sets the hierarchical timer wheel's base tick duration.
func WithTimerTick(d time.Duration) Option {
	return func(c *runtimeConfig) { c.timerTick = d }
}

// Configure sets process-wide runtime options. It only has effect if the
// runtime has not yet been started by an earlier Configure, Spawn,
// SpawnSized, or NumWorkers call; otherwise it reports false.
func Configure(opts ...Option) bool {
	applied := false
	once.Do(func() {
		cfg := defaultConfig()
		for _, o := range opts {
			o(&cfg)
		}
		initRuntime(cfg)
		applied = true
	})
	return applied
}
