package zephyr

import (
	"sync"

	"github.com/zephyrrt/zephyr/internal/sched"
)

var (
	once      sync.Once
	scheduler *sched.Scheduler
)

func initRuntime(cfg runtimeConfig) {
	scheduler = sched.NewWithPoolCapacity(cfg.workers, cfg.poolSize, cfg.timerTick, loggerAdapter{}, limiterAdapter{})
	scheduler.Start()
}

// ensureRuntime returns the process-wide scheduler, starting it with
// default options on first use if Configure was never called.
func ensureRuntime() *sched.Scheduler {
	once.Do(func() {
		initRuntime(defaultConfig())
	})
	return scheduler
}

// NumWorkers returns the number of worker threads the runtime is using,
// starting it with default options if it hasn't been started yet.
func NumWorkers() int {
	return ensureRuntime().NumWorkers()
}
