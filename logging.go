package zephyr

import (
	"fmt"
	"sync"
	"time"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// diagnostic logging is wired to the real logiface/stumpy structured
// logger rather than a bespoke Logger interface, and go-catrate rate
// limits each log category. The scheduler currently logs one category:
// a worker's poller failing to initialize.
var (
	logMu  sync.RWMutex
	logger = stumpy.L.New()

	limiter = catrate.NewLimiter(map[time.Duration]int{
		10 * time.Second: 5,
		time.Minute:      30,
	})
)

// SetLogger redirects the runtime's internal diagnostic logging (currently
// only poller initialization failures) to a caller-supplied logiface
// logger, matching the teacher corpus's package-level
// SetStructuredLogger-style configuration hook.
func SetLogger(l *logiface.Logger[*stumpy.Event]) {
	logMu.Lock()
	logger = l
	logMu.Unlock()
}

type loggerAdapter struct{}

func (loggerAdapter) Warnf(category, format string, args ...interface{}) {
	logMu.RLock()
	l := logger
	logMu.RUnlock()
	l.Warn().Str(`category`, category).Log(fmt.Sprintf(format, args...))
}

type limiterAdapter struct{}

func (limiterAdapter) Allow(category string) bool {
	_, ok := limiter.Allow(category)
	return ok
}
