package sync_test

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zephyrrt/zephyr"
	zsync "github.com/zephyrrt/zephyr/sync"
)

func TestWaitGroupWaitsForAllChildren(t *testing.T) {
	var wg zsync.WaitGroup
	var done atomic.Int32

	const n = 50
	wg.Add(n)
	for i := 0; i < n; i++ {
		zephyr.Spawn(func() struct{} {
			defer wg.Done()
			done.Add(1)
			return struct{}{}
		})
	}
	wg.Wait()

	assert.EqualValues(t, n, done.Load())
}

func TestWaitGroupNegativeCounterPanics(t *testing.T) {
	var wg zsync.WaitGroup
	require.Panics(t, func() {
		wg.Done()
	})
}
