package orchestrator

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActionLocksRejectDuplicate(t *testing.T) {
	l := newActionLocks()

	assert.True(t, l.TryAcquire("buy", "event1"))
	assert.False(t, l.TryAcquire("buy", "event1"), "same action on the same event must be rejected")

	// Different kind or different event proceeds independently.
	assert.True(t, l.TryAcquire("redeem_pair", "event1"))
	assert.True(t, l.TryAcquire("buy", "event2"))

	l.Release("buy", "event1")
	assert.True(t, l.TryAcquire("buy", "event1"))
}

func TestActionLocksReleaseUnheld(t *testing.T) {
	l := newActionLocks()
	l.Release("buy", "event1") // must not panic
	assert.True(t, l.TryAcquire("buy", "event1"))
}

func TestActionLocksConcurrent(t *testing.T) {
	l := newActionLocks()

	var acquired atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.TryAcquire("buy", "event1") {
				acquired.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), acquired.Load(), "exactly one concurrent caller may hold the slot")
}
