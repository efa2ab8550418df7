package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClock_SharedSequence(t *testing.T) {
	c := NewClock()
	assert.Equal(t, int64(0), c.Current())

	assert.Equal(t, int64(1), c.Tick(16*time.Millisecond), "first frame is seq 1")
	assert.Equal(t, int64(2), c.Next(), "failure events take the next seq")
	assert.Equal(t, int64(3), c.Tick(17*time.Millisecond))

	assert.Equal(t, int64(3), c.Current())
	assert.Equal(t, 33*time.Millisecond, c.Elapsed(), "only frames advance simulated time")
}

func TestClock_ConcurrentTicksAreUnique(t *testing.T) {
	c := NewClock()
	const workers, perWorker = 8, 250

	var (
		mu   sync.Mutex
		seen = make(map[int64]bool, workers*perWorker)
		wg   sync.WaitGroup
	)
	for range workers {
		wg.Go(func() {
			for range perWorker {
				seq := c.Tick(time.Millisecond)
				mu.Lock()
				seen[seq] = true
				mu.Unlock()
			}
		})
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWorker)
	assert.Equal(t, int64(workers*perWorker), c.Current())
	assert.Equal(t, time.Duration(workers*perWorker)*time.Millisecond, c.Elapsed())
}
