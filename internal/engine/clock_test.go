package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rewind/internal/ir"
	"github.com/roach88/rewind/internal/state"
)

func TestClockTicks(t *testing.T) {
	c := NewClock()
	assert.Zero(t, c.Last())
	assert.Equal(t, int64(1), c.Tick())
	assert.Equal(t, int64(2), c.Tick())
	assert.Equal(t, int64(2), c.Last(), "Last does not tick")
}

func TestResumeClock(t *testing.T) {
	c := ResumeClock(41)
	assert.Equal(t, int64(41), c.Last())
	assert.Equal(t, int64(42), c.Tick())
}

func TestClockConcurrentTicksUnique(t *testing.T) {
	c := NewClock()
	const goroutines, ticks = 50, 100

	var mu sync.Mutex
	seen := make(map[int64]bool, goroutines*ticks)

	var wg sync.WaitGroup
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range ticks {
				seq := c.Tick()
				mu.Lock()
				seen[seq] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, goroutines*ticks)
	assert.Equal(t, int64(goroutines*ticks), c.Last())
}

func TestEngineContinuesResumedClock(t *testing.T) {
	e := New(state.Initial(), nil, WithClock(ResumeClock(10)))
	t.Cleanup(e.Close)

	snap := e.Dispatch(ir.IncA{})
	require.Equal(t, int64(12), snap.Seq)
	assert.Equal(t, int64(12), e.Seq())
}
