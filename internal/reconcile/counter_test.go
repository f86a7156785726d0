package reconcile

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/yotellevo/passenger-import/internal/types"
)

func clock(t *time.Time) func() time.Time {
	return func() time.Time { return *t }
}

func TestSequenceCounterResumes(t *testing.T) {
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	c := NewSequenceCounter(types.Counters{ReservationYear: 2025, ReservationSeq: 7}, 4, clock(&now))

	assert.Equal(t, "R-25-0008", c.Next())
	assert.Equal(t, "R-25-0009", c.Next())
	assert.Equal(t, types.Counters{ReservationYear: 2025, ReservationSeq: 9}, c.State())
}

func TestSequenceCounterResetsOnNewYear(t *testing.T) {
	now := time.Date(2025, time.December, 31, 23, 0, 0, 0, time.UTC)
	c := NewSequenceCounter(types.Counters{ReservationYear: 2025, ReservationSeq: 41}, 4, clock(&now))

	assert.Equal(t, "R-25-0042", c.Next())

	now = time.Date(2026, time.January, 1, 8, 0, 0, 0, time.UTC)
	assert.Equal(t, "R-26-0001", c.Next())
	assert.Equal(t, types.Counters{ReservationYear: 2026, ReservationSeq: 1}, c.State())
}

func TestSequenceCounterFreshState(t *testing.T) {
	now := time.Date(2026, time.May, 1, 0, 0, 0, 0, time.UTC)
	c := NewSequenceCounter(types.Counters{}, 0, clock(&now))

	assert.Equal(t, "R-26-0001", c.Next())
}

func TestSequenceCounterWidth(t *testing.T) {
	now := time.Date(2026, time.May, 1, 0, 0, 0, 0, time.UTC)
	c := NewSequenceCounter(types.Counters{ReservationYear: 2026, ReservationSeq: 99}, 2, clock(&now))

	assert.Equal(t, "R-26-100", c.Next())
}

func TestSequenceCounterConcurrent(t *testing.T) {
	now := time.Date(2026, time.May, 1, 0, 0, 0, 0, time.UTC)
	c := NewSequenceCounter(types.Counters{}, 4, clock(&now))

	var (
		mu   sync.Mutex
		seen = make(map[string]bool)
		wg   sync.WaitGroup
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := c.Next()
			mu.Lock()
			seen[id] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 50)
	assert.Equal(t, 50, c.State().ReservationSeq)
}
