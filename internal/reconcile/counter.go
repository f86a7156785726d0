package reconcile

import (
	"fmt"
	"sync"
	"time"

	"github.com/yotellevo/passenger-import/internal/types"
)

// Counter hands out reservation ids. The engine takes it as a dependency so
// the sequence can be persisted by the caller and faked in tests.
type Counter interface {
	Next() string
}

// SequenceCounter yields ids of the form R-<yy>-<n>, with n zero padded to
// Width digits. The sequence restarts at 1 when the calendar year changes.
type SequenceCounter struct {
	mu    sync.Mutex
	year  int
	value int
	width int
	now   func() time.Time
}

// NewSequenceCounter resumes a sequence from persisted state. now may be nil.
func NewSequenceCounter(state types.Counters, width int, now func() time.Time) *SequenceCounter {
	if now == nil {
		now = time.Now
	}
	if width < 1 {
		width = 4
	}
	return &SequenceCounter{
		year:  state.ReservationYear,
		value: state.ReservationSeq,
		width: width,
		now:   now,
	}
}

// Next implements Counter.
func (c *SequenceCounter) Next() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	year := c.now().Year()
	if year != c.year {
		c.year = year
		c.value = 0
	}
	c.value++
	return fmt.Sprintf("R-%02d-%0*d", year%100, c.width, c.value)
}

// State returns the values to persist so the next run continues the sequence.
func (c *SequenceCounter) State() types.Counters {
	c.mu.Lock()
	defer c.mu.Unlock()
	return types.Counters{ReservationYear: c.year, ReservationSeq: c.value}
}
