package progress

import (
	"fmt"
	"sync"
)

// Snapshot is a point-in-time view of a job's progress.
type Snapshot struct {
	Completed int
	Total     int
	Label     string
}

// Fraction returns Completed/Total in [0,1].
func (s Snapshot) Fraction() float64 {
	if s.Total <= 0 {
		return 0
	}
	return float64(s.Completed) / float64(s.Total)
}

// Done reports whether every item has completed.
func (s Snapshot) Done() bool {
	return s.Total > 0 && s.Completed >= s.Total
}

// String renders the snapshot as a progress line, e.g. "3/5 completed (Song Title)".
func (s Snapshot) String() string {
	if s.Label == "" {
		return fmt.Sprintf("%d/%d completed", s.Completed, s.Total)
	}
	return fmt.Sprintf("%d/%d completed (%s)", s.Completed, s.Total, s.Label)
}

// Aggregator counts completed items across concurrent workers.
//
// Tick may be called from any number of goroutines. The completed count and
// the current label are updated together, so a reader never observes a label
// that belongs to a different count.
type Aggregator struct {
	mu        sync.RWMutex
	total     int
	completed int
	label     string
}

// NewAggregator creates an Aggregator for a job with total items.
func NewAggregator(total int) *Aggregator {
	if total < 0 {
		total = 0
	}
	return &Aggregator{total: total}
}

// Tick marks one more item as completed and returns the resulting snapshot.
//
// The count never exceeds the total; extra ticks only replace the label.
func (a *Aggregator) Tick(label string) Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.completed < a.total {
		a.completed++
	}
	a.label = label
	return Snapshot{Completed: a.completed, Total: a.total, Label: a.label}
}

// Read returns the current snapshot.
func (a *Aggregator) Read() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return Snapshot{Completed: a.completed, Total: a.total, Label: a.label}
}
