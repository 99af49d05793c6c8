package progress

import (
	"fmt"
	"sync"
	"testing"
)

func TestAggregator_ConcurrentTicks(t *testing.T) {
	const ticks = 500
	agg := NewAggregator(ticks)

	var wg sync.WaitGroup
	for i := 0; i < ticks; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			agg.Tick(fmt.Sprintf("item-%d", i))
		}(i)
	}
	wg.Wait()

	snap := agg.Read()
	if snap.Completed != ticks {
		t.Errorf("Completed = %d, want %d", snap.Completed, ticks)
	}
	if !snap.Done() {
		t.Error("snapshot should be done")
	}
}

func TestAggregator_MonotonicAndBounded(t *testing.T) {
	agg := NewAggregator(3)

	prev := 0
	for i := 0; i < 5; i++ {
		snap := agg.Tick("x")
		if snap.Completed < prev {
			t.Fatalf("completed decreased: %d -> %d", prev, snap.Completed)
		}
		if snap.Completed > snap.Total {
			t.Fatalf("completed %d exceeds total %d", snap.Completed, snap.Total)
		}
		prev = snap.Completed
	}
	if prev != 3 {
		t.Errorf("final completed = %d, want 3", prev)
	}
}

func TestAggregator_ReadIsIdempotent(t *testing.T) {
	agg := NewAggregator(4)
	agg.Tick("first")
	agg.Tick("second")

	a := agg.Read()
	b := agg.Read()
	if a != b {
		t.Errorf("Read() changed without Tick: %+v vs %+v", a, b)
	}
	if a.Label != "second" || a.Completed != 2 {
		t.Errorf("unexpected snapshot: %+v", a)
	}
}

func TestSnapshot_String(t *testing.T) {
	tests := []struct {
		snap Snapshot
		want string
	}{
		{Snapshot{Completed: 0, Total: 5}, "0/5 completed"},
		{Snapshot{Completed: 3, Total: 5, Label: "Song"}, "3/5 completed (Song)"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.snap.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSnapshot_Fraction(t *testing.T) {
	if got := (Snapshot{}).Fraction(); got != 0 {
		t.Errorf("empty Fraction() = %v, want 0", got)
	}
	if got := (Snapshot{Completed: 1, Total: 4}).Fraction(); got != 0.25 {
		t.Errorf("Fraction() = %v, want 0.25", got)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		input    int64
		expected string
	}{
		{0, "0 B"},
		{100, "100 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{1024 * 1024, "1.0 MiB"},
		{256 * 1024 * 1024, "256 MiB"},
		{1024 * 1024 * 1024, "1.0 GiB"},
	}

	for _, tt := range tests {
		if got := FormatBytes(tt.input); got != tt.expected {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		input float64
		want  string
	}{
		{0, "0:00"},
		{65, "1:05"},
		{3725, "1:02:05"},
	}

	for _, tt := range tests {
		if got := FormatDuration(tt.input); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
