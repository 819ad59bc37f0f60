package feed

import (
	"sync"
	"time"
)

// visibleThreshold is the viewport share a page must cover before it can
// become the authoritative index.
const visibleThreshold = 0.5

// Tracker turns raw page visibility observations into a single settled
// "current index" event per scroll gesture. Pages flung past never settle:
// each observation restarts the debounce window, so only the page the user
// finally rests on is reported.
type Tracker struct {
	mu        sync.Mutex
	delay     time.Duration
	onChange  func(index int)
	candidate int
	reported  int
	timer     *time.Timer
	closed    bool
}

// NewTracker constructs a tracker that reports settled indices to onChange
// after the visibility signal has been quiet for delay.
func NewTracker(delay time.Duration, onChange func(index int)) *Tracker {
	if delay <= 0 {
		delay = 150 * time.Millisecond
	}
	return &Tracker{
		delay:     delay,
		onChange:  onChange,
		candidate: -1,
		reported:  -1,
	}
}

// Observe records that the page at index currently covers fraction of the
// viewport. Fractions below the visibility threshold are ignored.
func (t *Tracker) Observe(index int, fraction float64) {
	if fraction < visibleThreshold {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}

	t.candidate = index
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(t.delay, t.settle)
}

func (t *Tracker) settle() {
	t.mu.Lock()
	if t.closed || t.candidate < 0 || t.candidate == t.reported {
		t.mu.Unlock()
		return
	}
	t.reported = t.candidate
	index := t.reported
	onChange := t.onChange
	t.mu.Unlock()

	if onChange != nil {
		onChange(index)
	}
}

// Reported returns the last index delivered to onChange, or -1.
func (t *Tracker) Reported() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reported
}

// Close stops the debounce timer; no further events fire.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}
