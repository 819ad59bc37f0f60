package feed

import (
	"math"
	"sync"
)

// Pager models the virtualized, snap-scrolling presentation of a feed. The
// viewport position is expressed in page units: offset 1.4 means page 1 covers
// the top 60% of the viewport and page 2 the rest. Only a bounded window of
// pages around the current one is considered rendered; everything else is
// recycled.
type Pager struct {
	mu      sync.Mutex
	entries *Collection
	window  int
	tracker *Tracker
	offset  float64
}

// NewPager constructs a pager over the collection. window is the number of
// pages kept rendered on each side of the current page.
func NewPager(entries *Collection, window int, tracker *Tracker) *Pager {
	if window < 1 {
		window = 1
	}
	return &Pager{
		entries: entries,
		window:  window,
		tracker: tracker,
	}
}

// Scroll moves the viewport to the given page offset, clamped to the feed
// bounds, and reports visibility of the overlapped pages to the tracker. An
// empty feed renders an empty state and reports nothing.
func (p *Pager) Scroll(offset float64) {
	n := p.entries.Len()
	if n == 0 {
		return
	}

	if offset < 0 {
		offset = 0
	}
	if max := float64(n - 1); offset > max {
		offset = max
	}

	p.mu.Lock()
	p.offset = offset
	tracker := p.tracker
	p.mu.Unlock()

	if tracker == nil {
		return
	}

	// At most two pages overlap a full-viewport layout.
	top := int(math.Floor(offset))
	frac := offset - float64(top)
	tracker.Observe(top, 1-frac)
	if frac > 0 && top+1 < n {
		tracker.Observe(top+1, frac)
	}
}

// Snap pulls the viewport onto the nearest hard page boundary, as the snap
// interaction does at the end of a drag, and re-reports visibility.
func (p *Pager) Snap() {
	p.mu.Lock()
	target := math.Round(p.offset)
	p.mu.Unlock()
	p.Scroll(target)
}

// Page returns the index of the page nearest the current viewport position.
func (p *Pager) Page() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return int(math.Round(p.offset))
}

// RenderRange returns the inclusive bounds of the pages that should be
// mounted. ok is false when the feed is empty.
func (p *Pager) RenderRange() (lo, hi int, ok bool) {
	n := p.entries.Len()
	if n == 0 {
		return 0, 0, false
	}

	page := p.Page()
	lo = page - p.window
	if lo < 0 {
		lo = 0
	}
	hi = page + p.window
	if hi > n-1 {
		hi = n - 1
	}
	return lo, hi, true
}
