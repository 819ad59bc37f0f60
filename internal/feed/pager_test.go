package feed

import (
	"testing"
	"time"

	"github.com/reelfeed/engine/internal/models"
)

func collectionOf(n int) *Collection {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	entries := make([]models.FeedEntry, 0, n)
	for i := 0; i < n; i++ {
		entries = append(entries, entryFixture(string(rune('a'+i)), base.Add(-time.Duration(i)*time.Minute)))
	}
	return NewCollection(entries)
}

func TestPagerEmptyFeedReportsNothing(t *testing.T) {
	rec := &indexRecorder{}
	tracker := NewTracker(settleDelay, rec.record)
	defer tracker.Close()

	pager := NewPager(collectionOf(0), 1, tracker)
	pager.Scroll(0)
	pager.Snap()
	waitForSettle()

	if got := rec.snapshot(); len(got) != 0 {
		t.Fatalf("empty feed should emit nothing got %v", got)
	}
	if _, _, ok := pager.RenderRange(); ok {
		t.Fatalf("empty feed should have no render range")
	}
}

func TestPagerScrollAndSnapSettleOnTargetPage(t *testing.T) {
	rec := &indexRecorder{}
	tracker := NewTracker(settleDelay, rec.record)
	defer tracker.Close()

	pager := NewPager(collectionOf(5), 1, tracker)
	pager.Scroll(0)
	waitForSettle()

	pager.Scroll(0.3)
	pager.Scroll(0.9)
	pager.Snap()
	waitForSettle()

	got := rec.snapshot()
	if len(got) != 2 || got[0] != 0 || got[1] != 1 {
		t.Fatalf("expected settles [0 1] got %v", got)
	}
	if pager.Page() != 1 {
		t.Fatalf("expected page 1 got %d", pager.Page())
	}
}

func TestPagerFlingThroughNeverSettlesIntermediate(t *testing.T) {
	rec := &indexRecorder{}
	tracker := NewTracker(settleDelay, rec.record)
	defer tracker.Close()

	pager := NewPager(collectionOf(5), 1, tracker)
	pager.Scroll(0)
	waitForSettle()

	// One continuous fling from page 0 to page 2 with no quiet period.
	for _, offset := range []float64{0.2, 0.6, 1.1, 1.5, 1.9, 2.0} {
		pager.Scroll(offset)
	}
	pager.Snap()
	waitForSettle()

	got := rec.snapshot()
	if len(got) != 2 || got[1] != 2 {
		t.Fatalf("expected fling to settle only on 2 got %v", got)
	}
}

func TestPagerClampsToFeedBounds(t *testing.T) {
	pager := NewPager(collectionOf(3), 1, nil)
	pager.Scroll(99)
	if pager.Page() != 2 {
		t.Fatalf("expected clamp to last page got %d", pager.Page())
	}
	pager.Scroll(-5)
	if pager.Page() != 0 {
		t.Fatalf("expected clamp to first page got %d", pager.Page())
	}
}

func TestPagerRenderRangeBoundsWindow(t *testing.T) {
	pager := NewPager(collectionOf(10), 2, nil)

	lo, hi, ok := pager.RenderRange()
	if !ok || lo != 0 || hi != 2 {
		t.Fatalf("expected [0 2] at start got [%d %d] ok=%v", lo, hi, ok)
	}

	pager.Scroll(5)
	lo, hi, ok = pager.RenderRange()
	if !ok || lo != 3 || hi != 7 {
		t.Fatalf("expected [3 7] got [%d %d] ok=%v", lo, hi, ok)
	}

	pager.Scroll(9)
	lo, hi, ok = pager.RenderRange()
	if !ok || lo != 7 || hi != 9 {
		t.Fatalf("expected [7 9] got [%d %d] ok=%v", lo, hi, ok)
	}
}

func TestPagerSingleEntryNeverFiresSecondEvent(t *testing.T) {
	rec := &indexRecorder{}
	tracker := NewTracker(settleDelay, rec.record)
	defer tracker.Close()

	pager := NewPager(collectionOf(1), 1, tracker)
	pager.Scroll(0)
	waitForSettle()
	pager.Scroll(0.2)
	pager.Snap()
	waitForSettle()

	if got := rec.snapshot(); len(got) != 1 {
		t.Fatalf("length-1 feed should settle once got %v", got)
	}
}
