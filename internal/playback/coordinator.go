package playback

import (
	"log/slog"
	"sync"
)

// Handle is an opaque controller for one playable media instance. Transport
// commands may fail when the underlying resource is not ready; the
// coordinator swallows such failures.
type Handle interface {
	Start() error
	Stop() error
	SetMuted(muted bool) error
}

// AudioRouter restores the process-wide audio routing to a non-intrusive
// mode when the feed screen goes away.
type AudioRouter interface {
	Deactivate() error
}

type registration struct {
	index   int
	handle  Handle
	playing bool
}

// Coordinator owns the two pieces of state shared by every feed page: the
// single active-player slot and the global mute flag. Pages never touch
// either directly; they register their handle and the coordinator issues all
// transport commands.
type Coordinator struct {
	mu          sync.Mutex
	logger      *slog.Logger
	audio       AudioRouter
	handles     map[string]*registration
	activeIndex int
	suspended   bool
	muted       bool
	closed      bool
}

// NewCoordinator constructs a coordinator with no active page. audio may be
// nil when the host platform needs no routing reset.
func NewCoordinator(logger *slog.Logger, audio AudioRouter) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		logger:      logger,
		audio:       audio,
		handles:     make(map[string]*registration),
		activeIndex: -1,
	}
}

// Register adds a handle for the page at index, as pages mount under
// virtualization. The joining handle inherits the global mute state, and
// starts immediately when its page is already the active one.
func (c *Coordinator) Register(videoID string, index int, h Handle) {
	if h == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	reg := &registration{index: index, handle: h}
	c.handles[videoID] = reg

	if err := h.SetMuted(c.muted); err != nil {
		c.logger.Warn("set muted on register failed", "video_id", videoID, "error", err)
	}
	if index == c.activeIndex && !c.suspended {
		c.startLocked(videoID, reg)
	}
}

// Unregister removes a handle as its page unmounts. Unknown ids are a no-op;
// an active handle disappearing simply leaves the slot empty until the next
// settle or registration.
func (c *Coordinator) Unregister(videoID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	reg, ok := c.handles[videoID]
	if !ok {
		return
	}
	if reg.playing {
		c.stopLocked(videoID, reg)
	}
	delete(c.handles, videoID)
}

// SetActiveIndex makes the page at index the only playing one. Calling it
// again with the current index is a no-op; no handle at the index is a
// defensive no-op that still silences everything else. The exactly-one
// invariant holds at every point observable outside the coordinator.
func (c *Coordinator) SetActiveIndex(index int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.suspended {
		return
	}
	if index == c.activeIndex {
		return
	}

	c.activeIndex = index
	for videoID, reg := range c.handles {
		if reg.index == index {
			continue
		}
		if reg.playing {
			c.stopLocked(videoID, reg)
		}
	}
	for videoID, reg := range c.handles {
		if reg.index == index && !reg.playing {
			c.startLocked(videoID, reg)
		}
	}
}

// ToggleMute flips the single global mute flag and propagates it to every
// registered handle. It returns the new state.
func (c *Coordinator) ToggleMute() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return c.muted
	}

	c.muted = !c.muted
	for videoID, reg := range c.handles {
		if err := reg.handle.SetMuted(c.muted); err != nil {
			c.logger.Warn("set muted failed", "video_id", videoID, "error", err)
		}
	}
	return c.muted
}

// Muted reports the global mute state.
func (c *Coordinator) Muted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.muted
}

// ActiveIndex returns the index last made active, or -1.
func (c *Coordinator) ActiveIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeIndex
}

// Suspend stops all transport while the app is backgrounded. The active
// index is retained so Resume can pick up where the user left off.
func (c *Coordinator) Suspend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.suspended {
		return
	}
	c.suspended = true
	c.stopAllLocked()
}

// Resume restarts the active page after a Suspend.
func (c *Coordinator) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || !c.suspended {
		return
	}
	c.suspended = false
	for videoID, reg := range c.handles {
		if reg.index == c.activeIndex && !reg.playing {
			c.startLocked(videoID, reg)
		}
	}
}

// Close stops every registered handle and resets audio routing. It runs on
// every exit path from the feed screen and is safe to call more than once.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.stopAllLocked()

	if c.audio != nil {
		if err := c.audio.Deactivate(); err != nil {
			c.logger.Warn("audio routing reset failed", "error", err)
		}
	}
}

func (c *Coordinator) stopAllLocked() {
	for videoID, reg := range c.handles {
		if err := reg.handle.Stop(); err != nil {
			c.logger.Warn("transport stop failed", "video_id", videoID, "error", err)
		}
		reg.playing = false
	}
}

func (c *Coordinator) startLocked(videoID string, reg *registration) {
	if err := reg.handle.Start(); err != nil {
		c.logger.Warn("transport start failed", "video_id", videoID, "error", err)
		return
	}
	reg.playing = true
}

func (c *Coordinator) stopLocked(videoID string, reg *registration) {
	if err := reg.handle.Stop(); err != nil {
		c.logger.Warn("transport stop failed", "video_id", videoID, "error", err)
	}
	reg.playing = false
}
