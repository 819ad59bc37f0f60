package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/reelfeed/engine/internal/editing"
	"github.com/reelfeed/engine/internal/feed"
	"github.com/reelfeed/engine/internal/interactions"
	"github.com/reelfeed/engine/internal/logging"
	"github.com/reelfeed/engine/internal/models"
	"github.com/reelfeed/engine/internal/playback"
)

var (
	// ErrNotLoaded indicates the screen has not loaded its dataset yet.
	ErrNotLoaded = errors.New("feed not loaded")
	// ErrNotOwner indicates an edit attempt on somebody else's video.
	ErrNotOwner = errors.New("not the video owner")
)

// Options tunes the composed feed components.
type Options struct {
	Logger       *slog.Logger
	SettleDelay  time.Duration
	RenderWindow int
	Audio        playback.AudioRouter
	Geocoder     editing.Geocoder
	Locator      editing.Locator
	Warmer       SourceWarmer
}

// Controller is the feed screen's orchestrator. It loads the dataset, owns
// the screen-scoped context, and composes the pager, viewability tracker,
// playback coordinator and interaction store.
type Controller struct {
	mu       sync.Mutex
	identity Identity
	data     DataStore
	opts     Options
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	userID      string
	collection  *feed.Collection
	pager       *feed.Pager
	tracker     *feed.Tracker
	coordinator *playback.Coordinator
	store       *interactions.Store

	loaded bool
	closed bool
}

// New constructs a controller for one feed screen.
func New(identity Identity, data DataStore, opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	screenID := uuid.NewString()
	logger = logger.With(slog.String("screen_id", screenID))

	ctx, cancel := context.WithCancel(context.Background())
	ctx = logging.WithLogger(ctx, logger)
	ctx = logging.WithScreenID(ctx, screenID)

	return &Controller{
		identity: identity,
		data:     data,
		opts:     opts,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Load fetches the dataset, seeds interaction state with one batched query
// per kind, and wires the feed components. An empty feed is a valid empty
// state, not an error.
func (c *Controller) Load(ctx context.Context) error {
	ctx, span := logging.StartSpan(logging.WithLogger(ctx, c.logger), "feed.load")
	defer span.End()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrNotLoaded
	}
	c.mu.Unlock()

	entries, err := c.data.ListFeed(ctx)
	if err != nil {
		return fmt.Errorf("list feed: %w", err)
	}

	userID, _ := c.identity.CurrentUserID(ctx)
	collection := feed.NewCollection(entries)
	store := interactions.NewStore(c.data, collection, userID, c.logger)
	if err := store.Init(ctx, collection.VideoIDs()); err != nil {
		return fmt.Errorf("init interactions: %w", err)
	}

	coordinator := playback.NewCoordinator(c.logger, c.opts.Audio)
	tracker := feed.NewTracker(c.opts.SettleDelay, func(index int) {
		c.onSettled(index)
	})
	pager := feed.NewPager(collection, c.opts.RenderWindow, tracker)

	c.mu.Lock()
	c.userID = userID
	c.collection = collection
	c.store = store
	c.coordinator = coordinator
	c.tracker = tracker
	c.pager = pager
	c.loaded = true
	c.mu.Unlock()

	c.logger.Info("feed loaded", slog.Int("entries", collection.Len()), slog.Bool("signed_in", userID != ""))

	if collection.Len() > 0 {
		// Page 0 is visible as soon as the screen appears.
		pager.Scroll(0)
	}
	return nil
}

func (c *Controller) onSettled(index int) {
	c.mu.Lock()
	coordinator := c.coordinator
	collection := c.collection
	ctx := c.ctx
	c.mu.Unlock()

	if coordinator == nil {
		return
	}
	coordinator.SetActiveIndex(index)

	if c.opts.Warmer != nil && collection != nil {
		go c.opts.Warmer.WarmAhead(ctx, collection.Entries(), index)
	}
}

// Entries returns the rendered feed entries.
func (c *Controller) Entries() []models.FeedEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.collection == nil {
		return nil
	}
	return c.collection.Entries()
}

// Pager exposes the feed pager for the rendering layer.
func (c *Controller) Pager() *feed.Pager {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pager
}

// Playback exposes the playback coordinator for page components.
func (c *Controller) Playback() *playback.Coordinator {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.coordinator
}

// Interactions exposes the interaction store for read access.
func (c *Controller) Interactions() *interactions.Store {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store
}

// ToggleLike flips the like state of a video under the screen context, so a
// response landing after navigation away is ignored.
func (c *Controller) ToggleLike(videoID string) error {
	c.mu.Lock()
	store, ctx := c.store, c.ctx
	c.mu.Unlock()
	if store == nil {
		return ErrNotLoaded
	}
	return store.ToggleLike(ctx, videoID)
}

// ToggleBookmark flips the bookmark state of a video.
func (c *Controller) ToggleBookmark(videoID string) error {
	c.mu.Lock()
	store, ctx := c.store, c.ctx
	c.mu.Unlock()
	if store == nil {
		return ErrNotLoaded
	}
	return store.ToggleBookmark(ctx, videoID)
}

// ToggleMute flips the global mute flag and returns the new state.
func (c *Controller) ToggleMute() bool {
	c.mu.Lock()
	coordinator := c.coordinator
	c.mu.Unlock()
	if coordinator == nil {
		return false
	}
	return coordinator.ToggleMute()
}

// CanEdit reports whether the signed-in user owns the given video. Ownership
// is the only authorization rule.
func (c *Controller) CanEdit(videoID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.collection == nil || c.userID == "" {
		return false
	}
	entry, ok := c.collection.Get(videoID)
	return ok && entry.Video.OwnerID == c.userID
}

// OpenEdit opens an edit session for the user's own video.
func (c *Controller) OpenEdit(videoID string) (*editing.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		return nil, ErrNotLoaded
	}
	entry, ok := c.collection.Get(videoID)
	if !ok {
		return nil, feed.ErrEntryNotFound
	}
	if c.userID == "" {
		return nil, interactions.ErrSignInRequired
	}
	if entry.Video.OwnerID != c.userID {
		return nil, ErrNotOwner
	}

	return editing.NewSession(entry.Video, c.data, c.collection, c.opts.Geocoder, c.opts.Locator), nil
}

// Background stops all playback while the app is not in the foreground.
func (c *Controller) Background() {
	c.mu.Lock()
	coordinator := c.coordinator
	c.mu.Unlock()
	if coordinator != nil {
		coordinator.Suspend()
	}
}

// Foreground resumes playback of the active page.
func (c *Controller) Foreground() {
	c.mu.Lock()
	coordinator := c.coordinator
	c.mu.Unlock()
	if coordinator != nil {
		coordinator.Resume()
	}
}

// Close tears the screen down: playback stops unconditionally, the screen
// context is cancelled so in-flight interaction responses are ignored, and
// no further events fire. It runs on every exit path and is idempotent.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	tracker := c.tracker
	coordinator := c.coordinator
	store := c.store
	cancel := c.cancel
	c.mu.Unlock()

	cancel()
	if tracker != nil {
		tracker.Close()
	}
	if store != nil {
		store.Close()
	}
	if coordinator != nil {
		coordinator.Close()
	}
	c.logger.Info("feed screen closed")
}
