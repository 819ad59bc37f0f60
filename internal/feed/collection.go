package feed

import (
	"errors"
	"sort"
	"sync"

	"github.com/reelfeed/engine/internal/models"
)

var (
	// ErrEntryNotFound indicates the requested video is not part of this feed.
	ErrEntryNotFound = errors.New("feed entry not found")
)

// Collection holds the feed's in-memory entries for the lifetime of one
// screen. Order is fixed at load time (descending creation time); entries are
// only mutated through counter adjustments and edit patches.
type Collection struct {
	mu      sync.RWMutex
	entries []models.FeedEntry
	index   map[string]int
}

// NewCollection builds a collection from the loaded entries, ordering them by
// descending creation time.
func NewCollection(entries []models.FeedEntry) *Collection {
	sorted := make([]models.FeedEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Video.CreatedAt.After(sorted[j].Video.CreatedAt)
	})

	index := make(map[string]int, len(sorted))
	for i, entry := range sorted {
		index[entry.Video.ID] = i
	}

	return &Collection{entries: sorted, index: index}
}

// Len reports the number of entries in the feed.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Entries returns a copy of the current entries in feed order.
func (c *Collection) Entries() []models.FeedEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.FeedEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

// At returns the entry at the given position.
func (c *Collection) At(i int) (models.FeedEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i < 0 || i >= len(c.entries) {
		return models.FeedEntry{}, false
	}
	return c.entries[i], true
}

// Get returns the entry for the given video id.
func (c *Collection) Get(videoID string) (models.FeedEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.index[videoID]
	if !ok {
		return models.FeedEntry{}, false
	}
	return c.entries[i], true
}

// IndexOf returns the feed position of the given video id, or -1.
func (c *Collection) IndexOf(videoID string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i, ok := c.index[videoID]; ok {
		return i
	}
	return -1
}

// VideoIDs returns the ids of every entry in feed order.
func (c *Collection) VideoIDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]string, len(c.entries))
	for i, entry := range c.entries {
		ids[i] = entry.Video.ID
	}
	return ids
}

// AdjustCount shifts the like or bookmark counter of a video by delta and
// returns the new value. Counters never drop below zero.
func (c *Collection) AdjustCount(videoID string, kind models.InteractionKind, delta int) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i, ok := c.index[videoID]
	if !ok {
		return 0, ErrEntryNotFound
	}

	video := &c.entries[i].Video
	switch kind {
	case models.InteractionBookmark:
		video.BookmarkCount += delta
		if video.BookmarkCount < 0 {
			video.BookmarkCount = 0
		}
		return video.BookmarkCount, nil
	default:
		video.LikeCount += delta
		if video.LikeCount < 0 {
			video.LikeCount = 0
		}
		return video.LikeCount, nil
	}
}

// ApplyPatch commits edited fields onto the rendered copy of a video so the
// feed reflects a successful save without a re-fetch.
func (c *Collection) ApplyPatch(videoID string, patch models.VideoPatch) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i, ok := c.index[videoID]
	if !ok {
		return ErrEntryNotFound
	}

	video := &c.entries[i].Video
	if patch.Title != nil {
		video.Title = *patch.Title
	}
	if patch.Description != nil {
		video.Description = *patch.Description
	}
	if patch.ClearGeotag {
		video.Geotag = nil
	} else if patch.Geotag != nil {
		tag := *patch.Geotag
		video.Geotag = &tag
	}

	return nil
}
