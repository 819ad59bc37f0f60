package feed

import (
	"testing"
	"time"

	"github.com/reelfeed/engine/internal/models"
)

func entryFixture(id string, createdAt time.Time) models.FeedEntry {
	return models.FeedEntry{
		Video: models.Video{
			ID:        id,
			OwnerID:   "owner-" + id,
			Title:     "title " + id,
			SourceURL: "https://cdn.example.com/" + id + ".mp4",
			LikeCount: 3,
			CreatedAt: createdAt,
		},
		Author: models.AuthorSummary{ID: "owner-" + id, Username: "user-" + id},
	}
}

func TestNewCollectionOrdersByCreationDesc(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := NewCollection([]models.FeedEntry{
		entryFixture("old", base),
		entryFixture("new", base.Add(2*time.Hour)),
		entryFixture("mid", base.Add(time.Hour)),
	})

	ids := c.VideoIDs()
	want := []string{"new", "mid", "old"}
	for i, id := range want {
		if ids[i] != id {
			t.Fatalf("position %d: want %s got %s", i, id, ids[i])
		}
	}
	if c.IndexOf("old") != 2 {
		t.Fatalf("expected old at index 2 got %d", c.IndexOf("old"))
	}
	if c.IndexOf("missing") != -1 {
		t.Fatalf("expected -1 for unknown id")
	}
}

func TestCollectionAdjustCount(t *testing.T) {
	c := NewCollection([]models.FeedEntry{entryFixture("a", time.Now())})

	count, err := c.AdjustCount("a", models.InteractionLike, 1)
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if count != 4 {
		t.Fatalf("expected like count 4 got %d", count)
	}

	count, err = c.AdjustCount("a", models.InteractionBookmark, 1)
	if err != nil {
		t.Fatalf("adjust bookmark: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected bookmark count 1 got %d", count)
	}

	if _, err := c.AdjustCount("nope", models.InteractionLike, 1); err != ErrEntryNotFound {
		t.Fatalf("expected ErrEntryNotFound got %v", err)
	}
}

func TestCollectionAdjustCountFloorsAtZero(t *testing.T) {
	entry := entryFixture("a", time.Now())
	entry.Video.LikeCount = 0
	c := NewCollection([]models.FeedEntry{entry})

	count, err := c.AdjustCount("a", models.InteractionLike, -1)
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected counter floored at 0 got %d", count)
	}
}

func TestCollectionApplyPatch(t *testing.T) {
	c := NewCollection([]models.FeedEntry{entryFixture("a", time.Now())})

	title := "renamed"
	tag := models.Geotag{Address: "Berlin", Latitude: 52.52, Longitude: 13.405}
	if err := c.ApplyPatch("a", models.VideoPatch{Title: &title, Geotag: &tag}); err != nil {
		t.Fatalf("apply patch: %v", err)
	}

	entry, ok := c.Get("a")
	if !ok {
		t.Fatalf("entry missing after patch")
	}
	if entry.Video.Title != "renamed" {
		t.Fatalf("title not patched: %q", entry.Video.Title)
	}
	if entry.Video.Description != "" {
		t.Fatalf("description should be untouched")
	}
	if entry.Video.Geotag == nil || entry.Video.Geotag.Address != "Berlin" {
		t.Fatalf("geotag not patched: %+v", entry.Video.Geotag)
	}

	if err := c.ApplyPatch("a", models.VideoPatch{ClearGeotag: true}); err != nil {
		t.Fatalf("clear geotag: %v", err)
	}
	entry, _ = c.Get("a")
	if entry.Video.Geotag != nil {
		t.Fatalf("geotag should be cleared")
	}

	if err := c.ApplyPatch("missing", models.VideoPatch{}); err != ErrEntryNotFound {
		t.Fatalf("expected ErrEntryNotFound got %v", err)
	}
}
