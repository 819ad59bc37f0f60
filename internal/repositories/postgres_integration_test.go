package repositories

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/cockroachdb/cockroach-go/v2/testserver"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/reelfeed/engine/internal/models"
)

var testPool *pgxpool.Pool

const testSchema = `
CREATE TABLE IF NOT EXISTS users (
    id         TEXT PRIMARY KEY,
    username   TEXT NOT NULL,
    avatar_url TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS videos (
    id             TEXT PRIMARY KEY,
    owner_id       TEXT NOT NULL REFERENCES users (id),
    title          TEXT NOT NULL,
    description    TEXT NOT NULL DEFAULT '',
    source_url     TEXT NOT NULL,
    like_count     INT NOT NULL DEFAULT 0,
    bookmark_count INT NOT NULL DEFAULT 0,
    geo_address    TEXT,
    geo_latitude   FLOAT8,
    geo_longitude  FLOAT8,
    created_at     TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS interactions (
    id         TEXT PRIMARY KEY,
    kind       TEXT NOT NULL,
    video_id   TEXT NOT NULL REFERENCES videos (id),
    user_id    TEXT NOT NULL REFERENCES users (id),
    created_at TIMESTAMPTZ NOT NULL,
    UNIQUE (kind, video_id, user_id)
);
`

func TestMain(m *testing.M) {
	server, err := testserver.NewTestServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "start cockroach test server: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, server.PGURL().String())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect to cockroach test server: %v\n", err)
		server.Stop()
		os.Exit(1)
	}

	if _, err := pool.Exec(ctx, testSchema); err != nil {
		fmt.Fprintf(os.Stderr, "apply schema: %v\n", err)
		pool.Close()
		server.Stop()
		os.Exit(1)
	}

	testPool = pool

	code := m.Run()

	pool.Close()
	server.Stop()

	os.Exit(code)
}

func resetDatabase(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	for _, table := range []string{"interactions", "videos", "users"} {
		if _, err := testPool.Exec(ctx, "DELETE FROM "+table); err != nil {
			t.Fatalf("reset %s: %v", table, err)
		}
	}
}

func seedUser(t *testing.T, id, username string) {
	t.Helper()
	_, err := testPool.Exec(context.Background(), `
        INSERT INTO users (id, username, avatar_url) VALUES ($1, $2, $3)
    `, id, username, "https://cdn.example.com/avatars/"+id+".png")
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
}

func seedVideo(t *testing.T, id, ownerID string, createdAt time.Time) {
	t.Helper()
	_, err := testPool.Exec(context.Background(), `
        INSERT INTO videos (id, owner_id, title, source_url, created_at)
        VALUES ($1, $2, $3, $4, $5)
    `, id, ownerID, "video "+id, "https://cdn.example.com/"+id+".mp4", createdAt)
	if err != nil {
		t.Fatalf("seed video: %v", err)
	}
}

func TestPostgresStoreListFeedOrdersNewestFirst(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)
	store := NewPostgresStore(testPool)

	seedUser(t, "u1", "alice")
	base := time.Now().UTC().Truncate(time.Second)
	seedVideo(t, "v-old", "u1", base.Add(-2*time.Hour))
	seedVideo(t, "v-new", "u1", base)
	seedVideo(t, "v-mid", "u1", base.Add(-time.Hour))

	entries, err := store.ListFeed(ctx)
	if err != nil {
		t.Fatalf("list feed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries got %d", len(entries))
	}
	want := []string{"v-new", "v-mid", "v-old"}
	for i, id := range want {
		if entries[i].Video.ID != id {
			t.Fatalf("position %d: want %s got %s", i, id, entries[i].Video.ID)
		}
	}
	if entries[0].Author.Username != "alice" {
		t.Fatalf("author summary not joined: %+v", entries[0].Author)
	}
}

func TestPostgresStoreInteractionsRoundTrip(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)
	store := NewPostgresStore(testPool)

	seedUser(t, "u1", "alice")
	now := time.Now().UTC()
	seedVideo(t, "v1", "u1", now)
	seedVideo(t, "v2", "u1", now.Add(-time.Minute))
	seedVideo(t, "v3", "u1", now.Add(-2*time.Minute))

	if err := store.CreateInteraction(ctx, models.InteractionLike, "v1", "u1"); err != nil {
		t.Fatalf("create like: %v", err)
	}
	if err := store.CreateInteraction(ctx, models.InteractionBookmark, "v2", "u1"); err != nil {
		t.Fatalf("create bookmark: %v", err)
	}

	if err := store.CreateInteraction(ctx, models.InteractionLike, "v1", "u1"); err != ErrConflict {
		t.Fatalf("expected ErrConflict on duplicate got %v", err)
	}

	liked, err := store.ListInteractions(ctx, models.InteractionLike, "u1", []string{"v1", "v2", "v3"})
	if err != nil {
		t.Fatalf("list likes: %v", err)
	}
	if _, ok := liked["v1"]; !ok || len(liked) != 1 {
		t.Fatalf("expected exactly v1 liked got %v", liked)
	}

	bookmarked, err := store.ListInteractions(ctx, models.InteractionBookmark, "u1", []string{"v1", "v2", "v3"})
	if err != nil {
		t.Fatalf("list bookmarks: %v", err)
	}
	if _, ok := bookmarked["v2"]; !ok || len(bookmarked) != 1 {
		t.Fatalf("expected exactly v2 bookmarked got %v", bookmarked)
	}

	if err := store.DeleteInteraction(ctx, models.InteractionLike, "v1", "u1"); err != nil {
		t.Fatalf("delete like: %v", err)
	}
	if err := store.DeleteInteraction(ctx, models.InteractionLike, "v1", "u1"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound on second delete got %v", err)
	}
}

func TestPostgresStoreUpdateVideoPatch(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)
	store := NewPostgresStore(testPool)

	seedUser(t, "u1", "alice")
	seedVideo(t, "v1", "u1", time.Now().UTC())

	title := "renamed"
	description := "fresh description"
	tag := models.Geotag{Address: "Berlin", Latitude: 52.52, Longitude: 13.405}
	err := store.UpdateVideo(ctx, "v1", models.VideoPatch{
		Title:       &title,
		Description: &description,
		Geotag:      &tag,
	})
	if err != nil {
		t.Fatalf("update video: %v", err)
	}

	video, err := store.GetVideo(ctx, "v1")
	if err != nil {
		t.Fatalf("get video: %v", err)
	}
	if video.Title != "renamed" || video.Description != "fresh description" {
		t.Fatalf("fields not updated: %+v", video)
	}
	if video.Geotag == nil || video.Geotag.Address != "Berlin" {
		t.Fatalf("geotag not stored: %+v", video.Geotag)
	}

	if err := store.UpdateVideo(ctx, "v1", models.VideoPatch{ClearGeotag: true}); err != nil {
		t.Fatalf("clear geotag: %v", err)
	}
	video, err = store.GetVideo(ctx, "v1")
	if err != nil {
		t.Fatalf("get video: %v", err)
	}
	if video.Geotag != nil {
		t.Fatalf("geotag should be cleared: %+v", video.Geotag)
	}

	if err := store.UpdateVideo(ctx, uuid.NewString(), models.VideoPatch{Title: &title}); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound got %v", err)
	}

	if _, err := store.GetVideo(ctx, "missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound got %v", err)
	}
}
