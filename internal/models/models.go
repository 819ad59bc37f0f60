package models

import "time"

// Geotag associates a human-readable address with coordinates.
type Geotag struct {
	Address   string
	Latitude  float64
	Longitude float64
}

// Video represents a single post in the ReelFeed catalogue. Counters are
// server-maintained; the engine adjusts its in-memory copy optimistically
// and relies on the backend triggers for the durable values.
type Video struct {
	ID            string
	OwnerID       string
	Title         string
	Description   string
	SourceURL     string
	LikeCount     int
	BookmarkCount int
	Geotag        *Geotag
	CreatedAt     time.Time
}

// AuthorSummary is the denormalized author slice joined onto each feed entry.
type AuthorSummary struct {
	ID        string
	Username  string
	AvatarURL string
}

// FeedEntry is a Video joined with its author summary, as rendered by the feed.
type FeedEntry struct {
	Video  Video
	Author AuthorSummary
}

// InteractionKind names the social interactions the engine tracks per video.
type InteractionKind string

const (
	InteractionLike     InteractionKind = "like"
	InteractionBookmark InteractionKind = "bookmark"
)

// VideoPatch carries the editable fields committed by an edit session.
// Nil pointers leave the corresponding field untouched.
type VideoPatch struct {
	Title       *string
	Description *string
	Geotag      *Geotag
	ClearGeotag bool
}
