package controller

import (
	"context"

	"github.com/reelfeed/engine/internal/editing"
	"github.com/reelfeed/engine/internal/interactions"
	"github.com/reelfeed/engine/internal/models"
)

// Identity resolves the signed-in user, if any. Edit access and interaction
// mutations are scoped to it.
type Identity interface {
	CurrentUserID(ctx context.Context) (string, bool)
}

// DataStore aggregates the backend operations the feed screen needs: the
// initial dataset, interaction mutations and video updates.
type DataStore interface {
	ListFeed(ctx context.Context) ([]models.FeedEntry, error)
	interactions.Backend
	editing.VideoUpdater
}

// SourceWarmer prepares upcoming playback sources around the settled index so
// scroll-ahead starts without a stall.
type SourceWarmer interface {
	WarmAhead(ctx context.Context, entries []models.FeedEntry, index int)
}
