package app

import (
	"context"
	"log/slog"

	"github.com/reelfeed/engine/internal/auth"
	"github.com/reelfeed/engine/internal/config"
	"github.com/reelfeed/engine/internal/controller"
	"github.com/reelfeed/engine/internal/db"
	"github.com/reelfeed/engine/internal/geocode"
	"github.com/reelfeed/engine/internal/media"
	"github.com/reelfeed/engine/internal/repositories"
)

// Dependencies holds the wired engine and the collaborators that need
// explicit teardown.
type Dependencies struct {
	Controller *controller.Controller
	prefetcher *media.Prefetcher
}

// Close releases background collaborators.
func (d *Dependencies) Close() {
	if d.prefetcher != nil {
		d.prefetcher.Close()
	}
}

// buildDependencies wires concrete collaborators into a feed controller.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config, logger *slog.Logger) (*Dependencies, error) {
	store := repositories.NewPostgresStore(pool)
	identity := auth.NewStaticProvider(cfg.UserID)

	geocoder := geocode.NewCachingGeocoder(
		geocode.NewClient(cfg.GeocoderBaseURL, cfg.GeocoderRPS),
		cfg.GeocoderCacheTTL,
	)

	opts := controller.Options{
		Logger:       logger,
		SettleDelay:  cfg.SettleDelay,
		RenderWindow: cfg.RenderWindow,
		Geocoder:     geocoder,
	}

	deps := &Dependencies{}
	if cfg.ObjectStore.Bucket != "" {
		resolver, err := media.NewSourceResolver(ctx, cfg.ObjectStore)
		if err != nil {
			return nil, err
		}
		deps.prefetcher = media.NewPrefetcher(resolver, media.PrefetcherConfig{
			Ahead:     cfg.PrefetchAhead,
			HeadBytes: cfg.PrefetchBytes,
			CacheDir:  cfg.ObjectStore.CacheDir,
		}, logger)
		opts.Warmer = deps.prefetcher
	}

	deps.Controller = controller.New(identity, store, opts)
	return deps, nil
}
