package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/reelfeed/engine/internal/config"
	"github.com/reelfeed/engine/internal/db"
)

// Run bootstraps the ReelFeed engine harness.
func Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("expected command: check")
	}

	switch args[0] {
	case "check":
		return check(ctx)
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

// check runs the feed engine headlessly against the configured backend: load
// the dataset, seed interaction state, settle on the first page, tear down.
// It exercises the same wiring an embedding UI would use.
func check(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	deps, err := buildDependencies(ctx, pool, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	ctrl := deps.Controller
	defer ctrl.Close()

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := ctrl.Load(signalCtx); err != nil {
		return err
	}

	entries := ctrl.Entries()
	logger.Info("feed check complete",
		slog.Int("entries", len(entries)),
		slog.Int("active_index", ctrl.Playback().ActiveIndex()),
	)
	for i, entry := range entries {
		if i >= 5 {
			break
		}
		logger.Info("feed entry",
			slog.Int("index", i),
			slog.String("video_id", entry.Video.ID),
			slog.String("author", entry.Author.Username),
			slog.Int("likes", entry.Video.LikeCount),
		)
	}

	return nil
}

func logLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
