package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/reelfeed/engine/internal/db"
	"github.com/reelfeed/engine/internal/models"
)

// PostgresStore provides PostgreSQL-backed persistence for the feed screen:
// the joined feed dataset, interaction mutations and video updates. Counters
// on videos are maintained by database triggers; this store never writes
// them directly.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgresStore constructs a feed data store backed by PostgreSQL.
func NewPostgresStore(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// ListFeed fetches every video joined with its author summary, newest first.
func (s *PostgresStore) ListFeed(ctx context.Context) ([]models.FeedEntry, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT v.id, v.owner_id, v.title, v.description, v.source_url,
               v.like_count, v.bookmark_count,
               v.geo_address, v.geo_latitude, v.geo_longitude,
               v.created_at,
               u.username, u.avatar_url
        FROM videos v
        JOIN users u ON u.id = v.owner_id
        ORDER BY v.created_at DESC
    `)
	if err != nil {
		return nil, fmt.Errorf("select feed: %w", err)
	}
	defer rows.Close()

	var entries []models.FeedEntry
	for rows.Next() {
		var (
			entry   models.FeedEntry
			address *string
			lat     *float64
			lon     *float64
		)
		if err := rows.Scan(
			&entry.Video.ID, &entry.Video.OwnerID, &entry.Video.Title,
			&entry.Video.Description, &entry.Video.SourceURL,
			&entry.Video.LikeCount, &entry.Video.BookmarkCount,
			&address, &lat, &lon,
			&entry.Video.CreatedAt,
			&entry.Author.Username, &entry.Author.AvatarURL,
		); err != nil {
			return nil, fmt.Errorf("scan feed row: %w", err)
		}
		if address != nil && lat != nil && lon != nil {
			entry.Video.Geotag = &models.Geotag{Address: *address, Latitude: *lat, Longitude: *lon}
		}
		entry.Author.ID = entry.Video.OwnerID
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feed rows: %w", err)
	}

	return entries, nil
}

// ListInteractions returns the subset of videoIDs the user has the given
// interaction on, in a single query.
func (s *PostgresStore) ListInteractions(ctx context.Context, kind models.InteractionKind, userID string, videoIDs []string) (map[string]struct{}, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT video_id
        FROM interactions
        WHERE kind = $1 AND user_id = $2 AND video_id = ANY($3)
    `, string(kind), userID, videoIDs)
	if err != nil {
		return nil, fmt.Errorf("select interactions: %w", err)
	}
	defer rows.Close()

	matched := make(map[string]struct{})
	for rows.Next() {
		var videoID string
		if err := rows.Scan(&videoID); err != nil {
			return nil, fmt.Errorf("scan interaction row: %w", err)
		}
		matched[videoID] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate interaction rows: %w", err)
	}

	return matched, nil
}

// CreateInteraction records a like or bookmark.
func (s *PostgresStore) CreateInteraction(ctx context.Context, kind models.InteractionKind, videoID, userID string) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO interactions (id, kind, video_id, user_id, created_at)
        VALUES ($1, $2, $3, $4, $5)
    `, uuid.NewString(), string(kind), videoID, userID, time.Now().UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("insert interaction: %w", err)
	}

	return nil
}

// DeleteInteraction removes a like or bookmark.
func (s *PostgresStore) DeleteInteraction(ctx context.Context, kind models.InteractionKind, videoID, userID string) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        DELETE FROM interactions
        WHERE kind = $1 AND video_id = $2 AND user_id = $3
    `, string(kind), videoID, userID)
	if err != nil {
		return fmt.Errorf("delete interaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// UpdateVideo persists the editable fields carried by the patch.
func (s *PostgresStore) UpdateVideo(ctx context.Context, videoID string, patch models.VideoPatch) error {
	assignments := make([]string, 0, 5)
	args := make([]interface{}, 0, 6)
	args = append(args, videoID)

	appendAssignment := func(column string, value interface{}) {
		args = append(args, value)
		assignments = append(assignments, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Title != nil {
		appendAssignment("title", *patch.Title)
	}
	if patch.Description != nil {
		appendAssignment("description", *patch.Description)
	}
	if patch.ClearGeotag {
		assignments = append(assignments, "geo_address = NULL", "geo_latitude = NULL", "geo_longitude = NULL")
	} else if patch.Geotag != nil {
		appendAssignment("geo_address", patch.Geotag.Address)
		appendAssignment("geo_latitude", patch.Geotag.Latitude)
		appendAssignment("geo_longitude", patch.Geotag.Longitude)
	}

	if len(assignments) == 0 {
		return nil
	}

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	query := fmt.Sprintf("UPDATE videos SET %s WHERE id = $1", strings.Join(assignments, ", "))
	tag, err := conn.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update video: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// GetVideo fetches a single video row.
func (s *PostgresStore) GetVideo(ctx context.Context, videoID string) (models.Video, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return models.Video{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, owner_id, title, description, source_url,
               like_count, bookmark_count,
               geo_address, geo_latitude, geo_longitude, created_at
        FROM videos
        WHERE id = $1
    `, videoID)

	var (
		video   models.Video
		address *string
		lat     *float64
		lon     *float64
	)
	if err := row.Scan(
		&video.ID, &video.OwnerID, &video.Title, &video.Description, &video.SourceURL,
		&video.LikeCount, &video.BookmarkCount,
		&address, &lat, &lon, &video.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Video{}, ErrNotFound
		}
		return models.Video{}, fmt.Errorf("select video: %w", err)
	}
	if address != nil && lat != nil && lon != nil {
		video.Geotag = &models.Geotag{Address: *address, Latitude: *lat, Longitude: *lon}
	}

	return video, nil
}
