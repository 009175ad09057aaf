package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is applied on every start. Every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS videos (
		video_id                 VARCHAR(16) PRIMARY KEY,
		channel_id               VARCHAR(64) NOT NULL DEFAULT '',
		channel_title            TEXT NOT NULL DEFAULT '',
		channel_subscriber_count BIGINT NOT NULL DEFAULT 0,
		category_id              VARCHAR(16) NOT NULL DEFAULT '',
		published_at             TIMESTAMPTZ,
		title                    TEXT NOT NULL DEFAULT '',
		description              TEXT NOT NULL DEFAULT '',
		source                   VARCHAR(16) NOT NULL,
		thumbnails               JSONB NOT NULL DEFAULT '{}'::jsonb,
		view_count               BIGINT NOT NULL DEFAULT 0,
		like_count               BIGINT NOT NULL DEFAULT 0,
		dislike_count            BIGINT NOT NULL DEFAULT 0,
		favorite_count           BIGINT NOT NULL DEFAULT 0,
		comment_count            BIGINT NOT NULL DEFAULT 0,
		active                   BOOLEAN NOT NULL DEFAULT TRUE,
		archived                 BOOLEAN NOT NULL DEFAULT FALSE,
		was_removed              BOOLEAN NOT NULL DEFAULT FALSE,
		predicted_view_count     BIGINT,
		created_at               TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at               TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_videos_active_views ON videos (active, view_count)`,
	`CREATE INDEX IF NOT EXISTS idx_videos_archive ON videos (active, archived, created_at)`,
	`CREATE TABLE IF NOT EXISTS video_history (
		id             BIGSERIAL PRIMARY KEY,
		video_id       VARCHAR(16) NOT NULL REFERENCES videos (video_id) ON DELETE CASCADE,
		captured_at    TIMESTAMPTZ NOT NULL,
		view_count     BIGINT NOT NULL DEFAULT 0,
		like_count     BIGINT NOT NULL DEFAULT 0,
		dislike_count  BIGINT NOT NULL DEFAULT 0,
		favorite_count BIGINT NOT NULL DEFAULT 0,
		comment_count  BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_video_history_video ON video_history (video_id, captured_at)`,
	`CREATE TABLE IF NOT EXISTS ranked_videos (
		rank                     INT NOT NULL,
		video_id                 VARCHAR(16) PRIMARY KEY,
		url                      TEXT NOT NULL,
		title                    TEXT NOT NULL DEFAULT '',
		description              TEXT NOT NULL DEFAULT '',
		source                   VARCHAR(16) NOT NULL,
		channel_subscriber_count BIGINT NOT NULL DEFAULT 0,
		published_at             TIMESTAMPTZ,
		view_count               BIGINT NOT NULL DEFAULT 0,
		like_count               BIGINT NOT NULL DEFAULT 0,
		dislike_count            BIGINT NOT NULL DEFAULT 0,
		favorite_count           BIGINT NOT NULL DEFAULT 0,
		comment_count            BIGINT NOT NULL DEFAULT 0,
		thumbnails               JSONB NOT NULL DEFAULT '{}'::jsonb,
		score                    DOUBLE PRECISION NOT NULL,
		scaling_factor           DOUBLE PRECISION NOT NULL,
		r_lin                    DOUBLE PRECISION NOT NULL DEFAULT 0,
		r_exp                    DOUBLE PRECISION NOT NULL DEFAULT 0,
		r_diff                   DOUBLE PRECISION NOT NULL DEFAULT 0,
		exp_selected             BOOLEAN NOT NULL DEFAULT FALSE,
		growth_rate              DOUBLE PRECISION NOT NULL DEFAULT 0,
		generated_at             TIMESTAMPTZ NOT NULL
	)`,
}

// Migrate creates the tables the crawler needs if they do not exist yet.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate statement %d: %w", i, err)
		}
	}
	return nil
}
