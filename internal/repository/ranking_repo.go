package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mathieu-neron/tube301/internal/model"
)

var rankedColumns = []string{
	"rank", "video_id", "url", "title", "description", "source", "channel_subscriber_count", "published_at",
	"view_count", "like_count", "dislike_count", "favorite_count", "comment_count", "thumbnails",
	"score", "scaling_factor", "r_lin", "r_exp", "r_diff", "exp_selected", "growth_rate", "generated_at",
}

// rankingsChannel must match service.RankingsChannel.
const rankingsChannel = "rankings_changed"

type RankingRepo struct {
	pool *pgxpool.Pool
}

func NewRankingRepo(pool *pgxpool.Pool) *RankingRepo {
	return &RankingRepo{pool: pool}
}

// ReplaceRankings swaps the stored ranked set for set in one transaction, so
// readers see either the old set or the new one.
func (r *RankingRepo) ReplaceRankings(ctx context.Context, set *model.RankingSet) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM ranked_videos`); err != nil {
		return fmt.Errorf("clear rankings: %w", err)
	}

	rows := make([][]any, 0, len(set.Videos))
	for _, v := range set.Videos {
		rows = append(rows, []any{
			v.Rank, v.VideoID, v.URL, v.Title, v.Description, string(v.Source), v.ChannelSubscriberCount, v.PublishedAt,
			v.Statistics.ViewCount, v.Statistics.LikeCount, v.Statistics.DislikeCount,
			v.Statistics.FavoriteCount, v.Statistics.CommentCount, v.Thumbnails,
			v.Score, v.ScalingFactor, v.RLin, v.RExp, v.RDiff, v.ExpSelected, v.GrowthRate, set.GeneratedAt,
		})
	}
	if len(rows) > 0 {
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"ranked_videos"}, rankedColumns, pgx.CopyFromRows(rows)); err != nil {
			return fmt.Errorf("copy rankings: %w", err)
		}
	}

	// Delivered to listeners on commit.
	if _, err := tx.Exec(ctx, `SELECT pg_notify($1, $2)`, rankingsChannel, set.GeneratedAt.UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("notify rankings: %w", err)
	}

	return tx.Commit(ctx)
}

// LoadRankings returns the last persisted ranked set, ordered by rank. An
// empty table yields an empty set.
func (r *RankingRepo) LoadRankings(ctx context.Context) (*model.RankingSet, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT rank, video_id, url, title, description, source, channel_subscriber_count, published_at,
		       view_count, like_count, dislike_count, favorite_count, comment_count, thumbnails,
		       score, scaling_factor, r_lin, r_exp, r_diff, exp_selected, growth_rate, generated_at
		FROM ranked_videos
		ORDER BY rank`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	set := &model.RankingSet{}
	for rows.Next() {
		var (
			v           model.RankedVideo
			source      string
			publishedAt *time.Time
			generatedAt time.Time
		)
		err := rows.Scan(
			&v.Rank, &v.VideoID, &v.URL, &v.Title, &v.Description, &source, &v.ChannelSubscriberCount, &publishedAt,
			&v.Statistics.ViewCount, &v.Statistics.LikeCount, &v.Statistics.DislikeCount,
			&v.Statistics.FavoriteCount, &v.Statistics.CommentCount, &v.Thumbnails,
			&v.Score, &v.ScalingFactor, &v.RLin, &v.RExp, &v.RDiff, &v.ExpSelected, &v.GrowthRate, &generatedAt,
		)
		if err != nil {
			return nil, err
		}
		v.Source = model.Source(source)
		if publishedAt != nil {
			v.PublishedAt = *publishedAt
		}
		set.GeneratedAt = generatedAt
		set.Videos = append(set.Videos, v)
	}
	set.Eligible = len(set.Videos)
	return set, rows.Err()
}
