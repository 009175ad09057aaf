package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mathieu-neron/tube301/internal/model"
)

var (
	// ErrDuplicateVideo is returned by Create when the id is already stored.
	ErrDuplicateVideo = errors.New("video already exists")
	ErrNotFound       = errors.New("video not found")
)

const uniqueViolation = "23505"

const videoColumns = `video_id, channel_id, channel_title, channel_subscriber_count, category_id,
	published_at, title, description, source, thumbnails,
	view_count, like_count, dislike_count, favorite_count, comment_count,
	active, archived, was_removed, predicted_view_count, created_at, updated_at`

type VideoRepo struct {
	pool *pgxpool.Pool
}

func NewVideoRepo(pool *pgxpool.Pool) *VideoRepo {
	return &VideoRepo{pool: pool}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVideo(row rowScanner) (model.Video, error) {
	var (
		v           model.Video
		publishedAt *time.Time
		source      string
	)
	err := row.Scan(
		&v.VideoID, &v.ChannelID, &v.ChannelTitle, &v.ChannelSubscriberCount, &v.CategoryID,
		&publishedAt, &v.Title, &v.Description, &source, &v.Thumbnails,
		&v.Statistics.ViewCount, &v.Statistics.LikeCount, &v.Statistics.DislikeCount,
		&v.Statistics.FavoriteCount, &v.Statistics.CommentCount,
		&v.Active, &v.Archived, &v.WasRemoved, &v.PredictedViewCount, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return v, err
	}
	if publishedAt != nil {
		v.PublishedAt = *publishedAt
	}
	v.Source = model.Source(source)
	return v, nil
}

func collectVideos(rows pgx.Rows) ([]model.Video, error) {
	defer rows.Close()
	var videos []model.Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, v)
	}
	return videos, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// Exists reports whether a video with the given id is already stored.
func (r *VideoRepo) Exists(ctx context.Context, videoID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM videos WHERE video_id = $1)`, videoID).Scan(&exists)
	return exists, err
}

// Create inserts a new video together with its seeded history. A concurrent
// insert of the same id yields ErrDuplicateVideo.
func (r *VideoRepo) Create(ctx context.Context, v *model.Video) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO videos (`+videoColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`,
		v.VideoID, v.ChannelID, v.ChannelTitle, v.ChannelSubscriberCount, v.CategoryID,
		v.PublishedAt, v.Title, v.Description, string(v.Source), v.Thumbnails,
		v.Statistics.ViewCount, v.Statistics.LikeCount, v.Statistics.DislikeCount,
		v.Statistics.FavoriteCount, v.Statistics.CommentCount,
		v.Active, v.Archived, v.WasRemoved, v.PredictedViewCount, v.CreatedAt, v.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateVideo
		}
		return fmt.Errorf("insert video: %w", err)
	}

	if len(v.HistoricalStatistics) > 0 {
		batch := &pgx.Batch{}
		for _, h := range v.HistoricalStatistics {
			queueHistory(batch, v.VideoID, h)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert history: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func queueHistory(batch *pgx.Batch, videoID string, h model.HistoricalSample) {
	batch.Queue(`
		INSERT INTO video_history (video_id, captured_at, view_count, like_count, dislike_count, favorite_count, comment_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		videoID, h.Timestamp, h.ViewCount, h.LikeCount, h.DislikeCount, h.FavoriteCount, h.CommentCount)
}

// FindByVideoID returns one video with its full history.
func (r *VideoRepo) FindByVideoID(ctx context.Context, videoID string) (*model.Video, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+videoColumns+` FROM videos WHERE video_id = $1`, videoID)
	v, err := scanVideo(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	history, err := r.loadHistory(ctx, []string{videoID})
	if err != nil {
		return nil, err
	}
	v.HistoricalStatistics = history[videoID]
	return &v, nil
}

// FindActiveOnTarget returns active videos still showing exactly target views.
func (r *VideoRepo) FindActiveOnTarget(ctx context.Context, target int64) ([]model.Video, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+videoColumns+` FROM videos
		WHERE active AND view_count = $1
		ORDER BY created_at`, target)
	if err != nil {
		return nil, err
	}
	return collectVideos(rows)
}

// FindArchiveCandidates returns inactive, unarchived videos created at or
// before the cutoff.
func (r *VideoRepo) FindArchiveCandidates(ctx context.Context, createdBefore time.Time) ([]model.Video, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+videoColumns+` FROM videos
		WHERE NOT active AND NOT archived AND created_at <= $1
		ORDER BY created_at`, createdBefore)
	if err != nil {
		return nil, err
	}
	return collectVideos(rows)
}

// ApplyUpdate writes one refresh outcome. The statistics update and the
// history append land in the same transaction.
func (r *VideoRepo) ApplyUpdate(ctx context.Context, u model.VideoUpdate) error {
	var view, like, dislike, favorite, comment *int64
	if s := u.Statistics; s != nil {
		view, like, dislike, favorite, comment = &s.ViewCount, &s.LikeCount, &s.DislikeCount, &s.FavoriteCount, &s.CommentCount
	}

	batch := &pgx.Batch{}
	batch.Queue(`
		UPDATE videos SET
			view_count     = COALESCE($2, view_count),
			like_count     = COALESCE($3, like_count),
			dislike_count  = COALESCE($4, dislike_count),
			favorite_count = COALESCE($5, favorite_count),
			comment_count  = COALESCE($6, comment_count),
			active         = active AND NOT $7::boolean,
			archived       = archived OR $8::boolean,
			was_removed    = was_removed OR $9::boolean,
			updated_at     = $10
		WHERE video_id = $1`,
		u.VideoID, view, like, dislike, favorite, comment, u.Deactivate, u.Archive, u.Removed, u.UpdatedAt)
	if u.Sample != nil {
		queueHistory(batch, u.VideoID, *u.Sample)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("update video %s: %w", u.VideoID, err)
	}
	return tx.Commit(ctx)
}

// DeactivateOffTarget marks every active video whose view count is no longer
// exactly target as inactive and returns how many rows changed.
func (r *VideoRepo) DeactivateOffTarget(ctx context.Context, target int64) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE videos SET active = false, updated_at = NOW()
		WHERE active AND view_count <> $1`, target)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// FindRankingCandidates returns active, unarchived videos meeting the like and
// history thresholds, with history attached.
func (r *VideoRepo) FindRankingCandidates(ctx context.Context, minSamples int, minLikes int64) ([]model.Video, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+videoColumns+` FROM videos v
		WHERE active AND NOT archived AND like_count >= $1
		  AND (SELECT COUNT(*) FROM video_history h WHERE h.video_id = v.video_id) >= $2`,
		minLikes, minSamples)
	if err != nil {
		return nil, err
	}
	videos, err := collectVideos(rows)
	if err != nil {
		return nil, err
	}
	if len(videos) == 0 {
		return videos, nil
	}

	ids := make([]string, len(videos))
	for i := range videos {
		ids[i] = videos[i].VideoID
	}
	history, err := r.loadHistory(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range videos {
		videos[i].HistoricalStatistics = history[videos[i].VideoID]
	}
	return videos, nil
}

// FindPredictionCandidates returns active videos without a predicted view
// count that meet the like and history thresholds.
func (r *VideoRepo) FindPredictionCandidates(ctx context.Context, minSamples int, minLikes int64) ([]model.Video, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+videoColumns+` FROM videos v
		WHERE active AND predicted_view_count IS NULL AND like_count >= $1
		  AND (SELECT COUNT(*) FROM video_history h WHERE h.video_id = v.video_id) >= $2`,
		minLikes, minSamples)
	if err != nil {
		return nil, err
	}
	return collectVideos(rows)
}

func (r *VideoRepo) SetPredictedViewCount(ctx context.Context, videoID string, predicted int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE videos SET predicted_view_count = $2, updated_at = NOW() WHERE video_id = $1`,
		videoID, predicted)
	return err
}

func (r *VideoRepo) loadHistory(ctx context.Context, ids []string) (map[string][]model.HistoricalSample, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT video_id, captured_at, view_count, like_count, dislike_count, favorite_count, comment_count
		FROM video_history
		WHERE video_id = ANY($1)
		ORDER BY video_id, captured_at, id`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := make(map[string][]model.HistoricalSample, len(ids))
	for rows.Next() {
		var (
			id string
			h  model.HistoricalSample
		)
		if err := rows.Scan(&id, &h.Timestamp, &h.ViewCount, &h.LikeCount,
			&h.DislikeCount, &h.FavoriteCount, &h.CommentCount); err != nil {
			return nil, err
		}
		history[id] = append(history[id], h)
	}
	return history, rows.Err()
}

// Stats returns global record counts.
func (r *VideoRepo) Stats(ctx context.Context) (*model.StatsResponse, error) {
	var s model.StatsResponse
	err := r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE active),
			COUNT(*) FILTER (WHERE archived),
			COUNT(*) FILTER (WHERE was_removed)
		FROM videos`).Scan(&s.TotalVideos, &s.ActiveVideos, &s.ArchivedVideos, &s.RemovedVideos)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
