package service

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/mathieu-neron/tube301/internal/model"
)

// RankingsChannel is the PostgreSQL NOTIFY channel signalled when a ranking
// pass commits. The payload is the pass's generation time.
const RankingsChannel = "rankings_changed"

// RankingLoader reads the last committed ranked set.
type RankingLoader interface {
	LoadRankings(ctx context.Context) (*model.RankingSet, error)
}

// RankingListener keeps the in-memory ranking of an instance in step with
// passes committed by other instances. Notifications arriving within one
// batch window trigger a single reload.
type RankingListener struct {
	pool    *pgxpool.Pool
	loader  RankingLoader
	cache   *RankingCache
	batchMs time.Duration

	pending chan struct{}
}

func NewRankingListener(pool *pgxpool.Pool, loader RankingLoader, cache *RankingCache) *RankingListener {
	return &RankingListener{
		pool:    pool,
		loader:  loader,
		cache:   cache,
		batchMs: 2 * time.Second,
		pending: make(chan struct{}, 1),
	}
}

// Start listens until ctx is cancelled, reconnecting after errors.
func (l *RankingListener) Start(ctx context.Context) {
	log := zerolog.Ctx(ctx).With().Str("component", "ranking-listener").Logger()
	log.Info().Dur("batch_window", l.batchMs).Msg("ranking listener starting")

	go l.flushLoop(log.WithContext(ctx))

	for {
		if err := l.listenLoop(ctx, log); err != nil {
			if ctx.Err() != nil {
				log.Info().Msg("ranking listener stopping (context cancelled)")
				return
			}
			log.Warn().Err(err).Msg("listen error, reconnecting in 5s")
			select {
			case <-time.After(5 * time.Second):
			case <-ctx.Done():
				log.Info().Msg("ranking listener stopping (context cancelled)")
				return
			}
		}
	}
}

// listenLoop acquires a dedicated connection and LISTENs on RankingsChannel.
func (l *RankingListener) listenLoop(ctx context.Context, log zerolog.Logger) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+RankingsChannel); err != nil {
		return err
	}
	log.Debug().Msg("listening for ranking changes")

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		if l.isCurrent(n.Payload) {
			continue
		}
		l.notify()
	}
}

// isCurrent reports whether payload names the set this instance already
// serves. That is usually the case for passes this instance ran itself.
func (l *RankingListener) isCurrent(payload string) bool {
	generated, err := time.Parse(time.RFC3339Nano, payload)
	if err != nil {
		return false
	}
	return l.cache.Current().GeneratedAt.Equal(generated)
}

func (l *RankingListener) notify() {
	select {
	case l.pending <- struct{}{}:
	default:
	}
}

func (l *RankingListener) flushLoop(ctx context.Context) {
	ticker := time.NewTicker(l.batchMs)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.flush(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// flush reloads the ranked set if a notification is pending.
func (l *RankingListener) flush(ctx context.Context) {
	select {
	case <-l.pending:
	default:
		return
	}

	set, err := l.loader.LoadRankings(ctx)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("reload rankings failed")
		return
	}
	l.cache.Swap(set)
	zerolog.Ctx(ctx).Info().Int("videos", len(set.Videos)).Time("generated_at", set.GeneratedAt).Msg("rankings reloaded")
}
