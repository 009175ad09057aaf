package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"

	"github.com/mathieu-neron/tube301/internal/config"
	"github.com/mathieu-neron/tube301/internal/db"
	"github.com/mathieu-neron/tube301/internal/handler"
	"github.com/mathieu-neron/tube301/internal/metrics"
	"github.com/mathieu-neron/tube301/internal/middleware"
	"github.com/mathieu-neron/tube301/internal/model"
	"github.com/mathieu-neron/tube301/internal/prediction"
	"github.com/mathieu-neron/tube301/internal/repository"
	"github.com/mathieu-neron/tube301/internal/router"
	"github.com/mathieu-neron/tube301/internal/scrape"
	"github.com/mathieu-neron/tube301/internal/service"
	"github.com/mathieu-neron/tube301/internal/youtube"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logger is not configured yet; fall back to a bare one.
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Fatal().Err(err).Msg("invalid configuration")
	}

	middleware.InitLogger(cfg.LogLevel, "tube301")
	zerolog.DefaultContextLogger = &middleware.Logger
	logger := middleware.Logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx)

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("failed to apply schema")
	}
	metrics.Register(pool)

	rdb, err := service.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	cache := service.NewCacheService(rdb, logger)
	defer cache.Close()
	blacklist := service.NewBlacklistService(rdb)

	yt, err := youtube.New(ctx, cfg.YouTube.APIKey, cfg.YouTube.RegionCode, cfg.YouTube.RelevanceLanguage)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create youtube client")
	}

	videoRepo := repository.NewVideoRepo(pool)
	rankingRepo := repository.NewRankingRepo(pool)

	rankingDenylist, err := service.NewDenylist(cfg.Ranking.TitleDenylist)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid ranking denylist")
	}

	rankings := service.NewRankingCache()
	warmRankings(ctx, rankings, rankingRepo, cache)

	discovery := service.NewDiscoveryService(yt, service.NewEnricher(yt, cfg.YouTube.Concurrency), blacklist, videoRepo, cfg.YouTube.Concurrency)
	lifecycle := service.NewLifecycleService(videoRepo, service.NewEnricher(yt, cfg.YouTube.UpdateConcurrency), cache, service.LifecycleOptions{
		BatchSize:               cfg.Lifecycle.BatchSize,
		Concurrency:             cfg.YouTube.UpdateConcurrency,
		MinArchiveAge:           cfg.Lifecycle.MinArchiveAge,
		MaxArchiveAge:           cfg.Lifecycle.MaxArchiveAge,
		ArchiveOnViewsOverLikes: cfg.Lifecycle.ArchiveOnViewsOverLikes,
		ProgressInterval:        cfg.Lifecycle.ProgressInterval,
	})

	var publisher service.RankingPublisher
	if cfg.Ranking.PublishToRedis {
		publisher = cache
	}
	ranking := service.NewRankingService(rankingStore{videoRepo, rankingRepo}, rankings, publisher, service.Eligibility{
		MinSamples: cfg.Ranking.MinSamples,
		MinLikes:   cfg.Ranking.MinLikes,
		Denylist:   rankingDenylist,
	}, cfg.Ranking.CategoryPenalties)

	updateStages := []service.NamedJob{{Name: "refresh", Run: func(ctx context.Context) error {
		_, err := lifecycle.UpdateActive(ctx)
		return err
	}}}
	if cfg.Prediction.Enabled {
		predictionDenylist, err := service.NewDenylist(cfg.Prediction.TitleDenylist)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid prediction denylist")
		}
		predictor := service.NewPredictionService(videoRepo, prediction.New(cfg.Prediction.URL, cfg.Prediction.Timeout), service.Eligibility{
			MinSamples: cfg.Prediction.MinSamples,
			MinLikes:   cfg.Prediction.MinLikes,
			Denylist:   predictionDenylist,
		}, cfg.Prediction.Concurrency)
		updateStages = append(updateStages, service.NamedJob{Name: "predict", Run: func(ctx context.Context) error {
			_, err := predictor.Run(ctx)
			return err
		}})
	}
	updateStages = append(updateStages, service.NamedJob{Name: "rank", Run: func(ctx context.Context) error {
		_, err := ranking.Run(ctx)
		return err
	}})

	workers := []*service.JobWorker{
		service.NewJobWorker("discover-youtube", cfg.YouTube.SearchCooldown, func(ctx context.Context) error {
			_, err := discovery.RunPaginated(ctx, service.SearchOptions{
				Lookback: cfg.YouTube.Lookback,
				MaxPages: cfg.YouTube.MaxPages,
			})
			return err
		}, logger),
	}
	for _, agg := range []struct {
		name   string
		source model.Source
		cfg    config.AggregatorConfig
	}{
		{"discover-reddit", model.SourceReddit, cfg.Reddit},
		{"discover-digg", model.SourceDigg, cfg.Digg},
	} {
		if !agg.cfg.Enabled {
			logger.Info().Str("job", agg.name).Msg("aggregator disabled")
			continue
		}
		links := scrape.New(scrape.Options{
			Pages:       agg.cfg.Pages,
			MaxPages:    agg.cfg.MaxPages,
			Concurrency: agg.cfg.Concurrency,
		})
		source := agg.source
		workers = append(workers, service.NewJobWorker(agg.name, agg.cfg.SearchCooldown, func(ctx context.Context) error {
			_, err := discovery.RunSingleShot(ctx, source, links)
			return err
		}, logger))
	}
	workers = append(workers,
		service.NewJobWorker("update", cfg.UpdateCooldown, service.Chain(updateStages...), logger),
		service.NewJobWorker("archive", cfg.ArchiveCooldown, func(ctx context.Context) error {
			_, err := lifecycle.ArchiveInactive(ctx)
			return err
		}, logger),
	)

	scheduler := service.NewScheduler(workers...)
	scheduler.Start(ctx)
	go service.NewRankingListener(pool, rankingRepo, rankings).Start(ctx)

	videoSvc := service.NewVideoService(videoRepo, cache, rankings, blacklist)

	app := fiber.New(fiber.Config{
		AppName:      "tube301 API",
		ServerHeader: "tube301",
	})
	router.Setup(app, &router.Handlers{
		Video:   handler.NewVideoHandler(videoSvc),
		Ranking: handler.NewRankingHandler(rankings),
		Stats:   handler.NewStatsHandler(videoSvc),
		Jobs:    handler.NewJobsHandler(scheduler),
		Health:  handler.NewHealthHandler(pool, rdb, rankings),
	}, cfg.CORSOrigins)

	go func() {
		<-ctx.Done()
		logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("http shutdown failed")
		}
	}()

	logger.Info().Str("port", cfg.Port).Str("env", cfg.Environment).Msg("tube301 starting")
	if err := app.Listen(":" + cfg.Port); err != nil {
		logger.Error().Err(err).Msg("http server stopped")
	}

	stop()
	scheduler.Wait()
	logger.Info().Msg("stopped")
}

// rankingStore joins the record reads and the ranking writes of the ranking
// engine.
type rankingStore struct {
	*repository.VideoRepo
	*repository.RankingRepo
}

// warmRankings seeds the in-memory ranking from the last stored pass, falling
// back to the Redis snapshot. Failures leave the cache empty until the first
// update run.
func warmRankings(ctx context.Context, rankings *service.RankingCache, repo *repository.RankingRepo, cache *service.CacheService) {
	log := zerolog.Ctx(ctx)

	set, err := repo.LoadRankings(ctx)
	if err == nil && len(set.Videos) > 0 {
		rankings.Swap(set)
		log.Info().Int("videos", len(set.Videos)).Msg("rankings loaded from database")
		return
	}
	if err != nil {
		log.Warn().Err(err).Msg("load rankings failed")
	}

	set, err = cache.GetRankings(ctx)
	switch {
	case err != nil:
		log.Warn().Err(err).Msg("load rankings from redis failed")
	case set != nil && len(set.Videos) > 0:
		rankings.Swap(set)
		log.Info().Int("videos", len(set.Videos)).Msg("rankings loaded from redis")
	default:
		log.Info().Msg("no stored rankings")
	}
}
