package router

import (
	"github.com/gofiber/fiber/v3"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/mathieu-neron/tube301/internal/handler"
	"github.com/mathieu-neron/tube301/internal/middleware"
)

// Handlers holds all handler instances needed by the router.
type Handlers struct {
	Video   *handler.VideoHandler
	Ranking *handler.RankingHandler
	Stats   *handler.StatsHandler
	Jobs    *handler.JobsHandler
	Health  *handler.HealthHandler
}

// Setup configures the middleware stack and all API routes on the given Fiber app.
func Setup(app *fiber.App, h *Handlers, corsOrigins string) {
	// Middleware stack (order matters)
	app.Use(recoverer.New())
	app.Use(handler.MetricsMiddleware())
	app.Use(middleware.NewRequestLogger())
	app.Use(middleware.NewCORS(corsOrigins))

	// Probes and metrics sit outside the rate-limited API group
	app.Get("/health/live", h.Health.Live)
	app.Get("/health/ready", h.Health.Ready)
	app.Get("/metrics", handler.MetricsHandler())

	read := middleware.NewReadRateLimiter()
	stats := middleware.NewStatsRateLimiter()
	jobs := middleware.NewJobsRateLimiter()

	api := app.Group("/api")

	// Ranking routes
	api.Get("/rankings", read.Handler(), h.Ranking.List)

	// Video routes
	api.Get("/videos/:videoId", read.Handler(), h.Video.GetByPath)
	api.Get("/videos", read.Handler(), h.Video.GetByVideoID)

	// Stats routes
	api.Get("/stats", stats.Handler(), h.Stats.GetStats)

	// Job routes
	api.Get("/jobs", jobs.Handler(), h.Jobs.List)
	api.Get("/jobs/:name", jobs.Handler(), h.Jobs.Get)
}
