package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/mathieu-neron/tube301/internal/middleware"
	"github.com/mathieu-neron/tube301/internal/service"
)

type RankingHandler struct {
	cache *service.RankingCache
}

func NewRankingHandler(cache *service.RankingCache) *RankingHandler {
	return &RankingHandler{cache: cache}
}

// List handles GET /api/rankings?limit=N
func (h *RankingHandler) List(c fiber.Ctx) error {
	limit, msg := middleware.ValidateLimit(fiber.Query[string](c, "limit"))
	if msg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_LIMIT", msg)
	}

	set := h.cache.Current()
	return c.JSON(fiber.Map{
		"generatedAt": set.GeneratedAt,
		"eligible":    set.Eligible,
		"videos":      h.cache.Top(limit),
	})
}
