package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/mathieu-neron/tube301/internal/middleware"
	"github.com/mathieu-neron/tube301/internal/repository"
	"github.com/mathieu-neron/tube301/internal/service"
)

type VideoHandler struct {
	svc *service.VideoService
}

func NewVideoHandler(svc *service.VideoService) *VideoHandler {
	return &VideoHandler{svc: svc}
}

// GetByPath handles GET /api/videos/:videoId
func (h *VideoHandler) GetByPath(c fiber.Ctx) error {
	return h.lookup(c, c.Params("videoId"))
}

// GetByVideoID handles GET /api/videos?videoId=X
func (h *VideoHandler) GetByVideoID(c fiber.Ctx) error {
	return h.lookup(c, fiber.Query[string](c, "videoId"))
}

func (h *VideoHandler) lookup(c fiber.Ctx, raw string) error {
	videoID, msg := middleware.ValidateVideoID(raw)
	if msg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_VIDEO_ID", msg)
	}

	video, err := h.svc.LookupByVideoID(c.Context(), videoID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return middleware.ErrorResponse(c, fiber.StatusNotFound, "NOT_FOUND", "Video not found")
		}
		return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Failed to lookup video")
	}

	return c.JSON(video)
}
