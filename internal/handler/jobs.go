package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/mathieu-neron/tube301/internal/middleware"
	"github.com/mathieu-neron/tube301/internal/service"
)

// JobStates exposes background worker state.
type JobStates interface {
	Snapshot() []service.JobState
	Job(name string) (service.JobState, bool)
}

type JobsHandler struct {
	jobs JobStates
}

func NewJobsHandler(jobs JobStates) *JobsHandler {
	return &JobsHandler{jobs: jobs}
}

// List handles GET /api/jobs
func (h *JobsHandler) List(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"jobs": h.jobs.Snapshot()})
}

// Get handles GET /api/jobs/:name
func (h *JobsHandler) Get(c fiber.Ctx) error {
	name, msg := middleware.ValidateJobName(c.Params("name"))
	if msg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_JOB", msg)
	}
	state, ok := h.jobs.Job(name)
	if !ok {
		return middleware.ErrorResponse(c, fiber.StatusNotFound, "NOT_FOUND", "Job not found")
	}
	return c.JSON(state)
}
