package middleware

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v3"
)

// Field length limits matching database schema constraints.
const (
	MaxVideoIDLen = 16 // videos.video_id VARCHAR(16)
	MaxJobNameLen = 32

	DefaultRankingLimit = 25
	MaxRankingLimit     = 100
)

var (
	// videoIDRe matches YouTube video IDs: alphanumeric, dash, underscore.
	videoIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	jobNameRe = regexp.MustCompile(`^[a-z0-9-]+$`)
)

// ErrorResponse is a helper that returns a standard API error response.
func ErrorResponse(c fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": message,
		},
	})
}

// ValidateVideoID checks that a video ID is well-formed and within DB limits.
func ValidateVideoID(id string) (string, string) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", "videoId is required"
	}
	if len(id) > MaxVideoIDLen {
		return "", "videoId must be at most 16 characters"
	}
	if !videoIDRe.MatchString(id) {
		return "", "videoId contains invalid characters"
	}
	return id, ""
}

// ValidateLimit parses the limit query parameter. Empty means the default.
func ValidateLimit(raw string) (int, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultRankingLimit, ""
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, "limit must be an integer"
	}
	if n < 1 || n > MaxRankingLimit {
		return 0, "limit must be between 1 and 100"
	}
	return n, ""
}

// ValidateJobName checks a job name path segment.
func ValidateJobName(name string) (string, string) {
	name = strings.TrimSpace(strings.ToLower(name))
	if name == "" || len(name) > MaxJobNameLen || !jobNameRe.MatchString(name) {
		return "", "invalid job name"
	}
	return name, ""
}
