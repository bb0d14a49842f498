package validation

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Config bounds request shapes at the HTTP edge. The analysis engine performs
// its own authoritative validation; this middleware only rejects obviously
// broken or oversized requests before they reach it.
type Config struct {
	MaxSubjects      int
	MaxVersionTagLen int
	Logger           *zap.Logger
}

func Middleware(cfg Config) fiber.Handler {
	if cfg.MaxSubjects == 0 {
		cfg.MaxSubjects = 100
	}
	if cfg.MaxVersionTagLen == 0 {
		cfg.MaxVersionTagLen = 128
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return func(c *fiber.Ctx) error {
		if c.Method() != fiber.MethodPost || !strings.Contains(c.Path(), "/api/v1/analysis") {
			return c.Next()
		}

		var req struct {
			StartTime  int64    `json:"start_time"`
			EndTime    int64    `json:"end_time"`
			SubjectIDs []string `json:"subject_ids"`
			VersionTag string   `json:"version_tag"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"category": "validation",
				"error":    "Invalid JSON format",
			})
		}

		if req.StartTime <= 0 || req.EndTime <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"category": "validation",
				"error":    "start_time and end_time are required",
			})
		}

		if len(req.SubjectIDs) > cfg.MaxSubjects {
			cfg.Logger.Warn("Request with too many subjects rejected",
				zap.String("ip", c.IP()),
				zap.Int("subjects", len(req.SubjectIDs)),
			)
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"category": "validation",
				"error":    "Too many subject ids",
			})
		}

		if len(req.VersionTag) > cfg.MaxVersionTagLen {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"category": "validation",
				"error":    "version_tag exceeds maximum length",
			})
		}

		return c.Next()
	}
}
