package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/logsight/backend/internal/analysis"
	"github.com/logsight/backend/pkg/logger"
)

type AnalysisHandler struct {
	engine *analysis.Engine
}

func NewAnalysisHandler(engine *analysis.Engine) *AnalysisHandler {
	return &AnalysisHandler{
		engine: engine,
	}
}

func (h *AnalysisHandler) HandleAnalysis(c *fiber.Ctx) error {
	var req analysis.Request
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse analysis request", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"category": analysis.OutcomeValidation,
			"error":    "Invalid request body",
		})
	}

	result, err := h.engine.Run(c.Context(), req)
	if err != nil {
		category := analysis.Categorize(err)
		logger.Error("Analysis failed",
			zap.String("category", category),
			zap.Error(err),
		)
		return c.Status(statusForCategory(category)).JSON(fiber.Map{
			"category": category,
			"error":    err.Error(),
		})
	}

	return c.JSON(result)
}

// InvalidateCache drops all cached analysis bundles. Exposed for operators
// who change analysis knobs at runtime; a no-op when caching is disabled.
func (h *AnalysisHandler) InvalidateCache(c *fiber.Ctx) error {
	if err := h.engine.InvalidateCache(c.Context()); err != nil {
		logger.Error("Failed to invalidate analysis cache", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to invalidate analysis cache",
		})
	}

	return c.JSON(fiber.Map{
		"status": "invalidated",
	})
}

func (h *AnalysisHandler) GetHistory(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)

	runs, err := h.engine.History(limit)
	if err != nil {
		logger.Error("Failed to list analysis history", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list analysis history",
		})
	}

	return c.JSON(fiber.Map{
		"runs": runs,
	})
}

// statusForCategory maps analysis outcomes onto HTTP statuses. Timeout gets
// 504 so callers know to re-submit with a narrower time range; a store-side
// failure is a 502.
func statusForCategory(category string) int {
	switch category {
	case analysis.OutcomeValidation:
		return fiber.StatusBadRequest
	case analysis.OutcomeTimeout:
		return fiber.StatusGatewayTimeout
	case analysis.OutcomeFailed:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}
