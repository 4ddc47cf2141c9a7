package sync

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"zabbix-sync/core/logger"
)

// Handler handles HTTP requests for sync operations.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the sync routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/sync")
	group.Post("/targets/:id", h.HandleSyncTarget)
	group.Get("/runs/:id", h.HandleGetRun)
}

// HandleSyncTarget triggers a reconciliation pass for one target.
// The default queued mode returns immediately with a run id; mode=direct
// blocks until the pass completes.
func (h *Handler) HandleSyncTarget(c *fiber.Ctx) error {
	targetID, err := c.ParamsInt("id")
	if err != nil || targetID < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid target id",
		})
	}
	l := logger.WithRayID(h.service.logger, c)

	if c.Query("mode") == "direct" {
		if err := h.service.SyncTarget(c.Context(), uint(targetID), nil); err != nil {
			l.Error("Direct sync failed", zap.Int("target", targetID), zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"status": "completed"})
	}

	run, err := h.service.EnqueueTarget(c.Context(), uint(targetID))
	if err != nil {
		l.Error("Could not enqueue sync", zap.Int("target", targetID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	l.Info("Sync run enqueued", zap.Int("target", targetID), zap.String("run", run.ID))
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"run_id": run.ID,
		"target": run.Target,
	})
}

// HandleGetRun reports the status of a queued run.
func (h *Handler) HandleGetRun(c *fiber.Ctx) error {
	run, ok := h.service.Run(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "run not found",
		})
	}
	return c.JSON(run.Status())
}
