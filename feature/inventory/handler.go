package inventory

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"zabbix-sync/core/logger"
)

// Handler exposes read endpoints over the inventory: configured targets and
// the assignments each one carries, including their last sync outcome.
type Handler struct {
	store  *Store
	logger *zap.Logger
}

// NewHandler creates a new HTTP handler.
func NewHandler(store *Store, logger *zap.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// RegisterRoutes registers the inventory routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/inventory")
	group.Get("/targets", h.HandleListTargets)
	group.Get("/targets/:id/assignments", h.HandleListAssignments)
}

// HandleListTargets lists the configured targets. Tokens are never exposed.
func (h *Handler) HandleListTargets(c *fiber.Ctx) error {
	l := logger.WithRayID(h.logger, c)

	targets, err := h.store.Targets(c.Context())
	if err != nil {
		l.Error("Target listing failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	out := make([]fiber.Map, 0, len(targets))
	for _, t := range targets {
		out = append(out, fiber.Map{
			"id":   t.ID,
			"name": t.Name,
			"url":  t.URL,
		})
	}
	return c.JSON(out)
}

// HandleListAssignments lists a target's host assignments with their sync
// status.
func (h *Handler) HandleListAssignments(c *fiber.Ctx) error {
	targetID, err := c.ParamsInt("id")
	if err != nil || targetID < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid target id",
		})
	}
	l := logger.WithRayID(h.logger, c)

	assignments, err := h.store.AssignmentsForTarget(c.Context(), uint(targetID))
	if err != nil {
		l.Error("Assignment listing failed", zap.Int("target", targetID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	out := make([]fiber.Map, 0, len(assignments))
	for _, a := range assignments {
		entry := fiber.Map{
			"id":                a.ID,
			"host_id":           a.HostID,
			"last_sync":         a.LastSync,
			"last_sync_success": a.LastSyncSuccess,
			"last_sync_message": a.LastSyncMessage,
		}
		if a.Device != nil {
			entry["device"] = a.Device.Name
		}
		out = append(out, entry)
	}
	return c.JSON(out)
}
