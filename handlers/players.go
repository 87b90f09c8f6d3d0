// handlers/players.go
package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"player-monitor-system/middleware"
	"player-monitor-system/models"
	"player-monitor-system/utils"
)

type StatusReader interface {
	Get(ctx context.Context, username string) (*models.PlayerStatus, error)
}

func SetupPlayerRoutes(app *fiber.App, statuses StatusReader, triggerToken string) {
	players := app.Group("/players", middleware.TriggerAuthMiddleware(triggerToken))

	players.Get("/:username/status", func(c *fiber.Ctx) error {
		username := utils.NormalizeUsername(c.Params("username"))
		if username == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "username required"})
		}

		st, err := statuses.Get(c.UserContext(), username)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load player status",
				"cause": err.Error(),
			})
		}
		if st == nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "player has not been checked yet"})
		}
		return c.JSON(st)
	})
}

// SetupOpsRoutes exposes /health and the Prometheus /metrics endpoint.
// Both stay unauthenticated for probes and scrapers.
func SetupOpsRoutes(app *fiber.App, ping func(ctx context.Context) error) {
	app.Get("/health", func(c *fiber.Ctx) error {
		if err := ping(c.UserContext()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "unhealthy",
				"cause":  err.Error(),
			})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
}
