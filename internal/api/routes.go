package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/locas/locas-backend/internal/api/handlers"
	"github.com/locas/locas-backend/internal/dispatcher"
)

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, d *dispatcher.Dispatcher) {
	api := app.Group("/api")

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	queryHandler := handlers.NewQueryHandler(d)
	historyHandler := handlers.NewHistoryHandler(d)

	api.Post("/process-query", queryHandler.ProcessQuery)
	api.Get("/get-history", historyHandler.GetHistory)
}
