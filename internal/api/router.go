// Package api serves the prediction engine over HTTP with fiber
package api

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"racecalc/internal/service"
)

// New builds the fiber app with every route registered
func New(planner *service.PlannerService, l *log.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "racecalc API v1",
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler:          errorHandler(l),
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
		Output: l.Writer(),
	}))

	SetupRoutes(app, NewHandler(planner))
	return app
}

// SetupRoutes configures all HTTP routes
func SetupRoutes(app *fiber.App, h *Handler) {
	app.Get("/health", h.HealthCheck)

	api := app.Group("/api/v1")
	{
		api.Get("/zones", h.GetZones)
		api.Post("/zones/:sport", h.CalculateZones)

		api.Post("/predict/bike", h.PredictBike)
		api.Post("/predict/triathlon", h.PredictTriathlon)

		api.Get("/predictions", h.ListPredictions)
	}
}
