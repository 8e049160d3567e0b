package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/mainframe-ci/ispw-generate/internal/dispatcher"
	"github.com/mainframe-ci/ispw-generate/internal/metrics"
	"github.com/mainframe-ci/ispw-generate/internal/storage"
)

func SetupRoutes(app *fiber.App, store storage.Store, d *dispatcher.Dispatcher) {
	h := NewHandler(store, d)

	v1 := app.Group("/v1")

	v1.Post("/runs", h.QueueRun)
	v1.Get("/runs", h.ListRuns)
	v1.Get("/runs/:id", h.GetRun)

	v1.Post("/dispatch", h.TriggerDispatch)

	v1.Get("/stats", h.GetStats)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
}
