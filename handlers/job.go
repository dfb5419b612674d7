// handlers/job.go
package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"soundarena-competition/middleware"
	"soundarena-competition/workers"
)

// SetupJobRoutes exposes the scheduled jobs to the external job runner.
func SetupJobRoutes(app *fiber.App, finalizer *workers.Finalizer, reclaimer *workers.Reclaimer, jobToken string, logger *slog.Logger) {
	jobs := app.Group("/job", middleware.GatewayAuthMiddleware(jobToken, logger))

	jobs.Get("/finalize-competition", func(c *fiber.Ctx) error {
		report, err := finalizer.Finalize(c.UserContext())
		if errors.Is(err, workers.ErrDuplicateCompetitionResults) {
			return c.Status(fiber.StatusNotAcceptable).SendString("Invalid request")
		}
		if err != nil {
			return respondError(c, logger, err)
		}
		return c.JSON(report)
	})

	jobs.Get("/return-abandoned-tracks", func(c *fiber.Ctx) error {
		report, err := reclaimer.Reclaim(c.UserContext())
		if err != nil {
			// genres that failed are logged; the rest were reclaimed
			logger.Warn("RETURN_ABANDONED_TRACKS partial", "error", err)
		}
		return c.JSON(report)
	})
}

// SetupMetricsRoutes serves the prometheus registry.
func SetupMetricsRoutes(app *fiber.App) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
}
