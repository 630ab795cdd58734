package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/codesarge-api/internal/config"
	"github.com/noah-isme/codesarge-api/internal/handler"
	"github.com/noah-isme/codesarge-api/internal/middleware"
	"github.com/noah-isme/codesarge-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ExamHandler        *handler.ExamHandler
	AttemptHandler     *handler.AttemptHandler
	ResultsHandler     *handler.ResultsHandler
	ResultsFeedHandler *handler.ResultsFeedHandler
	ActivityHandler    *handler.ActivityHandler
	HealthProbes       []handler.HealthProbe
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes...))

	exams := api.Group("/exams")
	if deps.ExamHandler != nil {
		deps.ExamHandler.Register(exams)
	}
	if deps.ResultsHandler != nil {
		deps.ResultsHandler.RegisterExamRoutes(exams)
		deps.ResultsHandler.Register(api.Group("/submissions"))
	}
	if deps.ResultsFeedHandler != nil {
		deps.ResultsFeedHandler.Register(exams)
	}

	if deps.AttemptHandler != nil {
		deps.AttemptHandler.RegisterExamRoutes(exams)
		deps.AttemptHandler.Register(
			api.Group("/attempts"),
			middleware.RateLimit("attempt-run", cfg.RunRateLimit, cfg.RunRateWindow),
		)
	}

	if deps.ActivityHandler != nil {
		deps.ActivityHandler.Register(api.Group("/activity"))
	}
}
