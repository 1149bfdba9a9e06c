// Package main provides the Autoflow server: the workflow engine, its
// scheduler, and the REST API in one process.
package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/innospot/autoflow/pkg/engine"
	"github.com/innospot/autoflow/pkg/web"
)

type API struct {
	logger *slog.Logger
	engine *engine.Engine
}

func NewAPI(logger *slog.Logger, eng *engine.Engine) *API {
	return &API{
		logger: logger,
		engine: eng,
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.engine, a.logger)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Autoflow API")
	})

	w := app.Group("/workflows")
	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Patch("/:id", handlers.UpdateWorkflow)
	w.Delete("/:id", handlers.DeleteWorkflow)
	w.Post("/:id/execute", handlers.ExecuteWorkflow)
	w.Post("/:id/trigger", handlers.TriggerWorkflow)
	w.Get("/:id/executions", handlers.ListExecutions)
	w.Get("/:id/analytics", handlers.GetAnalytics)

	e := app.Group("/executions")
	e.Get("/:id", handlers.GetExecution)
	e.Delete("/:id", handlers.CancelExecution)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(ctx context.Context, port int) error {
	app := a.App()

	go func() {
		<-ctx.Done()

		err := app.Shutdown()
		if err != nil {
			a.logger.Error("Failed to shut down HTTP server", "error", err)
		}
	}()

	return app.Listen(":" + strconv.Itoa(port))
}
