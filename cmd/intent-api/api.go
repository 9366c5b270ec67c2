// Package main provides the intent pipeline API server.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"go.opentelemetry.io/otel/trace"

	"github.com/seoforge/intent-engine/pkg/eventbus"
	"github.com/seoforge/intent-engine/pkg/persistence"
	"github.com/seoforge/intent-engine/pkg/ratelimit"
	"github.com/seoforge/intent-engine/pkg/services"
	"github.com/seoforge/intent-engine/pkg/web"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	limiter     ratelimit.Limiter
	tracer      trace.Tracer
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	eventBus eventbus.EventBus,
	limiter ratelimit.Limiter,
	tracer trace.Tracer,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		eventBus:    eventBus,
		limiter:     limiter,
		tracer:      tracer,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	engine := services.NewEngine(a.persistence, a.logger, a.tracer)
	workflows := services.NewWorkflows(a.persistence)
	approvals := services.NewApprovals(a.persistence, engine, a.logger)
	linking := services.NewLinking(a.persistence, engine, a.logger)
	analytics := services.NewAnalytics(a.persistence)

	handlers := web.NewAPIHandlers(workflows, engine, approvals, linking, analytics,
		a.validate, a.eventBus, a.limiter, a.logger)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Intent Engine API")
	})

	w := app.Group("/workflows")
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Post("/:id/transition", handlers.TransitionWorkflow)
	w.Post("/:id/force-transition", handlers.ForceTransitionWorkflow)
	w.Post("/:id/events", handlers.ReportCompletion)
	w.Post("/:id/approval", handlers.ProcessApproval)
	w.Post("/:id/link-articles", handlers.LinkArticles)
	w.Put("/:id/artifacts/:stage", handlers.AttachArtifact)
	w.Get("/:id/history", handlers.GetTransitionHistory)
	w.Get("/:id/durations", handlers.GetStateDurations)
	w.Get("/:id/keywords", handlers.ListKeywords)
	w.Get("/:id/articles", handlers.ListArticles)

	app.Get("/analytics/funnel", handlers.GetFunnelAnalytics)
	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	return a.App().Listen(":" + strconv.Itoa(port))
}
