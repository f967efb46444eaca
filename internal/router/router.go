package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/rubriq/rubriq-api/internal/config"
	"github.com/rubriq/rubriq-api/internal/handler"
	"github.com/rubriq/rubriq-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AssignmentHandler *handler.AssignmentHandler
	QuestionHandler   *handler.QuestionHandler
	RubricHandler     *handler.RubricHandler
	SubmissionHandler *handler.SubmissionHandler
	AnswerHandler     *handler.AnswerHandler
	AgentHandler      *handler.AgentHandler
	SettingsHandler   *handler.SettingsHandler
	ExportHandler     *handler.ExportHandler
	BatchHandler      *handler.BatchHandler
	JWTMiddleware     fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	protected := api.Group("", jwtMiddleware)

	if deps.AssignmentHandler != nil {
		assignments := protected.Group("/assignments")
		deps.AssignmentHandler.Register(assignments)

		if deps.QuestionHandler != nil {
			deps.QuestionHandler.RegisterAssignmentRoutes(assignments)
		}
		if deps.SubmissionHandler != nil {
			deps.SubmissionHandler.RegisterAssignmentRoutes(assignments)
		}
		if deps.BatchHandler != nil {
			deps.BatchHandler.RegisterAssignmentRoutes(assignments)
		}
	}

	if deps.QuestionHandler != nil {
		questions := protected.Group("/questions")
		deps.QuestionHandler.Register(questions)

		if deps.RubricHandler != nil {
			deps.RubricHandler.RegisterQuestionRoutes(questions)
		}
		if deps.AgentHandler != nil {
			deps.AgentHandler.RegisterQuestionRoutes(questions)
		}
	}

	if deps.RubricHandler != nil {
		rubrics := protected.Group("/rubrics")
		deps.RubricHandler.Register(rubrics)
	}

	if deps.SubmissionHandler != nil {
		submissions := protected.Group("/submissions")
		deps.SubmissionHandler.Register(submissions)

		if deps.AnswerHandler != nil {
			deps.AnswerHandler.RegisterSubmissionRoutes(submissions)
		}
	}

	if deps.AnswerHandler != nil {
		answers := protected.Group("/answers")
		deps.AnswerHandler.Register(answers)
	}

	if deps.AgentHandler != nil {
		agents := protected.Group("/agents")
		deps.AgentHandler.Register(agents)
	}

	if deps.SettingsHandler != nil {
		settings := protected.Group("/settings")
		deps.SettingsHandler.Register(settings)
	}

	if deps.ExportHandler != nil {
		export := protected.Group("/export")
		deps.ExportHandler.Register(export)
	}

	if deps.BatchHandler != nil {
		batches := protected.Group("/batches")
		deps.BatchHandler.Register(batches)
	}
}
