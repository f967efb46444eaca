package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/rubriq/rubriq-api/internal/batch"
	"github.com/rubriq/rubriq-api/internal/config"
	"github.com/rubriq/rubriq-api/internal/database"
	"github.com/rubriq/rubriq-api/internal/handler"
	"github.com/rubriq/rubriq-api/internal/middleware"
	"github.com/rubriq/rubriq-api/internal/models"
	"github.com/rubriq/rubriq-api/internal/repository"
	"github.com/rubriq/rubriq-api/internal/router"
	"github.com/rubriq/rubriq-api/internal/service"
	"github.com/rubriq/rubriq-api/pkg/ai"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Assignment{},
		&models.Question{},
		&models.Rubric{},
		&models.Submission{},
		&models.Answer{},
		&models.GradingAgent{},
		&models.Settings{},
		&models.UploadBatch{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var redisClient = database.OptionalRedis(cfg.RedisURL, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	natsConn, err := database.ConnectNATS(cfg.NATSURL)
	if err != nil {
		log.Fatalf("failed to connect to nats: %v", err)
	}
	if natsConn != nil {
		defer natsConn.Close()
	}

	grader, err := ai.NewClient(ai.ClientConfig{
		APIKey:      cfg.AIAPIKey,
		BaseURL:     cfg.AIBaseURL,
		MaxTokens:   cfg.AIMaxTokens,
		Temperature: float32(cfg.AITemperature),
		Logger:      logger,
	})
	if err != nil {
		log.Fatalf("failed to create ai client: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	assignmentRepo := repository.NewAssignmentRepository(db)
	questionRepo := repository.NewQuestionRepository(db)
	rubricRepo := repository.NewRubricRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	answerRepo := repository.NewAnswerRepository(db)
	agentRepo := repository.NewAgentRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	batchRepo := repository.NewBatchRepository(db)

	events := service.NewEventPublisher(natsConn, logger)
	extractor := service.NewTextExtractor(grader, cfg.MaxUploadMB, logger)

	settingsService := service.NewSettingsService(settingsRepo, validate, logger)
	if _, err := settingsService.Current(context.Background()); err != nil {
		log.Fatalf("failed to ensure settings row: %v", err)
	}
	assignmentService := service.NewAssignmentService(assignmentRepo, validate, logger)
	questionService := service.NewQuestionService(questionRepo, assignmentRepo, grader, settingsService, extractor, validate, logger)
	rubricService := service.NewRubricService(rubricRepo, questionRepo, assignmentRepo, grader, settingsService, validate, logger)
	submissionService := service.NewSubmissionService(submissionRepo, answerRepo, rubricRepo, assignmentRepo, events, validate, logger)
	answerService := service.NewAnswerService(answerRepo, rubricRepo, submissionRepo, questionRepo, events, validate, logger)
	agentService := service.NewAgentService(agentRepo, questionRepo, rubricRepo, answerRepo, submissionRepo, grader, settingsService, validate, logger)
	parseService := service.NewParseService(submissionRepo, answerRepo, questionRepo, assignmentRepo, grader, settingsService, extractor, events, validate, logger)
	exportService := service.NewExportService(assignmentRepo, questionRepo, submissionRepo, answerRepo, logger)

	pool := batch.NewPool(cfg.BatchWorkers, cfg.BatchRetries, cfg.BatchBackoff, logger)
	batchService := service.NewBatchService(batchRepo, assignmentRepo, parseService, pool, redisClient, events, cfg.ProgressTTL, cfg.RequestTimeout, logger)

	deps := router.Dependencies{
		AssignmentHandler: handler.NewAssignmentHandler(assignmentService, logger),
		QuestionHandler:   handler.NewQuestionHandler(questionService, logger),
		RubricHandler:     handler.NewRubricHandler(rubricService, logger),
		SubmissionHandler: handler.NewSubmissionHandler(submissionService, parseService, logger),
		AnswerHandler:     handler.NewAnswerHandler(answerService, logger),
		AgentHandler:      handler.NewAgentHandler(agentService, logger),
		SettingsHandler:   handler.NewSettingsHandler(settingsService, logger),
		ExportHandler:     handler.NewExportHandler(exportService, logger),
		BatchHandler:      handler.NewBatchHandler(batchService, logger),
	}
	if cfg.JWTSecret != "" {
		deps.JWTMiddleware = middleware.JWTProtected(cfg.JWTSecret)
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    (cfg.MaxUploadMB + 1) * 1024 * 1024,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AllowOrigins: cfg.CORSOrigins})
	router.Register(app, cfg, deps)

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, pool, logger)
}

func waitForShutdown(app *fiber.App, pool *batch.Pool, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	// Let queued batch jobs drain before the process exits.
	if err := pool.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("worker pool shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
