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
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/codesarge-api/internal/config"
	"github.com/noah-isme/codesarge-api/internal/database"
	"github.com/noah-isme/codesarge-api/internal/handler"
	"github.com/noah-isme/codesarge-api/internal/middleware"
	"github.com/noah-isme/codesarge-api/internal/repository"
	"github.com/noah-isme/codesarge-api/internal/router"
	"github.com/noah-isme/codesarge-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Str("service", cfg.AppName).Logger()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	if cfg.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			logger.Fatal().Err(err).Msg("failed to migrate database")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis disabled: question cache and cross-node events off")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to nats")
		}
		defer natsConn.Drain()
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	examRepo := repository.NewExamRepository(db)
	attemptRepo := repository.NewAttemptRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	resultsFeed := service.NewResultsFeed(redisClient, natsConn, cfg.EventsChannel, logger)
	resultsFeed.Start(ctx)

	activityService := service.NewActivityService(activityRepo, logger)
	examService := service.NewExamService(examRepo, validate, activityService, resultsFeed, logger)
	importService, err := service.NewExamImportService(examService, cfg.ImportMaxSizeBytes, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build exam import service")
	}
	sessionService := service.NewExamSessionService(examRepo, attemptRepo, submissionRepo, validate, redisClient, cfg.ExamCacheTTL, activityService, resultsFeed, logger)
	resultsService := service.NewResultsService(submissionRepo, examRepo, logger)
	gradingService := service.NewGradingService(submissionRepo, gradeRepo, validate, cfg.PassingScore, activityService, resultsFeed, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	probes := []handler.HealthProbe{{
		Name:  "database",
		Check: func(ctx context.Context) error { return database.Ping(ctx, db) },
	}}
	if redisClient != nil {
		probes = append(probes, handler.HealthProbe{
			Name:  "redis",
			Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		})
	}

	middleware.Register(app, middleware.Config{Logger: &logger, AllowOrigins: cfg.CORSAllowOrigins})
	router.Register(app, cfg, router.Dependencies{
		ExamHandler:        handler.NewExamHandler(examService, importService, logger),
		AttemptHandler:     handler.NewAttemptHandler(sessionService, logger),
		ResultsHandler:     handler.NewResultsHandler(resultsService, gradingService, examService, logger),
		ResultsFeedHandler: handler.NewResultsFeedHandler(resultsFeed, examService, logger),
		ActivityHandler:    handler.NewActivityHandler(activityService, logger),
		HealthProbes:       probes,
	})

	go func() {
		logger.Info().Str("address", cfg.HTTPAddress()).Str("env", cfg.AppEnv).Msg("starting server")
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(app, cancel, logger)
}

func waitForShutdown(app *fiber.App, stopBackground context.CancelFunc, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()
	stopBackground()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
