package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	"soundarena-competition/config"
	"soundarena-competition/handlers"
	"soundarena-competition/metrics"
	"soundarena-competition/queue"
	"soundarena-competition/repository"
	"soundarena-competition/services"
	"soundarena-competition/utils"
	"soundarena-competition/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config:", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)
	metrics.Register()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repository.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}
	if err := repository.Migrate(db); err != nil {
		log.Fatal(err)
	}
	store := repository.New(db)

	redisClient, err := queue.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatal("failed to connect to redis:", err)
	}
	defer redisClient.Close()

	var archive workers.ReportArchive
	if cfg.Archive.Enabled() {
		r2, err := utils.NewReportArchive(ctx, cfg.Archive)
		if err != nil {
			log.Fatal("failed to initialize R2 client:", err)
		}
		archive = r2
	}

	clock := utils.SystemClock{}
	comp := cfg.Competition

	queueService := services.NewTrackQueueService(queue.NewRedisStore(redisClient), store, services.QueueSettings{
		MinimumEntriesConsumed: comp.MinimumEntriesConsumed,
		MinimumEntries:         comp.MinimumEntries,
		RefillMinScore:         comp.RefillMinScore,
		RefillLimit:            comp.RefillLimit,
		DummyTrackID:           comp.DummyTrackID,
		Location:               comp.Location,
	}, clock, logger)
	matchupService := services.NewMatchupService(store, store, queueService, comp.Durations(), clock, logger)

	finalizer := workers.NewFinalizer(store, archive, workers.FinalizeSettings{
		MinimumEntries:         comp.MinimumEntries,
		MinimumEntriesConsumed: comp.MinimumEntriesConsumed,
		DummyTrackID:           comp.DummyTrackID,
		Location:               comp.Location,
		Concurrency:            comp.FinalizeConcurrency,
	}, clock, logger)
	reclaimer := workers.NewReclaimer(store, queueService, comp.MatchupExpiry, clock, logger)

	var scheduler *workers.Scheduler
	if cfg.Scheduler.Enabled {
		scheduler, err = workers.NewScheduler(ctx, finalizer, reclaimer, workers.ScheduleSettings{
			FinalizeCron:    cfg.Scheduler.FinalizeCron,
			ReclaimInterval: cfg.Scheduler.ReclaimInterval,
			Location:        comp.Location,
		}, logger)
		if err != nil {
			log.Fatal(err)
		}
		scheduler.Start()
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute, // finalize runs inside the request
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.AllowedOrigins, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-User-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	handlers.SetupCompetitionRoutes(app, matchupService, logger)
	handlers.SetupJobRoutes(app, finalizer, reclaimer, cfg.JobToken, logger)
	handlers.SetupMetricsRoutes(app)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	logger.Info("✅ Server running", "port", cfg.Port, "scheduler", cfg.Scheduler.Enabled, "archive", cfg.Archive.Enabled())
	logger.Info("✅ CORS configured", "origins", cfg.AllowedOrigins)

	<-ctx.Done()
	logger.Info("Shutting down server...")

	if scheduler != nil {
		if err := scheduler.Shutdown(); err != nil {
			logger.Error("[Scheduler] shutdown", "error", err)
		}
	}
	if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
		logger.Error("server shutdown", "error", err)
	}
}
