package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/ledionnezirii/germanmaster-sub001/internal/clock"
	"github.com/ledionnezirii/germanmaster-sub001/internal/config"
	"github.com/ledionnezirii/germanmaster-sub001/internal/database"
	"github.com/ledionnezirii/germanmaster-sub001/internal/engine"
	"github.com/ledionnezirii/germanmaster-sub001/internal/handler"
	"github.com/ledionnezirii/germanmaster-sub001/internal/logger"
	"github.com/ledionnezirii/germanmaster-sub001/internal/recovery"
	"github.com/ledionnezirii/germanmaster-sub001/internal/repository"
	"github.com/ledionnezirii/germanmaster-sub001/internal/router"
	"github.com/ledionnezirii/germanmaster-sub001/internal/service"
	"github.com/ledionnezirii/germanmaster-sub001/internal/validator"
	"github.com/ledionnezirii/germanmaster-sub001/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting GermanMaster Assessment Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	userRepo := repository.NewUserRepository(pool)
	assessmentRepo := repository.NewAssessmentRepository(pool)
	attemptRepo := repository.NewAttemptRepository(pool)
	availabilityRepo := repository.NewAvailabilityRepository(pool)
	eventRepo := repository.NewIntegrityEventRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	clk := clock.SystemClock{}
	authService := service.NewAuthService(cfg, rdb)
	assessmentService := service.NewAssessmentService(assessmentRepo, rdb, log)
	availabilityService := service.NewAvailabilityService(availabilityRepo, clk)
	gradingService := service.NewGradingService(cfg, clk, assessmentService, attemptRepo, availabilityRepo, userRepo, log)

	// ─── Attempt Engine ───────────────────────────────────────────────
	controller := engine.NewController(
		cfg,
		clk,
		clock.TickerScheduler{},
		recovery.NewStore(rdb),
		assessmentService,
		gradingService,
		availabilityService,
		log,
	)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:       handler.NewAuthHandler(authService, userRepo),
		Assessment: handler.NewAssessmentHandler(controller, assessmentService, availabilityService),
		Admin:      handler.NewAdminHandler(assessmentRepo, attemptRepo, eventRepo),
		WS:         handler.NewWSHandler(rdb, controller, log, cfg),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	answerWorker := worker.NewAnswerWorker(pool, rdb, log)
	integrityWorker := worker.NewIntegrityWorker(pool, rdb, log)

	go answerWorker.Start(workerCtx)
	go integrityWorker.Start(workerCtx)

	// ─── Prewarm Redis Caches ─────────────────────────────────────────
	// Load all assessment payloads into Redis BEFORE accepting traffic.
	// This avoids race conditions from lazy loading under thundering herd.
	if err := assessmentService.PrewarmAllCaches(ctx); err != nil {
		log.Warn().Err(err).Msg("Cache prewarm failed")
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop the engine's countdown tickers. In-flight attempts stay
	// recoverable through the recovery store.
	controller.Shutdown()

	// 3. Stop background workers and wait for queues to drain.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow workers to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
