package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/isdelr/annotation-hub-be/internal/api"
	"github.com/isdelr/annotation-hub-be/internal/auth"
	"github.com/isdelr/annotation-hub-be/internal/config"
	"github.com/isdelr/annotation-hub-be/internal/middleware"
	"github.com/isdelr/annotation-hub-be/internal/monitoring"
	"github.com/isdelr/annotation-hub-be/internal/services"
	"github.com/isdelr/annotation-hub-be/internal/storage"
	"github.com/isdelr/annotation-hub-be/internal/translate"
	"github.com/isdelr/annotation-hub-be/internal/websocket"
	"github.com/isdelr/annotation-hub-be/internal/worker"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, websocket hub, scheduler and ingest workers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, workers)
		},
	}
	cmd.Flags().IntVar(&workers, "workers", 4, "concurrent ingest jobs processed by the queue worker")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, workers int) error {
	db, err := openDatabase(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	// Set up WebSocket Hub
	hub := websocket.NewHub()
	go hub.Run()
	defer hub.Stop()

	storageClient := storage.NewClient(storage.Options{
		MaxBytes:     cfg.StorageMaxBytes,
		GoogleAPIKey: cfg.GoogleAPIKey,
		S3Endpoint:   cfg.S3Endpoint,
	})
	translator, err := translate.New(ctx, translate.Options{
		GoogleAPIKey:      cfg.GoogleTranslateKey,
		LibreTranslateURL: cfg.LibreTranslateURL,
		LibreTranslateKey: cfg.LibreTranslateKey,
		MyMemoryEnabled:   cfg.MyMemoryEnabled,
		GeminiAPIKey:      cfg.GeminiAPIKey,
		GeminiModel:       cfg.GeminiModel,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize translation providers: %w", err)
	}
	log.Info().Strs("providers", translator.Providers()).Msg("Translation chain ready")

	// Set up services
	eventService := services.NewEventService(db, hub)
	userService := services.NewUserService(db)
	projectService := services.NewProjectService(db, eventService)
	templateService := services.NewTemplateService(db)
	taskService := services.NewTaskService(db, templateService, eventService)
	trainingService := services.NewTrainingService(db, eventService)
	jobService := services.NewJobService(db, eventService)
	wishlistService := services.NewWishlistService(db)
	billingService := services.NewBillingService(db, eventService)
	ingestService := services.NewIngestService(db, storageClient, taskService, eventService)
	scheduleService := services.NewScheduleService(db, eventService)
	dashboardService := services.NewDashboardService(db, eventService, trainingService)

	var (
		dispatcher  worker.Dispatcher
		rateCounter middleware.Counter
	)
	if cfg.RedisAddr != "" {
		redisOpt := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		queue := asynq.NewClient(redisOpt)
		defer queue.Close()
		dispatcher = worker.NewQueueDispatcher(queue)

		workerServer := worker.NewServer(redisOpt, ingestService, workers)
		if err := workerServer.Start(); err != nil {
			return err
		}
		defer workerServer.Shutdown()

		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer redisClient.Close()
		rateCounter = middleware.NewRedisCounter(redisClient)
		log.Info().Str("addr", cfg.RedisAddr).Msg("Using Redis for ingest queue and rate limits")
	} else {
		local := worker.NewLocalDispatcher(ingestService)
		defer local.Stop()
		dispatcher = local
		rateCounter = middleware.NewMemoryCounter()
		log.Info().Msg("REDIS_ADDR not set; running ingest jobs in-process")
	}

	stats := monitoring.NewStatsCollector(filepath.Dir(cfg.DatabasePath), eventService)

	// Set up and run the background scheduler
	scheduler, err := monitoring.NewScheduler(monitoring.Dependencies{
		Schedules:  scheduleService,
		Ingest:     ingestService,
		Billing:    billingService,
		Projects:   projectService,
		Jobs:       jobService,
		Events:     eventService,
		Dispatcher: dispatcher,
		Stats:      stats,
	})
	if err != nil {
		return err
	}
	scheduler.Start()

	router := api.NewRouter(api.Dependencies{
		AllowedOrigins:    cfg.AllowedOrigins,
		SecureCookies:     cfg.IsProduction(),
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitWindow:   cfg.RateLimitWindow,
		RateCounter:       rateCounter,
		Tokens:            auth.NewManager(cfg.JWTSecret, cfg.TokenTTL),
		Hub:               hub,
		DB:                db,
		Users:             userService,
		Projects:          projectService,
		Templates:         templateService,
		Tasks:             taskService,
		Trainings:         trainingService,
		Jobs:              jobService,
		Wishlist:          wishlistService,
		Billing:           billingService,
		Ingest:            ingestService,
		Schedules:         scheduleService,
		Events:            eventService,
		Dashboards:        dashboardService,
		Dispatcher:        dispatcher,
		Storage:           storageClient,
		Translator:        translator,
		Stats:             stats,
	})

	// Set up server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.ServerPort).Str("env", cfg.AppEnv).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			scheduler.Stop(context.Background())
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	scheduler.Stop(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
		return err
	}
	log.Info().Msg("Server exiting")
	return nil
}
