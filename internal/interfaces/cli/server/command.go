package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/milkrun-inc/milkrun/internal/application/subscription/usecases"
	"github.com/milkrun-inc/milkrun/internal/domain/subscription"
	"github.com/milkrun-inc/milkrun/internal/infrastructure/cache"
	"github.com/milkrun-inc/milkrun/internal/infrastructure/config"
	"github.com/milkrun-inc/milkrun/internal/infrastructure/database"
	"github.com/milkrun-inc/milkrun/internal/infrastructure/migration"
	"github.com/milkrun-inc/milkrun/internal/infrastructure/pubsub"
	"github.com/milkrun-inc/milkrun/internal/infrastructure/repository"
	"github.com/milkrun-inc/milkrun/internal/infrastructure/scheduler"
	httpRouter "github.com/milkrun-inc/milkrun/internal/interfaces/http"
	"github.com/milkrun-inc/milkrun/internal/shared/biztime"
	"github.com/milkrun-inc/milkrun/internal/shared/goroutine"
	"github.com/milkrun-inc/milkrun/internal/shared/logger"
)

var (
	env         string
	autoMigrate bool
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start the HTTP server",
		Long:  `Start the Milkrun HTTP server with the delivery scheduler and event subscriber.`,
		RunE:  run,
	}

	cmd.Flags().StringVarP(&env, "env", "e", "development", "Environment (development, test, production)")
	cmd.Flags().BoolVar(&autoMigrate, "auto-migrate", false, "Automatically run database migrations on startup (not recommended for production)")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	if envVar := os.Getenv("ENV"); envVar != "" {
		env = envVar
	}

	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Server.Mode = mapEnvToGinMode(env)

	if err := logger.Init(&cfg.Logger); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	log := logger.NewLogger()

	log.Infow("starting server", "environment", env, "auto_migrate", autoMigrate)

	// The business timezone drives every calendar-day boundary and cutoff
	// instant, so it must be valid before anything touches a date.
	if err := biztime.Init(cfg.Delivery.BusinessTimezone); err != nil {
		return fmt.Errorf("failed to initialize business timezone: %w", err)
	}

	gin.SetMode(cfg.Server.Mode)
	gin.DefaultWriter = io.Discard
	gin.DebugPrintRouteFunc = func(httpMethod, absolutePath, handlerName string, nuHandlers int) {
	}

	if err := database.Init(&cfg.Database); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	if autoMigrate {
		if env == "production" {
			log.Warnw("auto-migration is enabled in production environment - this is not recommended!")
		}
		manager := migration.NewManager(env)
		if err := manager.Migrate(database.Get(), migration.AutoMigrateModels()...); err != nil {
			return fmt.Errorf("auto-migration failed: %w", err)
		}
		log.Infow("auto-migration completed")
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.GetAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		pingCancel()
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	pingCancel()

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()

	subscriptionRepo := repository.NewSubscriptionRepository(database.Get(), log)
	eventBus := pubsub.NewRedisDeliveryEventBus(redisClient, log)
	availabilityCache := cache.NewRedisAvailabilityCache(redisClient, log)

	policy := subscription.SchedulingPolicy{
		CancellationCutoffHours: cfg.Delivery.CancellationCutoffHours,
		RescheduleWindowMonths:  cfg.Delivery.RescheduleWindowMonths,
		AvailabilityHorizonDays: cfg.Delivery.AvailabilityHorizonDays,
		AutoCancelHour:          cfg.Delivery.AutoCancelHour,
	}

	// Cross-instance cache invalidation: any subscription event published by
	// this or another instance drops the cached availability for that
	// subscription.
	goroutine.SafeGo(log, "delivery-event-subscriber", func() {
		err := eventBus.Subscribe(runCtx, func(ctx context.Context, event pubsub.DeliveryEventEnvelope) {
			if event.SubscriptionSID == "" {
				return
			}
			if err := availabilityCache.Invalidate(ctx, event.SubscriptionSID); err != nil {
				log.Warnw("failed to invalidate availability cache",
					"error", err,
					"subscription_sid", event.SubscriptionSID,
					"event_type", event.EventType,
				)
			}
		})
		if err != nil && runCtx.Err() == nil {
			log.Errorw("delivery event subscriber stopped", "error", err)
		}
	})

	sweepUC := usecases.NewSweepUnresolvedDeliveriesUseCase(subscriptionRepo, eventBus, policy, log)
	expireUC := usecases.NewExpireSubscriptionsUseCase(subscriptionRepo, eventBus, log)

	schedulerManager, err := scheduler.NewSchedulerManager(log)
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}
	if err := schedulerManager.RegisterDeliverySweepJob(sweepUC, cfg.Delivery.SweepIntervalHours); err != nil {
		return fmt.Errorf("failed to register delivery sweep job: %w", err)
	}
	if err := schedulerManager.RegisterExpiryJob(expireUC); err != nil {
		return fmt.Errorf("failed to register expiry job: %w", err)
	}
	schedulerManager.Start()
	defer func() {
		if err := schedulerManager.Stop(); err != nil {
			log.Errorw("failed to stop scheduler", "error", err)
		}
	}()

	router := httpRouter.NewRouter(database.Get(), redisClient, cfg, log)
	router.SetupRoutes()

	srv := &http.Server{
		Addr:         cfg.Server.GetAddr(),
		Handler:      router.GetEngine(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "address", cfg.Server.GetAddr(), "mode", cfg.Server.Mode)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("failed to start server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")
	runCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
		return err
	}

	log.Infow("server exited gracefully")
	return nil
}

func mapEnvToGinMode(environment string) string {
	switch environment {
	case "production", "prod":
		return "release"
	case "test", "testing":
		return "test"
	default:
		return "debug"
	}
}
