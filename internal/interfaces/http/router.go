package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/milkrun-inc/milkrun/internal/application/subscription/usecases"
	"github.com/milkrun-inc/milkrun/internal/domain/subscription"
	"github.com/milkrun-inc/milkrun/internal/infrastructure/auth"
	"github.com/milkrun-inc/milkrun/internal/infrastructure/cache"
	"github.com/milkrun-inc/milkrun/internal/infrastructure/config"
	"github.com/milkrun-inc/milkrun/internal/infrastructure/pubsub"
	"github.com/milkrun-inc/milkrun/internal/infrastructure/repository"
	"github.com/milkrun-inc/milkrun/internal/interfaces/http/handlers"
	"github.com/milkrun-inc/milkrun/internal/interfaces/http/middleware"
	"github.com/milkrun-inc/milkrun/internal/interfaces/http/routes"
	"github.com/milkrun-inc/milkrun/internal/shared/logger"
	"github.com/milkrun-inc/milkrun/internal/shared/utils"
)

// Router represents the HTTP router configuration
type Router struct {
	engine              *gin.Engine
	subscriptionHandler *handlers.SubscriptionHandler
	deliveryHandler     *handlers.DeliveryHandler
	partnerHandler      *handlers.PartnerHandler
	authMiddleware      *middleware.AuthMiddleware
	allowedOrigins      []string
	db                  *gorm.DB
	redisClient         *redis.Client
	log                 logger.Interface
}

// NewRouter creates a new HTTP router with all dependencies
func NewRouter(db *gorm.DB, redisClient *redis.Client, cfg *config.Config, log logger.Interface) *Router {
	engine := gin.New()

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := utils.RegisterDeliveryDateValidation(v); err != nil {
			log.Warnw("failed to register delivery date validation", "error", err)
		}
	}

	subscriptionRepo := repository.NewSubscriptionRepository(db, log)
	catalog := repository.NewCatalogRepository(db, log)

	eventBus := pubsub.NewRedisDeliveryEventBus(redisClient, log)
	availabilityCache := cache.NewRedisAvailabilityCache(redisClient, log)

	policy := subscription.SchedulingPolicy{
		CancellationCutoffHours: cfg.Delivery.CancellationCutoffHours,
		RescheduleWindowMonths:  cfg.Delivery.RescheduleWindowMonths,
		AvailabilityHorizonDays: cfg.Delivery.AvailabilityHorizonDays,
		AutoCancelHour:          cfg.Delivery.AutoCancelHour,
	}

	createUC := usecases.NewCreateSubscriptionUseCase(subscriptionRepo, catalog, eventBus, log)
	getUC := usecases.NewGetSubscriptionUseCase(subscriptionRepo, policy, log)
	listUC := usecases.NewListCustomerSubscriptionsUseCase(subscriptionRepo, policy, log)
	cancelUC := usecases.NewCancelSubscriptionUseCase(subscriptionRepo, eventBus, availabilityCache, policy, log)
	pauseUC := usecases.NewPauseSubscriptionUseCase(subscriptionRepo, policy, log)
	addProductUC := usecases.NewAddProductUseCase(subscriptionRepo, catalog, eventBus, availabilityCache, policy, log)

	startJourneyUC := usecases.NewStartJourneyUseCase(subscriptionRepo, eventBus, policy, log)
	resolveUC := usecases.NewResolveDeliveryUseCase(subscriptionRepo, eventBus, policy, log)
	confirmUC := usecases.NewConfirmDeliveryUseCase(subscriptionRepo, eventBus, policy, log)
	rescheduleUC := usecases.NewRescheduleDeliveryUseCase(subscriptionRepo, eventBus, availabilityCache, policy, log)
	rescheduleItemUC := usecases.NewRescheduleItemUseCase(subscriptionRepo, eventBus, availabilityCache, policy, log)
	availableDatesUC := usecases.NewGetAvailableDatesUseCase(subscriptionRepo, availabilityCache, policy, log)

	listDeliveriesUC := usecases.NewListPartnerDeliveriesUseCase(subscriptionRepo, policy, log)

	subscriptionHandler := handlers.NewSubscriptionHandler(
		createUC, getUC, listUC, cancelUC, pauseUC, addProductUC, log,
	)
	deliveryHandler := handlers.NewDeliveryHandler(
		startJourneyUC, resolveUC, confirmUC, rescheduleUC, rescheduleItemUC, availableDatesUC, log,
	)
	partnerHandler := handlers.NewPartnerHandler(listDeliveriesUC, log)

	jwtSvc := auth.NewJWTService(cfg.Auth.JWT.Secret, cfg.Auth.JWT.AccessExpMinutes)
	authMiddleware := middleware.NewAuthMiddleware(jwtSvc, log)

	return &Router{
		engine:              engine,
		subscriptionHandler: subscriptionHandler,
		deliveryHandler:     deliveryHandler,
		partnerHandler:      partnerHandler,
		authMiddleware:      authMiddleware,
		allowedOrigins:      cfg.Server.AllowedOrigins,
		db:                  db,
		redisClient:         redisClient,
		log:                 log,
	}
}

// SetupRoutes configures all HTTP routes
func (r *Router) SetupRoutes() {
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.RequestID())
	r.engine.Use(middleware.Logger(r.log))
	r.engine.Use(middleware.CORS(r.allowedOrigins))

	r.engine.GET("/health", r.healthCheck)

	routes.SetupSubscriptionRoutes(r.engine, &routes.SubscriptionRouteConfig{
		SubscriptionHandler: r.subscriptionHandler,
		DeliveryHandler:     r.deliveryHandler,
		AuthMiddleware:      r.authMiddleware,
	})

	routes.SetupPartnerRoutes(r.engine, &routes.PartnerRouteConfig{
		PartnerHandler:  r.partnerHandler,
		DeliveryHandler: r.deliveryHandler,
		AuthMiddleware:  r.authMiddleware,
	})
}

func (r *Router) healthCheck(c *gin.Context) {
	ctx := c.Request.Context()

	sqlDB, err := r.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "component": "database"})
		return
	}

	if err := r.redisClient.Ping(ctx).Err(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "component": "redis"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// GetEngine returns the Gin engine
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}

// Run starts the HTTP server
func (r *Router) Run(addr string) error {
	return r.engine.Run(addr)
}
