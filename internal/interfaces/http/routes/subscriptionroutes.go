// Package routes provides HTTP route configurations.
package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/milkrun-inc/milkrun/internal/interfaces/http/handlers"
	"github.com/milkrun-inc/milkrun/internal/interfaces/http/middleware"
	"github.com/milkrun-inc/milkrun/internal/shared/constants"
)

// SubscriptionRouteConfig contains dependencies for customer subscription routes.
type SubscriptionRouteConfig struct {
	SubscriptionHandler *handlers.SubscriptionHandler
	DeliveryHandler     *handlers.DeliveryHandler
	AuthMiddleware      *middleware.AuthMiddleware
}

// SetupSubscriptionRoutes configures customer-facing subscription routes.
// Routes: /subscriptions/*
// :sid is subscription SID (sub_xxx format)
func SetupSubscriptionRoutes(engine *gin.Engine, cfg *SubscriptionRouteConfig) {
	subscriptions := engine.Group("/subscriptions")
	subscriptions.Use(cfg.AuthMiddleware.RequireAuth())
	subscriptions.Use(cfg.AuthMiddleware.RequireRole(constants.RoleCustomer))
	{
		subscriptions.POST("", cfg.SubscriptionHandler.CreateSubscription)
		subscriptions.GET("", cfg.SubscriptionHandler.ListSubscriptions)

		single := subscriptions.Group("/:sid")
		{
			single.GET("", cfg.SubscriptionHandler.GetSubscription)
			single.GET("/schedule", cfg.SubscriptionHandler.GetSchedule)
			single.POST("/cancel", cfg.SubscriptionHandler.CancelSubscription)
			single.POST("/pause", cfg.SubscriptionHandler.PauseSubscription)
			single.POST("/resume", cfg.SubscriptionHandler.ResumeSubscription)
			single.POST("/products", cfg.SubscriptionHandler.AddProduct)

			// Customer-side delivery operations
			single.POST("/deliveries/confirm", cfg.DeliveryHandler.ConfirmDelivery)
			single.POST("/deliveries/reschedule", cfg.DeliveryHandler.RescheduleDelivery)
			single.POST("/deliveries/reschedule-item", cfg.DeliveryHandler.RescheduleItem)
			single.GET("/deliveries/available-dates", cfg.DeliveryHandler.GetAvailableDates)
		}
	}
}
