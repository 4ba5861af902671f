package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/milkrun-inc/milkrun/internal/interfaces/http/handlers"
	"github.com/milkrun-inc/milkrun/internal/interfaces/http/middleware"
	"github.com/milkrun-inc/milkrun/internal/shared/constants"
)

// PartnerRouteConfig contains dependencies for delivery partner routes.
type PartnerRouteConfig struct {
	PartnerHandler  *handlers.PartnerHandler
	DeliveryHandler *handlers.DeliveryHandler
	AuthMiddleware  *middleware.AuthMiddleware
}

// SetupPartnerRoutes configures partner-facing delivery routes.
// Routes: /partner/*
// :sid is subscription SID (sub_xxx format)
func SetupPartnerRoutes(engine *gin.Engine, cfg *PartnerRouteConfig) {
	partner := engine.Group("/partner")
	partner.Use(cfg.AuthMiddleware.RequireAuth())
	partner.Use(cfg.AuthMiddleware.RequireRole(constants.RolePartner))
	{
		partner.GET("/deliveries", cfg.PartnerHandler.ListDeliveries)

		subscription := partner.Group("/subscriptions/:sid")
		{
			subscription.POST("/journey", cfg.DeliveryHandler.StartJourney)
			subscription.POST("/resolve", cfg.DeliveryHandler.ResolveDelivery)
		}
	}
}
