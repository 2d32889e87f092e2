// internal/app/router.go
package app

import (
	billingHandler "gitwallet-service/internal/handlers/billing"
	checkoutHandler "gitwallet-service/internal/handlers/checkout"
	dashboardHandler "gitwallet-service/internal/handlers/dashboard"
	prospectHandler "gitwallet-service/internal/handlers/prospect"
	subscriptionHandler "gitwallet-service/internal/handlers/subscription"
	tierHandler "gitwallet-service/internal/handlers/tier"
	webhookHandler "gitwallet-service/internal/handlers/webhook"
	wsHandler "gitwallet-service/internal/handlers/websocket"
	"gitwallet-service/internal/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handlers struct {
	TierHandler         *tierHandler.TierHandler
	CheckoutHandler     *checkoutHandler.CheckoutHandler
	SubscriptionHandler *subscriptionHandler.SubscriptionHandler
	ProspectHandler     *prospectHandler.ProspectHandler
	BillingHandler      *billingHandler.BillingHandler
	DashboardHandler    *dashboardHandler.DashboardHandler
	StripeHandler       *webhookHandler.StripeHandler
	WSHandler           *wsHandler.WebSocketHandler
	AuthMiddleware      *middleware.AuthMiddleware
	Health              *healthCheck
}

func SetupRouter(r *gin.Engine, logger *zap.Logger, h *Handlers) {
	api := r.Group("/api/v1")

	// ==================== Health Check ====================
	api.GET("/health", h.Health.Handle)

	// ==================== WebSocket ====================
	r.GET("/ws", h.WSHandler.HandleConnection)

	// ==================== Processor Webhooks ====================
	r.POST("/webhooks/stripe", h.StripeHandler.HandleEvent)

	// ==================== Public Pricing ====================
	public := api.Group("/public")
	public.Use(h.AuthMiddleware.OptionalAuth())
	{
		public.GET("/organizations/:org_id/tiers", h.TierHandler.ListPublishedTiers)
		public.GET("/tiers/:id", h.TierHandler.GetPublishedTier)
		public.POST("/tiers/:tier_id/contact", h.CheckoutHandler.SubmitContact)
	}

	// ==================== Checkout ====================
	checkout := api.Group("/checkout")
	checkout.Use(h.AuthMiddleware.Auth())
	{
		checkout.POST("/start", h.CheckoutHandler.StartCheckout)
		checkout.POST("/pay", h.CheckoutHandler.SubmitPayment)
	}

	// ==================== Buyer Subscriptions ====================
	mine := api.Group("/me/subscriptions")
	mine.Use(h.AuthMiddleware.Auth())
	{
		mine.GET("", h.SubscriptionHandler.ListMySubscriptions)
		mine.GET("/:id", h.SubscriptionHandler.GetSubscription)
		mine.POST("/:id/cancel", h.SubscriptionHandler.CancelSubscription)
	}

	// ==================== Vendor ====================
	vendor := api.Group("/vendor")
	vendor.Use(h.AuthMiddleware.VendorOnly()...)
	{
		tiers := vendor.Group("/tiers")
		{
			tiers.POST("", h.TierHandler.CreateTier)
			tiers.GET("", h.TierHandler.ListTiers)
			tiers.GET("/:id", h.TierHandler.GetTier)
			tiers.PUT("/:id", h.TierHandler.UpdateTier)
			tiers.POST("/:id/publish", h.TierHandler.PublishTier)
			tiers.POST("/:id/unpublish", h.TierHandler.UnpublishTier)
			tiers.DELETE("/:id", h.TierHandler.DeleteTier)
		}

		subs := vendor.Group("/subscriptions")
		{
			subs.GET("", h.SubscriptionHandler.ListOrganizationSubscriptions)
			subs.GET("/:id", h.SubscriptionHandler.GetSubscription)
			subs.POST("/:id/cancel", h.SubscriptionHandler.CancelSubscription)
		}

		prospects := vendor.Group("/prospects")
		{
			prospects.GET("", h.ProspectHandler.ListProspects)
			prospects.GET("/:id", h.ProspectHandler.GetProspect)
			prospects.PUT("/:id/qualification", h.ProspectHandler.QualifyProspect)
		}

		vendor.GET("/billing", h.BillingHandler.GetSubscriptionInfo)
		vendor.GET("/dashboard/customers", h.DashboardHandler.GetCustomers)
		vendor.GET("/dashboard/revenue", h.DashboardHandler.GetRevenue)
		vendor.GET("/ws/stats", h.WSHandler.GetStats)
	}

	logger.Info("routes registered", zap.Int("count", len(r.Routes())))
}
