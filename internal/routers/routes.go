package routers

import (
	"ordercore-api-io/api/internal/container"
	"ordercore-api-io/api/internal/metrics"
	"ordercore-api-io/api/internal/middleware"
	"ordercore-api-io/api/pkg/controllers"
	"ordercore-api-io/api/pkg/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

// InitRoute creates the gin router. rdb backs the rate limiter and may be nil.
func InitRoute(serviceContainer *container.ServiceContainer, cfg *util.Config, rdb *redis.Client) *gin.Engine {
	router := gin.Default()
	router.Use(middleware.CorsMiddleware(cfg.AllowedOrigins))
	router.Use(metrics.PrometheusMiddleware())

	router.GET("/ping", controllers.Ping)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/v1", middleware.RateLimiter(rdb, cfg.RateLimit))
	{
		api.GET("/ping", controllers.Ping)

		sessionRoutes(api, serviceContainer)
		couponRoutes(api, serviceContainer)
		orderRoutes(api, serviceContainer)
	}

	return router
}

// sessionRoutes configures session and cart endpoints
func sessionRoutes(api *gin.RouterGroup, serviceContainer *container.ServiceContainer) {
	sessionController := serviceContainer.SessionController

	api.POST("/sessions", sessionController.OpenSession())

	session := api.Group("/sessions/:sessionId")
	{
		session.GET("", sessionController.GetSession())
		session.DELETE("", sessionController.CloseSession())
		session.GET("/totals", sessionController.GetTotals())
		session.PUT("/shipping", sessionController.SetShipping())

		// Cart lines
		session.POST("/items", sessionController.AddItem())
		session.DELETE("/items", sessionController.ClearCart())
		session.PUT("/items/:itemId/quantity", sessionController.UpdateQuantity())
		session.PUT("/items/:itemId/price", sessionController.SetPriceOverride())
		session.DELETE("/items/:itemId", sessionController.RemoveItem())
	}
}

// couponRoutes configures explicit and automatic coupon endpoints
func couponRoutes(api *gin.RouterGroup, serviceContainer *container.ServiceContainer) {
	couponController := serviceContainer.CouponController

	session := api.Group("/sessions/:sessionId")
	{
		session.POST("/coupons", couponController.ApplyCoupon())
		session.DELETE("/coupons/:code", couponController.RemoveCoupon())
		session.PUT("/auto-apply", couponController.SetAutoApply())
	}
}

// orderRoutes configures submission and the order ledger
func orderRoutes(api *gin.RouterGroup, serviceContainer *container.ServiceContainer) {
	orderController := serviceContainer.OrderController

	session := api.Group("/sessions/:sessionId")
	{
		session.POST("/submit", orderController.SubmitOrder())
		session.POST("/payment/confirm", orderController.ConfirmPayment())
	}

	api.GET("/orders", orderController.GetRecentOrders())
}
