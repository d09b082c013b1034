package routes

import (
	"github.com/filipfilip1/instytut-saunowy/services/payment-service/controllers"
	"github.com/filipfilip1/instytut-saunowy/services/payment-service/middleware"
	"github.com/gin-gonic/gin"
)

func RegisterPaymentRoutes(r *gin.Engine, pc *controllers.PaymentController, cc *controllers.CheckoutController, ac *controllers.AdminController, limiter gin.HandlerFunc) {
	// Stripe webhook (signature auth only)
	r.POST("/api/webhooks/stripe", pc.StripeWebhook)

	checkout := r.Group("/api/checkout")
	checkout.Use(limiter, middleware.OptionalAuth())
	checkout.POST("/merchandise", cc.CreateMerchandiseCheckout)
	checkout.POST("/training", cc.CreateTrainingCheckout)

	admin := r.Group("/api/admin")
	admin.Use(limiter, middleware.AuthMiddleware(), middleware.AdminOnly())
	admin.GET("/orders", ac.ListOrders)
	admin.GET("/orders/:id", ac.GetOrder)
	admin.PATCH("/orders/:id/status", ac.UpdateOrderStatus)
	admin.PATCH("/orders/:id/tracking", ac.UpdateTracking)
	admin.PATCH("/bookings/:id/status", ac.UpdateBookingStatus)
	admin.PUT("/products/:id/variants/:variantId/options/:optionId/stock", ac.SetOptionStock)
}
