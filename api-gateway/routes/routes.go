package routes

import (
	"github.com/filipfilip1/instytut-saunowy/api-gateway/middlewares"
	"github.com/filipfilip1/instytut-saunowy/api-gateway/utils"
	"github.com/gin-gonic/gin"
)

// RegisterAllRoutes exposes the payment service behind the gateway.
func RegisterAllRoutes(r *gin.Engine, fwd *utils.Forwarder, paymentServiceURL string, jwtSecret []byte) {
	payment := fwd.To(paymentServiceURL)

	// ===== PUBLIC =====
	// Stripe authenticates itself with the signature header.
	r.POST("/api/webhooks/stripe", payment)

	// ===== OPTIONAL IDENTITY =====
	checkout := r.Group("/api/checkout", middlewares.OptionalJWT(jwtSecret))
	checkout.POST("/*any", payment)

	// ===== ADMIN (JWT + admin role) =====
	admin := r.Group("/api/admin", middlewares.JWTMiddleware(jwtSecret), middlewares.AdminRoleMiddleware())
	admin.GET("/*any", payment)
	admin.PATCH("/*any", payment)
	admin.PUT("/*any", payment)
}
