package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Identity is resolved by the gateway and forwarded as headers.
const (
	UserKey = "userID"
	RoleKey = "userRole"

	RoleAdmin = "admin"
)

func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Set(UserKey, userID)
		c.Set(RoleKey, c.GetHeader("X-User-Role"))
		c.Next()
	}
}

// OptionalAuth records the caller when the gateway sent an identity. Guests pass through.
func OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID := c.GetHeader("X-User-ID"); userID != "" {
			c.Set(UserKey, userID)
			c.Set(RoleKey, c.GetHeader("X-User-Role"))
		}
		c.Next()
	}
}

// AdminOnly must run after AuthMiddleware.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(RoleKey) != RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			return
		}
		c.Next()
	}
}

func GetUserID(c *gin.Context) string {
	return c.GetString(UserKey)
}
