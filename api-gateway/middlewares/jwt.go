package middlewares

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/filipfilip1/instytut-saunowy/services/common/auth"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
)

// Context keys read by the forwarder when it injects identity headers.
const (
	UserIDKey = "user_id"
	EmailKey  = "email"
	RoleKey   = "role"
)

// JWTMiddleware rejects requests without a valid access token.
func JWTMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := bearerToken(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		claims, err := auth.ParseAndValidateToken(tokenString, secret, "")
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		setIdentity(c, claims)
		c.Next()
	}
}

// OptionalJWT resolves the caller when a token is present. Guests and
// unreadable tokens pass through anonymously.
func OptionalJWT(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenString, err := bearerToken(c); err == nil {
			if claims, err := auth.ParseAndValidateToken(tokenString, secret, ""); err == nil {
				setIdentity(c, claims)
			}
		}
		c.Next()
	}
}

// AdminRoleMiddleware must run after JWTMiddleware.
func AdminRoleMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(RoleKey) != "admin" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		c.Next()
	}
}

// bearerToken reads the Authorization header, falling back to the access
// token cookie set by the auth service.
func bearerToken(c *gin.Context) (string, error) {
	if header := c.GetHeader("Authorization"); header != "" {
		if !strings.HasPrefix(header, "Bearer ") {
			return "", fmt.Errorf("Invalid token format")
		}
		return strings.TrimPrefix(header, "Bearer "), nil
	}
	if cookie, err := c.Cookie("token"); err == nil && cookie != "" {
		return cookie, nil
	}
	return "", fmt.Errorf("Token is required")
}

func setIdentity(c *gin.Context, claims jwt.MapClaims) {
	id, ok := auth.IdentityFromClaims(claims)
	if !ok {
		return
	}
	c.Set(UserIDKey, id.UserID)
	c.Set(EmailKey, id.Email)
	c.Set(RoleKey, id.Role)
}
