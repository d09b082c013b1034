package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v4"
)

// Identity is the caller resolved from a verified access token.
type Identity struct {
	UserID string
	Email  string
	Role   string
}

// ParseAndValidateToken parses an HMAC-signed JWT and returns its claims.
// If expectedType is non-empty, the claim "typ" must match it.
func ParseAndValidateToken(tokenStr string, secret []byte, expectedType string) (jwt.MapClaims, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("JWT secret not configured")
	}

	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || token == nil || !token.Valid {
		return nil, fmt.Errorf("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}
	if expectedType != "" {
		if typ, ok := claims["typ"].(string); !ok || typ != expectedType {
			return nil, fmt.Errorf("invalid token type")
		}
	}
	return claims, nil
}

// IdentityFromClaims reads user_id (or sub), email and role. A token without
// a subject carries no identity.
func IdentityFromClaims(claims jwt.MapClaims) (Identity, bool) {
	var id Identity
	id.UserID, _ = claims["user_id"].(string)
	if id.UserID == "" {
		id.UserID, _ = claims["sub"].(string)
	}
	if id.UserID == "" {
		return Identity{}, false
	}
	id.Email, _ = claims["email"].(string)
	id.Role, _ = claims["role"].(string)
	return id, true
}
