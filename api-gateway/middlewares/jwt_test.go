package middlewares_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/filipfilip1/instytut-saunowy/api-gateway/middlewares"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func signToken(t *testing.T, claims jwt.MapClaims, key []byte) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func validClaims(role string) jwt.MapClaims {
	return jwt.MapClaims{
		"user_id": "user-1",
		"email":   "jan@example.com",
		"role":    role,
		"exp":     time.Now().Add(15 * time.Minute).Unix(),
		"iat":     time.Now().Unix(),
	}
}

func setupRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user":  c.GetString(middlewares.UserIDKey),
			"email": c.GetString(middlewares.EmailKey),
			"role":  c.GetString(middlewares.RoleKey),
		})
	})
	r.GET("/test", handlers...)
	return r
}

func request(r *gin.Engine, authorization string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTMiddleware(t *testing.T) {
	r := setupRouter(middlewares.JWTMiddleware(secret))

	expired := validClaims("customer")
	expired["exp"] = time.Now().Add(-time.Minute).Unix()

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"not bearer", "Basic dXNlcjpwYXNz", http.StatusUnauthorized},
		{"wrong key", "Bearer " + signToken(t, validClaims("customer"), []byte("other")), http.StatusUnauthorized},
		{"expired", "Bearer " + signToken(t, expired, secret), http.StatusUnauthorized},
		{"valid", "Bearer " + signToken(t, validClaims("customer"), secret), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := request(r, tt.header, nil)
			assert.Equal(t, tt.want, w.Code)
		})
	}

	w := request(r, "Bearer "+signToken(t, validClaims("customer"), secret), nil)
	assert.JSONEq(t, `{"user":"user-1","email":"jan@example.com","role":"customer"}`, w.Body.String())
}

func TestJWTMiddleware_RejectsNoneAlgorithm(t *testing.T) {
	r := setupRouter(middlewares.JWTMiddleware(secret))
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, validClaims("admin")).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	w := request(r, "Bearer "+unsigned, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTMiddleware_CookieFallback(t *testing.T) {
	r := setupRouter(middlewares.JWTMiddleware(secret))

	w := request(r, "", &http.Cookie{Name: "token", Value: signToken(t, validClaims("customer"), secret)})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestOptionalJWT(t *testing.T) {
	r := setupRouter(middlewares.OptionalJWT(secret))

	w := request(r, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":"","email":"","role":""}`, w.Body.String())

	w = request(r, "Bearer garbage", nil)
	assert.Equal(t, http.StatusOK, w.Code, "bad token downgrades to guest")
	assert.JSONEq(t, `{"user":"","email":"","role":""}`, w.Body.String())

	subOnly := jwt.MapClaims{"sub": "user-9", "exp": time.Now().Add(time.Minute).Unix()}
	w = request(r, "Bearer "+signToken(t, subOnly, secret), nil)
	assert.JSONEq(t, `{"user":"user-9","email":"","role":""}`, w.Body.String())
}

func TestAdminRoleMiddleware(t *testing.T) {
	r := setupRouter(middlewares.JWTMiddleware(secret), middlewares.AdminRoleMiddleware())

	w := request(r, "Bearer "+signToken(t, validClaims("customer"), secret), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = request(r, "Bearer "+signToken(t, validClaims("admin"), secret), nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
