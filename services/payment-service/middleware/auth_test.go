package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/filipfilip1/instytut-saunowy/services/payment-service/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func setupRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": middleware.GetUserID(c), "role": c.GetString(middleware.RoleKey)})
	})
	r.GET("/test", handlers...)
	return r
}

func request(r *gin.Engine, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	r := setupRouter(middleware.AuthMiddleware())

	w := request(r, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = request(r, map[string]string{"X-User-ID": "user-1", "X-User-Role": "customer"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":"user-1","role":"customer"}`, w.Body.String())
}

func TestOptionalAuth(t *testing.T) {
	r := setupRouter(middleware.OptionalAuth())

	w := request(r, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":"","role":""}`, w.Body.String())

	w = request(r, map[string]string{"X-User-ID": "user-2"})
	assert.JSONEq(t, `{"user":"user-2","role":""}`, w.Body.String())
}

func TestAdminOnly(t *testing.T) {
	r := setupRouter(middleware.AuthMiddleware(), middleware.AdminOnly())

	w := request(r, map[string]string{"X-User-ID": "user-1"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = request(r, map[string]string{"X-User-ID": "admin-1", "X-User-Role": middleware.RoleAdmin})
	assert.Equal(t, http.StatusOK, w.Code)
}
