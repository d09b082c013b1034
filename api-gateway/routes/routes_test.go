package routes_test

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/filipfilip1/instytut-saunowy/api-gateway/routes"
	"github.com/filipfilip1/instytut-saunowy/api-gateway/utils"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var secret = []byte("gateway-secret")

// --- Upstream recorder ---

type seenRequest struct {
	method string
	uri    string
	header http.Header
	body   []byte
}

type recorder struct {
	mu   sync.Mutex
	reqs []seenRequest
}

func (rec *recorder) all() []seenRequest {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return append([]seenRequest(nil), rec.reqs...)
}

func upstream(t *testing.T) (*httptest.Server, *recorder) {
	t.Helper()
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		rec.mu.Lock()
		rec.reqs = append(rec.reqs, seenRequest{r.Method, r.URL.RequestURI(), r.Header.Clone(), body})
		rec.mu.Unlock()
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("X-Upstream", "payment-service")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func setupGateway(t *testing.T, target string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	routes.RegisterAllRoutes(r, utils.NewForwarder(nil, zap.NewNop()), target, secret)
	return r
}

func token(t *testing.T, role string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "user-1",
		"email":   "jan@example.com",
		"role":    role,
		"exp":     time.Now().Add(time.Minute).Unix(),
	}).SignedString(secret)
	require.NoError(t, err)
	return s
}

func send(r *gin.Engine, method, path string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// --- Tests ---

func TestWebhookForwardedByteForByte(t *testing.T) {
	srv, seen := upstream(t)
	r := setupGateway(t, srv.URL)
	body := []byte(`{"id":"evt_1",  "type":"checkout.session.completed"}` + "\n")

	w := send(r, http.MethodPost, "/api/webhooks/stripe", body, map[string]string{
		"Stripe-Signature": "t=1,v1=abc",
		"X-User-ID":        "spoofed",
	})

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "payment-service", w.Header().Get("X-Upstream"))
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"), "CORS is the gateway's job")

	reqs := seen.all()
	require.Len(t, reqs, 1)
	got := reqs[0]
	assert.Equal(t, "/api/webhooks/stripe", got.uri)
	assert.Equal(t, body, got.body)
	assert.Equal(t, "t=1,v1=abc", got.header.Get("Stripe-Signature"))
	assert.Empty(t, got.header.Get("X-User-ID"))
}

func TestCheckoutIdentityIsOptional(t *testing.T) {
	srv, seen := upstream(t)
	r := setupGateway(t, srv.URL)

	w := send(r, http.MethodPost, "/api/checkout/training", []byte(`{}`), map[string]string{"X-User-Role": "admin"})
	assert.Equal(t, http.StatusAccepted, w.Code)

	w = send(r, http.MethodPost, "/api/checkout/training", []byte(`{}`), map[string]string{"Authorization": "Bearer " + token(t, "customer")})
	assert.Equal(t, http.StatusAccepted, w.Code)

	reqs := seen.all()
	require.Len(t, reqs, 2)
	assert.Empty(t, reqs[0].header.Get("X-User-Role"), "guest cannot claim a role")
	assert.Equal(t, "user-1", reqs[1].header.Get("X-User-ID"))
	assert.Equal(t, "customer", reqs[1].header.Get("X-User-Role"))
	assert.Equal(t, "/api/checkout/training", reqs[1].uri)
}

func TestAdminRoutesRequireAdminToken(t *testing.T) {
	srv, seen := upstream(t)
	r := setupGateway(t, srv.URL)

	w := send(r, http.MethodGet, "/api/admin/orders?status=pending", nil, map[string]string{"X-User-ID": "admin-1", "X-User-Role": "admin"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = send(r, http.MethodGet, "/api/admin/orders", nil, map[string]string{"Authorization": "Bearer " + token(t, "customer")})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, seen.all())

	w = send(r, http.MethodGet, "/api/admin/orders?status=pending", nil, map[string]string{"Authorization": "Bearer " + token(t, "admin")})
	assert.Equal(t, http.StatusAccepted, w.Code)
	reqs := seen.all()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/api/admin/orders?status=pending", reqs[0].uri)
	assert.Equal(t, "admin", reqs[0].header.Get("X-User-Role"))
}

func TestUpstreamDown(t *testing.T) {
	srv, _ := upstream(t)
	url := srv.URL
	srv.Close()
	r := setupGateway(t, url)

	w := send(r, http.MethodPost, "/api/webhooks/stripe", []byte(`{}`), nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}
