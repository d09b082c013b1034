package utils

import (
	"io"
	"net/http"
	"strings"

	"github.com/filipfilip1/instytut-saunowy/api-gateway/middlewares"
	"github.com/filipfilip1/instytut-saunowy/services/common/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Identity headers are trusted downstream, so whatever the client sent is dropped.
var identityHeaders = []string{"X-User-ID", "X-User-Email", "X-User-Role"}

var hopByHop = map[string]struct{}{
	"connection":          {},
	"keep-alive":          {},
	"proxy-authenticate":  {},
	"proxy-authorization": {},
	"te":                  {},
	"trailers":            {},
	"transfer-encoding":   {},
	"upgrade":             {},
}

type Forwarder struct {
	Client *http.Client
	Logger *zap.Logger
}

func NewForwarder(client *http.Client, log *zap.Logger) *Forwarder {
	if client == nil {
		client = http.DefaultClient
	}
	return &Forwarder{Client: client, Logger: log}
}

// To proxies the request to targetBase keeping its path and query. The body is
// streamed untouched; the payment service verifies webhook signatures over it.
func (f *Forwarder) To(targetBase string) gin.HandlerFunc {
	targetBase = strings.TrimSuffix(targetBase, "/")

	return func(c *gin.Context) {
		log := logger.With(c, f.Logger)
		targetURL := targetBase + c.Request.URL.Path
		if c.Request.URL.RawQuery != "" {
			targetURL += "?" + c.Request.URL.RawQuery
		}

		body := io.Reader(c.Request.Body)
		if c.Request.ContentLength == 0 {
			body = http.NoBody
		}
		req, err := http.NewRequestWithContext(c.Request.Context(), c.Request.Method, targetURL, body)
		if err != nil {
			log.Error("Failed to create forward request", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create request"})
			return
		}
		req.ContentLength = c.Request.ContentLength

		for k, v := range c.Request.Header {
			if _, skip := hopByHop[strings.ToLower(k)]; skip {
				continue
			}
			req.Header[k] = v
		}
		for _, h := range identityHeaders {
			req.Header.Del(h)
		}
		if uid := c.GetString(middlewares.UserIDKey); uid != "" {
			req.Header.Set("X-User-ID", uid)
			req.Header.Set("X-User-Email", c.GetString(middlewares.EmailKey))
			req.Header.Set("X-User-Role", c.GetString(middlewares.RoleKey))
		}
		if rid := c.GetString(logger.RequestIDKey); rid != "" {
			req.Header.Set("X-Request-ID", rid)
		}
		req.Header.Set("X-Forwarded-For", c.ClientIP())

		resp, err := f.Client.Do(req)
		if err != nil {
			log.Error("Failed to forward request", zap.String("url", targetURL), zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": "service unreachable"})
			return
		}
		defer resp.Body.Close()

		for k, v := range resp.Header {
			lower := strings.ToLower(k)
			// CORS is answered by the gateway itself.
			if strings.HasPrefix(lower, "access-control-") {
				continue
			}
			if _, skip := hopByHop[lower]; skip {
				continue
			}
			c.Header(k, strings.Join(v, ","))
		}

		c.Status(resp.StatusCode)
		if _, err := io.Copy(c.Writer, resp.Body); err != nil {
			log.Error("Failed to copy response body", zap.Error(err))
		}
	}
}
