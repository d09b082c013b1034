package middleware

import (
	"context"
	"strconv"
	"time"

	awspkg "github.com/filipfilip1/instytut-saunowy/pkg/aws"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics holds the per-route request collectors. Register them once with
// the registry that backs /metrics.
type HTTPMetrics struct {
	Requests *prometheus.CounterVec
	Latency  *prometheus.HistogramVec
}

func NewHTTPMetrics(service string) *HTTPMetrics {
	labels := prometheus.Labels{"service": service}
	return &HTTPMetrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "http_requests_total",
			Help:        "HTTP requests by route template, method and status class",
			ConstLabels: labels,
		}, []string{"method", "path", "status"}),
		Latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "http_request_duration_seconds",
			Help:        "HTTP request latency by route template",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
}

func (m *HTTPMetrics) Register(reg prometheus.Registerer) {
	reg.MustRegister(m.Requests, m.Latency)
}

// MetricsMiddleware feeds the Prometheus collectors and mirrors request counts
// to CloudWatch when cw is enabled.
func MetricsMiddleware(m *HTTPMetrics, cw *awspkg.MetricsClient, serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()
		class := statusCodeToRange(statusCode)

		// Route template, not the raw path, keeps label cardinality bounded.
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		if m != nil {
			m.Requests.WithLabelValues(c.Request.Method, path, class).Inc()
			m.Latency.WithLabelValues(c.Request.Method, path).Observe(duration.Seconds())
		}

		if !cw.IsEnabled() {
			return
		}
		dimensions := map[string]string{
			"Service": serviceName,
			"Method":  c.Request.Method,
			"Path":    path,
			"Status":  class,
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			_ = cw.RecordCount(ctx, awspkg.MetricHTTPRequests, dimensions)
			_ = cw.RecordLatency(ctx, awspkg.MetricHTTPLatency, duration, dimensions)
			switch {
			case statusCode >= 500:
				_ = cw.RecordCount(ctx, awspkg.MetricHTTP5xx, dimensions)
			case statusCode >= 400:
				_ = cw.RecordCount(ctx, awspkg.MetricHTTP4xx, dimensions)
			}
		}()
	}
}

func statusCodeToRange(statusCode int) string {
	if statusCode < 100 || statusCode > 599 {
		return "unknown"
	}
	return strconv.Itoa(statusCode/100) + "xx"
}
