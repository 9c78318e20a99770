package middleware

import (
	"context"
	"time"

	awspkg "github.com/Bharatkumawat03/pedalWB-sub001/pkg/aws"
	"github.com/gin-gonic/gin"
)

// MetricsMiddleware creates a Gin middleware that tracks HTTP metrics
func MetricsMiddleware(metricsClient *awspkg.MetricsClient, serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !metricsClient.IsEnabled() {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		dimensions := map[string]string{
			"Service": serviceName,
			"Method":  c.Request.Method,
			"Path":    path,
			"Status":  statusCodeToRange(statusCode),
		}

		// Record asynchronously so CloudWatch latency never reaches the client.
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			_ = metricsClient.RecordCount(ctx, awspkg.MetricHTTPRequests, dimensions)
			_ = metricsClient.RecordLatency(ctx, awspkg.MetricHTTPLatency, duration, dimensions)

			if statusCode >= 400 {
				_ = metricsClient.RecordCount(ctx, awspkg.MetricHTTPErrors, dimensions)
				if statusCode < 500 {
					_ = metricsClient.RecordCount(ctx, awspkg.MetricHTTP4xx, dimensions)
				} else {
					_ = metricsClient.RecordCount(ctx, awspkg.MetricHTTP5xx, dimensions)
				}
			}
		}()
	}
}

// statusCodeToRange converts status code to a range string (2xx, 3xx, 4xx, 5xx)
func statusCodeToRange(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return "2xx"
	case statusCode >= 300 && statusCode < 400:
		return "3xx"
	case statusCode >= 400 && statusCode < 500:
		return "4xx"
	case statusCode >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
