package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// 通知中心指标
	NotificationEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_events_total",
			Help: "Notification change events published, by operation",
		},
		[]string{"op"},
	)

	NotificationsGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_generated_total",
			Help: "Notifications synthesized from course activity, by source",
		},
		[]string{"source"},
	)

	NotificationsPurged = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_purged_total",
			Help: "Notifications removed by maintenance, by reason",
		},
		[]string{"reason"},
	)

	WSConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "notification_ws_connections",
			Help: "Open notification websocket connections on this instance",
		},
	)

	initOnce sync.Once
)

func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(RequestCounter)
		prometheus.MustRegister(RequestDuration)
		prometheus.MustRegister(NotificationEvents)
		prometheus.MustRegister(NotificationsGenerated)
		prometheus.MustRegister(NotificationsPurged)
		prometheus.MustRegister(WSConnections)
	})
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
