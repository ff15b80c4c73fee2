package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BookingsTransitions counts booking state transitions by path and resulting status
	BookingsTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "booking",
			Name:      "transitions_total",
			Help:      "The total number of booking state transitions",
		},
		[]string{"operation", "status"},
	)

	// InventoryOperations counts reserve/release calls on the ledger
	InventoryOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "inventory",
			Name:      "operations_total",
			Help:      "The total number of inventory ledger operations",
		},
		[]string{"operation", "result"},
	)

	// RedemptionsProcessed counts door check-ins by result
	RedemptionsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "redemption",
			Name:      "processed_total",
			Help:      "The total number of verification code redemptions",
		},
		[]string{"result"},
	)

	PaymentResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "payment",
			Name:      "results_total",
			Help:      "The total number of gateway payment results handled",
		},
		[]string{"outcome", "result"},
	)

	MessagesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "messages",
			Name:      "processed_total",
			Help:      "The total number of processed stream messages",
		},
		[]string{"stream", "result"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// GinMiddleware records request duration per matched route.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		HTTPRequestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

// Result maps an error to a short metric label.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
