// Package metrics exposes the service's Prometheus instruments.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OrdersCreated counts successfully assembled orders.
	OrdersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkout_orders_created_total",
		Help: "Number of orders created from carts.",
	})

	// PaymentInitiations counts signed redirect payloads issued.
	PaymentInitiations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkout_payment_initiations_total",
		Help: "Number of payment redirect forms generated.",
	})

	// PaymentSettlements counts callback outcomes by result.
	PaymentSettlements = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_payment_settlements_total",
		Help: "Number of payment callback settlements by outcome.",
	}, []string{"outcome"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_http_request_duration_seconds",
		Help:    "HTTP request latency by route and status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// RequestDuration is a gin middleware recording per-route latency.
func RequestDuration() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		requestDuration.WithLabelValues(
			c.Request.Method,
			route,
			strconv.Itoa(c.Writer.Status()),
		).Observe(time.Since(start).Seconds())
	}
}
