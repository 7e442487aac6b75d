// Package metrics exposes Prometheus counters for the order flow and an
// HTTP middleware for request accounting.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesHandled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orderflow_messages_total",
		Help: "Inbound messages handled, by routing outcome.",
	}, []string{"route"})

	OrdersMaterialized = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orderflow_orders_materialized_total",
		Help: "Orders created from completed sessions.",
	})

	PaymentFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orderflow_payment_failures_total",
		Help: "Payment initiation and verification failures, by provider.",
	}, []string{"provider"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "orderflow_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "status"})
)

// Middleware records latency and status for every API request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		httpDuration.WithLabelValues(r.Method, strconv.Itoa(ww.Status())).Observe(time.Since(start).Seconds())
	})
}
