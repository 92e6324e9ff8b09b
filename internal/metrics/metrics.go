// Package metrics exposes Prometheus counters for the storefront.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	OrdersPlaced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nearbuy_orders_placed_total",
		Help: "Orders created at checkout.",
	})

	StatusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nearbuy_order_status_transitions_total",
		Help: "Order status changes, by new status.",
	}, []string{"status"})

	ReviewsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nearbuy_reviews_submitted_total",
		Help: "Reviews written, by kind (shop or product).",
	}, []string{"kind"})

	RealtimeEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nearbuy_realtime_events_total",
		Help: "Row change events delivered to or dropped for subscribers.",
	}, []string{"table", "result"})

	TasksProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nearbuy_tasks_processed_total",
		Help: "Background tasks handled, by type and outcome.",
	}, []string{"type", "result"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nearbuy_http_request_duration_seconds",
		Help:    "HTTP request latency by route and status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// Middleware records request latency labelled by the matched route.
func Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)

		status := c.Response().Status
		if err != nil {
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			} else if status < http.StatusBadRequest {
				status = http.StatusInternalServerError
			}
		}
		route := c.Path()
		if route == "" {
			route = "unmatched"
		}
		requestDuration.WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
		return err
	}
}

// Handler serves the default registry.
func Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}
