package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/portal/gateway/internal/platform/envelope"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	dataAccessTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "healthcheck_data_access_total",
			Help: "Audited accesses to health-check data by resource, action and status",
		},
		[]string{"resource", "action", "status"},
	)

	httpInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Number of HTTP requests currently being served",
		},
	)
)

// Metrics records request counts and latencies. The route label is the
// matched route template so ids in the path do not explode cardinality.
func Metrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			httpInFlight.Inc()
			defer httpInFlight.Dec()

			err := next(c)

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			labels := prometheus.Labels{
				"method": c.Request().Method,
				"route":  route,
				"status": strconv.Itoa(responseStatus(c, err)),
			}
			httpRequestsTotal.With(labels).Inc()
			httpRequestDuration.With(labels).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// responseStatus is the status the error handler will write for err, or the
// committed status when the handler succeeded.
func responseStatus(c echo.Context, err error) int {
	if err == nil {
		if status := c.Response().Status; status != 0 {
			return status
		}
		// Nothing written yet; the server will answer 200.
		return http.StatusOK
	}
	var apiErr *envelope.Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if he.Code == http.StatusMethodNotAllowed {
			return http.StatusNotFound
		}
		return he.Code
	}
	return http.StatusInternalServerError
}

// AccessCounter is an AuditRecorder that counts audited accesses in
// healthcheck_data_access_total.
func AccessCounter() AuditRecorder {
	return AuditRecorderFunc(func(entry AuditEntry) error {
		dataAccessTotal.WithLabelValues(entry.Resource, entry.Action, strconv.Itoa(entry.StatusCode)).Inc()
		return nil
	})
}
