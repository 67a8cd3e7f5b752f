// Package metrics exposes Prometheus collectors for the portal. Auth and
// registration outcomes arrive through the activity sink, HTTP traffic
// through the fiber middleware.
package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	auth "github.com/goliatone/go-member-auth"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const DefaultNamespace = "member_portal"

type Collectors struct {
	Logins            *prometheus.CounterVec
	SessionRefreshes  prometheus.Counter
	Registrations     *prometheus.CounterVec
	AttendanceUpdates prometheus.Counter
	AccessDenied      *prometheus.CounterVec
	RateLimitAllowed  *prometheus.CounterVec
	RateLimitRejected *prometheus.CounterVec
	HTTPRequests      *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
	HTTPInFlight      prometheus.Gauge
}

// New creates unregistered collectors under namespace
func New(namespace string) *Collectors {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	return &Collectors{
		Logins: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "logins_total", Help: "Login attempts by outcome."},
			[]string{"outcome"},
		),
		SessionRefreshes: prometheus.NewCounter(
			prometheus.CounterOpts{Namespace: namespace, Name: "session_refreshes_total", Help: "Successful session refreshes."},
		),
		Registrations: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "event_registrations_total", Help: "Event registration attempts by outcome."},
			[]string{"outcome"},
		),
		AttendanceUpdates: prometheus.NewCounter(
			prometheus.CounterOpts{Namespace: namespace, Name: "attendance_updates_total", Help: "Attendance flag updates."},
		),
		AccessDenied: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "access_denied_total", Help: "Gate denials by operation."},
			[]string{"operation"},
		),
		RateLimitAllowed: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter."},
			[]string{"limiter"},
		),
		RateLimitRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter."},
			[]string{"limiter"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "Total number of HTTP requests."},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latencies in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
		HTTPInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{Namespace: namespace, Name: "http_in_flight_requests", Help: "In-flight HTTP requests."},
		),
	}
}

func (m *Collectors) all() []prometheus.Collector {
	return []prometheus.Collector{
		m.Logins,
		m.SessionRefreshes,
		m.Registrations,
		m.AttendanceUpdates,
		m.AccessDenied,
		m.RateLimitAllowed,
		m.RateLimitRejected,
		m.HTTPRequests,
		m.HTTPDuration,
		m.HTTPInFlight,
	}
}

// Register adds every collector to reg
func (m *Collectors) Register(reg prometheus.Registerer) error {
	for _, c := range m.all() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// MustRegister panics on registration errors
func (m *Collectors) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(m.all()...)
}

// Record implements auth.ActivitySink
func (m *Collectors) Record(_ context.Context, event auth.ActivityEvent) error {
	switch event.EventType {
	case auth.ActivityEventLoginSuccess, auth.ActivityEventLoginFailure:
		m.Logins.WithLabelValues(event.Outcome).Inc()
	case auth.ActivityEventSessionRefreshed:
		m.SessionRefreshes.Inc()
	case auth.ActivityEventRegistrationOK, auth.ActivityEventRegistrationFail:
		m.Registrations.WithLabelValues(event.Outcome).Inc()
	case auth.ActivityEventAttendanceUpdated:
		m.AttendanceUpdates.Inc()
	case auth.ActivityEventAccessDenied:
		operation, _ := event.Metadata["operation"].(string)
		if operation == "" {
			operation = "unknown"
		}
		m.AccessDenied.WithLabelValues(operation).Inc()
	}
	return nil
}

var _ auth.ActivitySink = (*Collectors)(nil)

// RateLimited counts a limiter decision
func (m *Collectors) RateLimited(limiter string, allowed bool) {
	if allowed {
		m.RateLimitAllowed.WithLabelValues(limiter).Inc()
		return
	}
	m.RateLimitRejected.WithLabelValues(limiter).Inc()
}

// Middleware records request counts and latencies. Routes are labeled by
// their pattern, not the raw path.
func (m *Collectors) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		m.HTTPInFlight.Inc()
		defer m.HTTPInFlight.Dec()

		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = auth.HTTPStatus(err)
		}

		route := c.Route().Path
		if route == "" {
			route = "unmatched"
		}

		labels := []string{c.Method(), route, strconv.Itoa(status)}
		m.HTTPRequests.WithLabelValues(labels...).Inc()
		m.HTTPDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())

		return err
	}
}

// Handler serves the exposition format for gatherer
func Handler(gatherer prometheus.Gatherer) fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
}
