package metrics_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	auth "github.com/goliatone/go-member-auth"
	"github.com/goliatone/go-member-auth/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectors_Record(t *testing.T) {
	m := metrics.New("test")
	ctx := context.Background()

	sink := auth.NormalizeActivitySink(m)
	events := []auth.ActivityEvent{
		{EventType: auth.ActivityEventLoginSuccess, Outcome: auth.OutcomeSuccess},
		{EventType: auth.ActivityEventLoginFailure, Outcome: auth.OutcomeInvalid},
		{EventType: auth.ActivityEventLoginFailure, Outcome: auth.OutcomeInvalid},
		{EventType: auth.ActivityEventSessionRefreshed, Outcome: auth.OutcomeSuccess},
		{EventType: auth.ActivityEventRegistrationOK, Outcome: auth.OutcomeSuccess},
		{EventType: auth.ActivityEventRegistrationFail, Outcome: auth.OutcomeConflict},
		{EventType: auth.ActivityEventAttendanceUpdated, Outcome: auth.OutcomeSuccess},
		{EventType: auth.ActivityEventAccessDenied, Outcome: auth.OutcomeDenied, Metadata: map[string]any{"operation": "attendance"}},
		{EventType: auth.ActivityEventAccessDenied, Outcome: auth.OutcomeDenied},
	}
	for _, e := range events {
		require.NoError(t, sink.Record(ctx, e))
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Logins.WithLabelValues(auth.OutcomeSuccess)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Logins.WithLabelValues(auth.OutcomeInvalid)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionRefreshes))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Registrations.WithLabelValues(auth.OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Registrations.WithLabelValues(auth.OutcomeConflict)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AttendanceUpdates))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AccessDenied.WithLabelValues("attendance")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AccessDenied.WithLabelValues("unknown")))
}

func TestCollectors_RateLimited(t *testing.T) {
	m := metrics.New("test")

	m.RateLimited("login", true)
	m.RateLimited("login", false)
	m.RateLimited("login", false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLimitAllowed.WithLabelValues("login")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RateLimitRejected.WithLabelValues("login")))
}

func TestCollectors_RegisterTwiceFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New("")

	require.NoError(t, m.Register(reg))
	assert.Error(t, m.Register(reg))
}

func TestMiddlewareAndHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New("test")
	m.MustRegister(reg)

	app := fiber.New()
	app.Use(m.Middleware())
	app.Get("/items/:id", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	app.Get("/metrics", metrics.Handler(reg))

	for _, id := range []string{"1", "2"} {
		res, err := app.Test(httptest.NewRequest(http.MethodGet, "/items/"+id, nil))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, res.StatusCode)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/items/:id", "200")))

	res, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `test_http_requests_total{method="GET",route="/items/:id",status="200"} 2`)
}
