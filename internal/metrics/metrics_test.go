package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.ObserveTransition("sale", "complete", nil)
	m.ObserveTransition("sale", "complete", errors.New("boom"))
	m.IncRetry("order.complete")
	m.IncInsufficientStock()
	m.ObserveUnitOfWork("order.complete", 10*time.Millisecond, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("sale", "complete", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("sale", "complete", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.retries.WithLabelValues("order.complete")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.insufficientStock))
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveTransition("sale", "void", nil)
	m.IncRetry("x")
	m.IncInsufficientStock()
	m.ObserveUnitOfWork("x", time.Second, nil)
	assert.NotNil(t, m.Registerer())
}

func TestMetrics_HandlerExposesRequests(t *testing.T) {
	m := New()
	app := fiber.New()
	app.Use(m.Middleware())
	app.Get("/metrics", m.Handler())
	app.Get("/ping", func(c *fiber.Ctx) error { return c.SendString("pong") })

	resp, err := app.Test(httptest.NewRequest("GET", "/ping", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `stockledger_http_requests_total{code="200",route="/ping"} 1`)
}
