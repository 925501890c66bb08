package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"

	"github.com/Additional-Code/medequip/internal/config"
)

func prometheusConfig() config.Config {
	return config.Config{Observability: config.Observability{
		ServiceName:     "medequip-test",
		EnableMetrics:   true,
		MetricsExporter: "prometheus",
		PrometheusPath:  "/metrics",
	}}
}

func scrape(t *testing.T, mgr *Manager) string {
	t.Helper()
	rec := httptest.NewRecorder()
	mgr.MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestManager_PrometheusMetrics(t *testing.T) {
	mgr, err := NewManager(fxtest.NewLifecycle(t), prometheusConfig(), zap.NewNop())
	require.NoError(t, err)
	require.True(t, mgr.MetricsEnabled())
	require.False(t, mgr.TracingEnabled())
	require.NotNil(t, mgr.MetricsHandler())

	counter, err := mgr.Meter("test").Int64Counter("equipment_test_operations")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	require.Contains(t, scrape(t, mgr), "equipment_test_operations")
}

func TestManager_RegistryViewsDropUnboundedLabels(t *testing.T) {
	mgr, err := NewManager(fxtest.NewLifecycle(t), prometheusConfig(), zap.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	meter := mgr.Meter("registry-test")

	ops, err := meter.Int64Counter(RegistryOperations)
	require.NoError(t, err)
	ops.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", "create"),
		attribute.String("outcome", "ok"),
		attribute.String("serial_number", "SN-LEAK"),
	))

	dups, err := meter.Int64Counter(RegistryDuplicates)
	require.NoError(t, err)
	dups.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", "update"),
		attribute.String("source", "constraint"),
		attribute.Int64("equipment_id", 42),
	))

	body := scrape(t, mgr)
	require.Contains(t, body, "equipment_registry_operations")
	require.Contains(t, body, `outcome="ok"`)
	require.Contains(t, body, "equipment_registry_duplicate_serial_numbers")
	require.Contains(t, body, `source="constraint"`)
	require.NotContains(t, body, "serial_number=")
	require.NotContains(t, body, "SN-LEAK")
	require.NotContains(t, body, "equipment_id=")
}

func TestManager_RegistryDurationBuckets(t *testing.T) {
	mgr, err := NewManager(fxtest.NewLifecycle(t), prometheusConfig(), zap.NewNop())
	require.NoError(t, err)

	hist, err := mgr.Meter("registry-test").Float64Histogram(RegistryDuration, metric.WithUnit("ms"))
	require.NoError(t, err)
	hist.Record(context.Background(), 1.5, metric.WithAttributes(attribute.String("operation", "get")))

	body := scrape(t, mgr)
	require.Contains(t, body, "equipment_registry_duration")
	require.Contains(t, body, `le="2"`)
	require.Contains(t, body, `le="1000"`)
	require.Contains(t, body, `operation="get"`)
}

func TestManager_DisabledMeterIsNoop(t *testing.T) {
	mgr, err := NewManager(fxtest.NewLifecycle(t), config.Config{}, zap.NewNop())
	require.NoError(t, err)
	require.False(t, mgr.MetricsEnabled())

	counter, err := mgr.Meter("test").Int64Counter("ignored")
	require.NoError(t, err)
	counter.Add(context.Background(), 1)

	var nilMgr *Manager
	require.NotNil(t, nilMgr.Meter("test"))
}
