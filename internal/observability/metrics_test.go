package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsForTestingIsolated(t *testing.T) {
	a, regA := NewMetricsForTesting()
	b, _ := NewMetricsForTesting()

	a.ForecastRuns.Inc()
	a.ProviderRequests.WithLabelValues("success").Add(2)
	a.ViableHours.WithLabelValues("arid").Set(5)

	assert.Equal(t, 1.0, testutil.ToFloat64(a.ForecastRuns))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.ForecastRuns))
	assert.Equal(t, 2.0, testutil.ToFloat64(a.ProviderRequests.WithLabelValues("success")))
	assert.Equal(t, 5.0, testutil.ToFloat64(a.ViableHours.WithLabelValues("arid")))

	families, err := regA.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "cloudseed_forecast_runs_total")
	assert.Contains(t, names, "cloudseed_viable_hours")
}
