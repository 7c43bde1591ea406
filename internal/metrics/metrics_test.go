package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Rejections.WithLabelValues("rate_limited").Inc()
	m.Downloads.WithLabelValues("youtube", "success").Inc()
	m.InFlight.Set(2)
	m.ObserveFetch("youtube", 3*time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Rejections.WithLabelValues("rate_limited")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.InFlight))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "downloader_rejections_total")
	assert.Contains(t, names, "downloader_fetch_duration_seconds")
}

func TestNew_NilRegisterer(t *testing.T) {
	m := New(nil)
	m.CleanupFailures.Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CleanupFailures))
}
