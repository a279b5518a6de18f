package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMeter(t *testing.T) (*sdkmetric.MeterProvider, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return provider, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return rm
}

// sumOf adds up every data point of an int64 counter whose attributes include attrs
func sumOf(rm metricdata.ResourceMetrics, name string, attrs ...attribute.KeyValue) int64 {
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				if hasAll(dp.Attributes, attrs) {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func hasAll(set attribute.Set, attrs []attribute.KeyValue) bool {
	for _, kv := range attrs {
		v, ok := set.Value(kv.Key)
		if !ok || v != kv.Value {
			return false
		}
	}
	return true
}

func histogramCount(rm metricdata.ResourceMetrics, name string) uint64 {
	var count uint64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if h, ok := m.Data.(metricdata.Histogram[float64]); ok && m.Name == name {
				for _, dp := range h.DataPoints {
					count += dp.Count
				}
			}
		}
	}
	return count
}

func TestCounter(t *testing.T) {
	provider, reader := newTestMeter(t)
	c, err := NewCounter(provider.Meter("test"), "test_total", "test counter", "{n}")
	require.NoError(t, err)

	ctx := context.Background()
	c.Inc(ctx, AttrCache.String("featured"))
	c.Add(ctx, 4, AttrCache.String("featured"))
	c.Inc(ctx, AttrCache.String("list"))

	rm := collect(t, reader)
	require.Equal(t, int64(5), sumOf(rm, "test_total", AttrCache.String("featured")))
	require.Equal(t, int64(6), sumOf(rm, "test_total"))
}

func TestMeterProvider_Disabled(t *testing.T) {
	mp, err := NewMeterProvider(context.Background(), Config{Enabled: false}, 0, nil)
	require.NoError(t, err)
	require.False(t, mp.IsEnabled())
	require.NotNil(t, mp.Meter("noop"))
	require.NoError(t, mp.Shutdown(context.Background()))
}
