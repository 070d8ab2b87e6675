package oteladapters_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/AntonStoeckl/dynamic-patient-lists-go/patientlist/oteladapters"
)

func newMetricsCollector() (*oteladapters.MetricsCollector, *sdkmetric.ManualReader) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	return oteladapters.NewMetricsCollector(provider.Meter("test")), reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader, name string) metricdata.Metrics {
	t.Helper()

	var resourceMetrics metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &resourceMetrics), "failed to collect metrics")

	for _, scopeMetrics := range resourceMetrics.ScopeMetrics {
		for _, m := range scopeMetrics.Metrics {
			if m.Name == name {
				return m
			}
		}
	}

	require.Failf(t, "metric not found", "metric %s was not recorded", name)

	return metricdata.Metrics{}
}

func Test_MetricsCollector_RecordDuration(t *testing.T) {
	collector, reader := newMetricsCollector()

	collector.RecordDuration("patientlist_resolve_duration_seconds", 150*time.Millisecond, map[string]string{
		"operation": "resolve",
		"status":    "success",
	})

	m := collect(t, reader, "patientlist_resolve_duration_seconds")
	histogram, ok := m.Data.(metricdata.Histogram[float64])
	require.True(t, ok, "expected a float64 histogram")
	require.Len(t, histogram.DataPoints, 1)

	dataPoint := histogram.DataPoints[0]
	assert.Equal(t, uint64(1), dataPoint.Count)
	assert.InDelta(t, 0.15, dataPoint.Sum, 0.001)
	assert.Equal(t, "s", m.Unit)

	expectedAttrs := attribute.NewSet(
		attribute.String("operation", "resolve"),
		attribute.String("status", "success"),
	)
	assert.True(t, dataPoint.Attributes.Equals(&expectedAttrs))
}

func Test_MetricsCollector_IncrementCounter(t *testing.T) {
	collector, reader := newMetricsCollector()
	labels := map[string]string{"operation": "resolve", "error_type": "cyclic_reference"}

	collector.IncrementCounter("patientlist_resolve_errors_total", labels)
	collector.IncrementCounterContext(context.Background(), "patientlist_resolve_errors_total", labels)
	collector.IncrementCounter("patientlist_resolve_errors_total", map[string]string{"operation": "resolve"})

	m := collect(t, reader, "patientlist_resolve_errors_total")
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "expected an int64 sum")
	assert.True(t, sum.IsMonotonic)
	require.Len(t, sum.DataPoints, 2, "one data point per label set")

	values := map[int]int64{}
	for _, dp := range sum.DataPoints {
		values[dp.Attributes.Len()] = dp.Value
	}

	assert.Equal(t, map[int]int64{2: 2, 1: 1}, values)
}

func Test_MetricsCollector_RecordValue(t *testing.T) {
	collector, reader := newMetricsCollector()
	labels := map[string]string{"operation": "resolve"}

	collector.RecordValue("patientlist_resolved_encounters", 12, labels)
	collector.RecordValueContext(context.Background(), "patientlist_resolved_encounters", 7, labels)

	m := collect(t, reader, "patientlist_resolved_encounters")
	gauge, ok := m.Data.(metricdata.Gauge[float64])
	require.True(t, ok, "expected a float64 gauge")
	require.Len(t, gauge.DataPoints, 1)
	assert.InDelta(t, 7.0, gauge.DataPoints[0].Value, 0.0001, "a gauge keeps the last value")
}

func Test_MetricsCollector_ConcurrentUse(t *testing.T) {
	collector, reader := newMetricsCollector()

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			collector.IncrementCounter("patientlist_resolve_total", nil)
			collector.RecordDuration("patientlist_resolve_duration_seconds", time.Millisecond, nil)
		}()
	}
	wg.Wait()

	sum, ok := collect(t, reader, "patientlist_resolve_total").Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(20), sum.DataPoints[0].Value)
}
