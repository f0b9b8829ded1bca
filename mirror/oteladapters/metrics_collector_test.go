package oteladapters_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/AntonStoeckl/library-chain-mirror/mirror/oteladapters"
)

func givenMeter() (metric.Meter, *sdkmetric.ManualReader) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	return provider.Meter("test"), reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var resourceMetrics metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &resourceMetrics), "error collecting metrics")

	return resourceMetrics
}

func Test_MetricsCollector_RecordDuration_Records_Seconds_On_A_Histogram(t *testing.T) {
	// setup
	meter, reader := givenMeter()
	collector := oteladapters.NewMetricsCollector(meter)

	// act
	collector.RecordDuration("mirror_batch_duration_seconds", 150*time.Millisecond, map[string]string{
		"operation": "batch",
		"status":    "success",
	})

	// assert
	histogram := findHistogramMetric(t, collect(t, reader), "mirror_batch_duration_seconds")
	require.Len(t, histogram.DataPoints, 1)
	dataPoint := histogram.DataPoints[0]
	assert.Equal(t, uint64(1), dataPoint.Count)
	assert.InDelta(t, 0.15, dataPoint.Sum, 0.001)
	expectedAttrs := attribute.NewSet(attribute.String("operation", "batch"), attribute.String("status", "success"))
	assert.True(t, dataPoint.Attributes.Equals(&expectedAttrs))
}

func Test_MetricsCollector_IncrementCounter_Adds_One_Per_Call(t *testing.T) {
	// setup
	meter, reader := givenMeter()
	collector := oteladapters.NewMetricsCollector(meter)
	labels := map[string]string{"event_type": "BookCreated", "status": "success"}

	// act
	collector.IncrementCounter("projection_events_total", labels)
	collector.IncrementCounter("projection_events_total", labels)
	collector.IncrementCounterContext(context.Background(), "projection_events_total", labels)

	// assert
	counter := findCounterMetric(t, collect(t, reader), "projection_events_total")
	require.Len(t, counter.DataPoints, 1)
	assert.Equal(t, int64(3), counter.DataPoints[0].Value)
	assert.True(t, counter.IsMonotonic)
}

func Test_MetricsCollector_RecordValue_Keeps_The_Last_Value(t *testing.T) {
	// setup
	meter, reader := givenMeter()
	collector := oteladapters.NewMetricsCollector(meter)
	labels := map[string]string{"table": "book_items"}

	// act
	collector.RecordValue("mirror_rows_written", 2, labels)
	collector.RecordValueContext(context.Background(), "mirror_rows_written", 5, labels)

	// assert
	gauge := findGaugeMetric(t, collect(t, reader), "mirror_rows_written")
	require.Len(t, gauge.DataPoints, 1)
	assert.InDelta(t, 5.0, gauge.DataPoints[0].Value, 0.0001)
}

func Test_MetricsCollector_Is_Safe_For_Concurrent_Use(t *testing.T) {
	// setup
	meter, reader := givenMeter()
	collector := oteladapters.NewMetricsCollector(meter)
	var wg sync.WaitGroup

	// act
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			collector.IncrementCounterContext(context.Background(), "projection_race_outcomes_total", map[string]string{"state": "CREATED"})
			collector.RecordDurationContext(context.Background(), "projection_duration_seconds", time.Millisecond, nil)
		}()
	}
	wg.Wait()

	// assert
	resourceMetrics := collect(t, reader)
	assert.Equal(t, int64(50), findCounterMetric(t, resourceMetrics, "projection_race_outcomes_total").DataPoints[0].Value)
	assert.Equal(t, uint64(50), findHistogramMetric(t, resourceMetrics, "projection_duration_seconds").DataPoints[0].Count)
}

func Test_MetricsCollector_When_Instrument_Creation_Fails_Does_Not_Panic(t *testing.T) {
	// setup
	meter, _ := givenMeter()
	collector := oteladapters.NewMetricsCollector(&failingMeter{Meter: meter})
	ctx := context.Background()

	// act / assert
	assert.NotPanics(t, func() {
		collector.RecordDuration("broken", time.Millisecond, nil)
		collector.IncrementCounter("broken", nil)
		collector.RecordValue("broken", 1, nil)
		collector.RecordDurationContext(ctx, "broken", time.Millisecond, nil)
		collector.IncrementCounterContext(ctx, "broken", nil)
		collector.RecordValueContext(ctx, "broken", 1, nil)
	})
}

// failingMeter refuses to create any instrument.
type failingMeter struct {
	metric.Meter
}

func (m *failingMeter) Float64Histogram(string, ...metric.Float64HistogramOption) (metric.Float64Histogram, error) {
	return nil, errors.New("histogram creation failed")
}

func (m *failingMeter) Int64Counter(string, ...metric.Int64CounterOption) (metric.Int64Counter, error) {
	return nil, errors.New("counter creation failed")
}

func (m *failingMeter) Float64Gauge(string, ...metric.Float64GaugeOption) (metric.Float64Gauge, error) {
	return nil, errors.New("gauge creation failed")
}

func findMetric(t *testing.T, resourceMetrics metricdata.ResourceMetrics, name string) metricdata.Aggregation {
	t.Helper()

	for _, scopeMetrics := range resourceMetrics.ScopeMetrics {
		for _, m := range scopeMetrics.Metrics {
			if m.Name == name {
				return m.Data
			}
		}
	}

	t.Fatalf("metric %s not found", name)

	return nil
}

func findHistogramMetric(t *testing.T, resourceMetrics metricdata.ResourceMetrics, name string) metricdata.Histogram[float64] {
	t.Helper()

	histogram, ok := findMetric(t, resourceMetrics, name).(metricdata.Histogram[float64])
	require.True(t, ok, "metric %s is not a float64 histogram", name)

	return histogram
}

func findCounterMetric(t *testing.T, resourceMetrics metricdata.ResourceMetrics, name string) metricdata.Sum[int64] {
	t.Helper()

	counter, ok := findMetric(t, resourceMetrics, name).(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", name)

	return counter
}

func findGaugeMetric(t *testing.T, resourceMetrics metricdata.ResourceMetrics, name string) metricdata.Gauge[float64] {
	t.Helper()

	gauge, ok := findMetric(t, resourceMetrics, name).(metricdata.Gauge[float64])
	require.True(t, ok, "metric %s is not a float64 gauge", name)

	return gauge
}
