// Package oteladapters plugs OpenTelemetry into the observability interfaces of package mirror.
//
// MetricsCollector maps durations to histograms, counters to Int64 counters and values to gauges.
// TracingCollector wraps spans of an OpenTelemetry tracer.
// SlogBridgeLogger and OTelLogger satisfy mirror.ContextualLogger with trace correlation.
package oteladapters
