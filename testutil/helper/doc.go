// Package helper provides test doubles and fixtures shared by the mirror, projection and chainstream tests.
//
// The spies record what the code under test reports through the mirror observability interfaces:
//   - LogHandlerSpy is a slog.Handler, wrap it with slog.New to get a mirror.Logger and mirror.ContextualLogger
//   - MetricsCollectorSpy implements mirror.MetricsCollector
//   - TracingCollectorSpy implements mirror.TracingCollector
package helper
