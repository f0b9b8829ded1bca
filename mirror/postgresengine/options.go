package postgresengine

import (
	"github.com/AntonStoeckl/library-chain-mirror/mirror"
)

// TableNames holds the names of the five mirror tables.
type TableNames struct {
	Publishers   string
	Books        string
	BookItems    string
	Transactions string
	ChapterItems string
}

// DefaultTableNames returns the table names created by the embedded schema.
func DefaultTableNames() TableNames {
	return TableNames{
		Publishers:   "publishers",
		Books:        "books",
		BookItems:    "book_items",
		Transactions: "transactions",
		ChapterItems: "chapter_items",
	}
}

// Option defines a functional option for configuring the Gateway.
type Option func(*Gateway) error

// WithTableNames sets the table names for the Gateway.
func WithTableNames(tables TableNames) Option {
	return func(g *Gateway) error {
		for _, name := range []string{tables.Publishers, tables.Books, tables.BookItems, tables.Transactions, tables.ChapterItems} {
			if name == "" {
				return mirror.ErrEmptyTableName
			}
		}

		g.tables = tables

		return nil
	}
}

// WithLogger sets the logger for the Gateway.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Debug level: SQL statements with execution timing (development use)
// Info level: committed batches with durations (production-safe)
// Warn level: Non-critical issues like rollback or cleanup failures
// Error level: Critical failures that cause operation failures.
func WithLogger(logger mirror.Logger) Option {
	return func(g *Gateway) error {
		g.logger = logger
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the Gateway.
// It takes precedence over the Logger set with WithLogger and receives the
// context, so trace and span ids end up in the log records.
func WithContextualLogger(logger mirror.ContextualLogger) Option {
	return func(g *Gateway) error {
		g.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Gateway.
// It receives statement and batch durations and database error counts.
func WithMetrics(collector mirror.MetricsCollector) Option {
	return func(g *Gateway) error {
		g.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the Gateway.
// Every batch and lookup gets its own span.
func WithTracing(collector mirror.TracingCollector) Option {
	return func(g *Gateway) error {
		g.tracingCollector = collector
		return nil
	}
}
