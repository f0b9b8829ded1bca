package projection

import (
	"errors"

	"github.com/AntonStoeckl/library-chain-mirror/mirror"
)

var (
	// ErrNilGateway is returned when the Router is created without a gateway.
	ErrNilGateway = errors.New("gateway must not be nil")

	// ErrNilResolver is returned when the Router is created without a timestamp resolver.
	ErrNilResolver = errors.New("timestamp resolver must not be nil")

	// ErrNilTransactionIDGenerator is returned when a nil generator is provided to WithTransactionIDs.
	ErrNilTransactionIDGenerator = errors.New("transaction id generator must not be nil")
)

// Option defines a functional option for configuring the Router.
type Option func(*Router) error

// WithBookPublisherPolicy sets how BookCreated waits for its publisher. The default fails fast.
func WithBookPublisherPolicy(policy RetryPolicy) Option {
	return func(r *Router) error {
		r.bookPublisherPolicy = policy
		return nil
	}
}

// WithChapterBookPolicy sets how ChapterCreated waits for its book.
// The default polls 5 times with a fixed delay of 1 second.
func WithChapterBookPolicy(policy RetryPolicy) Option {
	return func(r *Router) error {
		r.chapterBookPolicy = policy
		return nil
	}
}

// WithTransactionIDs replaces the UUIDv7 generator for Transaction ids.
func WithTransactionIDs(generate func() (string, error)) Option {
	return func(r *Router) error {
		if generate == nil {
			return ErrNilTransactionIDGenerator
		}

		r.newTransactionID = generate

		return nil
	}
}

// WithLogger sets the logger for the Router.
//
// Debug level: projected events with their durations
// Error level: dropped events with their payload and abandoned chapters.
func WithLogger(logger mirror.Logger) Option {
	return func(r *Router) error {
		r.logger = logger
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the Router. It takes precedence over WithLogger.
func WithContextualLogger(logger mirror.ContextualLogger) Option {
	return func(r *Router) error {
		r.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Router.
func WithMetrics(collector mirror.MetricsCollector) Option {
	return func(r *Router) error {
		r.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the Router. Every handled event gets its own span.
func WithTracing(collector mirror.TracingCollector) Option {
	return func(r *Router) error {
		r.tracingCollector = collector
		return nil
	}
}
