package chainstream

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/AntonStoeckl/library-chain-mirror/mirror"
)

var (
	// ErrNilDialer is returned when WithDialer receives nil.
	ErrNilDialer = errors.New("dialer must not be nil")

	// ErrNilLogger is returned when a logger option receives nil.
	ErrNilLogger = errors.New("logger must not be nil")

	// ErrNilMetricsCollector is returned when WithMetrics receives nil.
	ErrNilMetricsCollector = errors.New("metrics collector must not be nil")
)

// Dialer opens a Backend for the endpoint.
type Dialer func(ctx context.Context, endpoint string) (Backend, error)

// Option defines a functional option for configuring a Connection.
type Option func(*Connection) error

// WithDialer replaces the websocket dialer, e.g. with a simulated backend in tests.
func WithDialer(dialer Dialer) Option {
	return func(c *Connection) error {
		if dialer == nil {
			return ErrNilDialer
		}

		c.dialer = dialer

		return nil
	}
}

// WithLogger sets the logger for listener lifecycle and skipped logs.
func WithLogger(logger mirror.Logger) Option {
	return func(c *Connection) error {
		if logger == nil {
			return ErrNilLogger
		}

		c.logger = logger

		return nil
	}
}

// WithContextualLogger sets a context-aware logger, which takes precedence over WithLogger.
func WithContextualLogger(logger mirror.ContextualLogger) Option {
	return func(c *Connection) error {
		if logger == nil {
			return ErrNilLogger
		}

		c.contextualLogger = logger

		return nil
	}
}

// WithMetrics sets the metrics collector for received logs.
func WithMetrics(collector mirror.MetricsCollector) Option {
	return func(c *Connection) error {
		if collector == nil {
			return ErrNilMetricsCollector
		}

		c.metricsCollector = collector

		return nil
	}
}

// dialWebsocket is the default Dialer.
func dialWebsocket(ctx context.Context, endpoint string) (Backend, error) {
	client, err := ethclient.DialContext(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	return client, nil
}
