package main

import (
	"context"
	"log/slog"
	"time"
)

const (
	logMsgDrainTimedOut = "in-flight events were still running at shutdown, leaving gateway and client open"
	logAttrInFlight     = "in_flight"
)

// eventStream is the part of chainstream.Connection the shutdown needs.
type eventStream interface {
	Stop()
}

// drainer is the part of projection.Router the shutdown needs.
type drainer interface {
	Drain(ctx context.Context) error
	InFlight() int64
}

// stopAndDrain stops event delivery and waits up to timeout for the events already dispatched.
// The stream's client is not released here, in-flight events still resolve block headers through it.
// handlersRunning reports a drain timeout, the gateway and the client must then not be closed under the handlers.
func stopAndDrain(logger *slog.Logger, stream eventStream, router drainer, timeout time.Duration) (handlersRunning bool, err error) {
	stream.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if drainErr := router.Drain(ctx); drainErr != nil {
		logger.Warn(logMsgDrainTimedOut, logAttrInFlight, router.InFlight(), "error", drainErr.Error())

		return true, drainErr
	}

	return false, nil
}
