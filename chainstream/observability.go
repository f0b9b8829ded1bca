package chainstream

import (
	"context"

	"github.com/AntonStoeckl/library-chain-mirror/mirror"
)

const (
	metricLogsReceived = "chainstream_logs_total"

	logMsgConnected          = "connected to streaming endpoint"
	logMsgDialFailed         = "failed to dial streaming endpoint"
	logMsgListening          = "Listening"
	logMsgListenerFailed     = "failed to install event listener"
	logMsgSubscriptionBroken = "event subscription broke"
	logMsgUndecodableLog     = "skipped undecodable contract log"
	logMsgRemovedLogSkipped  = "skipped removed contract log"
	logMsgStopped            = "event delivery stopped"
	logMsgClosed             = "connection closed"

	logAttrContract    = "contract"
	logAttrEventType   = "event_type"
	logAttrBlockNumber = "block_number"
	logAttrTxHash      = "tx_hash"
	logAttrLogIndex    = "log_index"
	logAttrWatchers    = "watchers"
	logAttrError       = "error"

	labelEventType = "event_type"
	labelStatus    = "status"

	unknownEventType     = "unknown"
	logStatusDelivered   = "delivered"
	logStatusUndecodable = "undecodable"
	logStatusRemoved     = "removed"
)

func (c *Connection) logInfo(ctx context.Context, msg string, args ...any) {
	if c.contextualLogger != nil {
		c.contextualLogger.InfoContext(ctx, msg, args...)
		return
	}

	if c.logger != nil {
		c.logger.Info(msg, args...)
	}
}

func (c *Connection) logWarn(ctx context.Context, msg string, args ...any) {
	if c.contextualLogger != nil {
		c.contextualLogger.WarnContext(ctx, msg, args...)
		return
	}

	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}

func (c *Connection) logError(ctx context.Context, msg string, err error, args ...any) {
	args = append([]any{logAttrError, err.Error()}, args...)

	if c.contextualLogger != nil {
		c.contextualLogger.ErrorContext(ctx, msg, args...)
		return
	}

	if c.logger != nil {
		c.logger.Error(msg, args...)
	}
}

// countLog counts a received log by event type and outcome.
func (c *Connection) countLog(ctx context.Context, eventType, status string) {
	if c.metricsCollector == nil {
		return
	}

	labels := map[string]string{labelEventType: eventType, labelStatus: status}

	if contextualCollector, ok := c.metricsCollector.(mirror.ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(ctx, metricLogsReceived, labels)
		return
	}

	c.metricsCollector.IncrementCounter(metricLogsReceived, labels)
}
