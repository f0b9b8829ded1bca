package projection

import (
	"context"
	"errors"
	"math"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/AntonStoeckl/library-chain-mirror/chainevents"
	"github.com/AntonStoeckl/library-chain-mirror/mirror"
)

const (
	// MetricEventsTotal counts handled events by event_type and status.
	MetricEventsTotal = "projection_events_total"

	// MetricEventDuration records the handling duration by event_type and status.
	MetricEventDuration = "projection_duration_seconds"

	// MetricRaceOutcomes counts terminal foreign-entity race states by event_type and state.
	MetricRaceOutcomes = "projection_race_outcomes_total"

	// MetricRaceAttempts records the attempts a foreign-entity race needed by event_type.
	MetricRaceAttempts = "projection_race_attempts"

	spanNameHandleEvent = "projection.handle"

	LogMsgEventProjected   = "event projected"
	LogMsgEventDropped     = "event dropped"
	LogMsgChapterAbandoned = "chapter abandoned, book not found"
	LogMsgPayloadFailed    = "failed to serialize dropped event payload"

	LogAttrEventType   = "event_type"
	LogAttrBlockNumber = "block_number"
	LogAttrTxHash      = "tx_hash"
	LogAttrLogIndex    = "log_index"
	LogAttrPayload     = "payload"
	LogAttrError       = "error"
	LogAttrDurationMS  = "duration_ms"
	LogAttrBookID      = "book_id"
	LogAttrAttempts    = "attempts"
	LogAttrTotalDelay  = "total_delay_ms"
	LogAttrErrorType   = "error_type"
	LogAttrStatus      = "status"
	LogAttrState       = "state"

	StatusSuccess = "success"
	StatusError   = "error"
)

// errorType derives a low-cardinality label from a handler error.
func errorType(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrResolvingTimestampFailed):
		return "timestamp_unresolved"
	case errors.Is(err, ErrRetryLimitReached):
		return "retry_limit_reached"
	case errors.Is(err, mirror.ErrUniqueViolation):
		return "unique_violation"
	case errors.Is(err, mirror.ErrForeignEntityMissing):
		return "foreign_entity_missing"
	case errors.Is(err, mirror.ErrBookItemNotFound):
		return "book_item_not_found"
	case errors.Is(err, mirror.ErrUnknownStatusIndex):
		return "unknown_status_index"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "other"
	}
}

func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

func eventAttrs(event chainevents.Event) []any {
	origin := event.Source()

	return []any{
		LogAttrEventType, event.EventType(),
		LogAttrBlockNumber, origin.BlockNumber,
		LogAttrTxHash, origin.TxHash.Hex(),
		LogAttrLogIndex, origin.LogIndex,
	}
}

func (r *Router) logDebug(ctx context.Context, message string, args ...any) {
	if r.contextualLogger != nil {
		r.contextualLogger.DebugContext(ctx, message, args...)
		return
	}

	if r.logger != nil {
		r.logger.Debug(message, args...)
	}
}

func (r *Router) logError(ctx context.Context, message string, args ...any) {
	if r.contextualLogger != nil {
		r.contextualLogger.ErrorContext(ctx, message, args...)
		return
	}

	if r.logger != nil {
		r.logger.Error(message, args...)
	}
}

// logDropped logs a failed event with its full payload, the log line is all that is left of it.
func (r *Router) logDropped(ctx context.Context, event chainevents.Event, err error) {
	args := eventAttrs(event)
	args = append(args, LogAttrError, err.Error(), LogAttrErrorType, errorType(err))

	payload, marshalErr := jsoniter.ConfigFastest.MarshalToString(event)
	if marshalErr != nil {
		r.logError(ctx, LogMsgPayloadFailed, LogAttrError, marshalErr.Error())
	} else {
		args = append(args, LogAttrPayload, payload)
	}

	r.logError(ctx, LogMsgEventDropped, args...)
}

func (r *Router) logChapterAbandoned(ctx context.Context, e chainevents.ChapterCreated, outcome RetryOutcome, err error) {
	args := eventAttrs(e)
	args = append(args,
		LogAttrBookID, e.BookID,
		LogAttrAttempts, outcome.Attempts,
		LogAttrTotalDelay, toMilliseconds(outcome.TotalDelay),
		LogAttrState, string(outcome.State),
	)

	if err != nil {
		args = append(args, LogAttrError, err.Error())
	}

	r.logError(ctx, LogMsgChapterAbandoned, args...)
}

func (r *Router) recordDuration(ctx context.Context, metric string, duration time.Duration, labels map[string]string) {
	if r.metricsCollector == nil {
		return
	}

	if contextualCollector, ok := r.metricsCollector.(mirror.ContextualMetricsCollector); ok {
		contextualCollector.RecordDurationContext(ctx, metric, duration, labels)
		return
	}

	r.metricsCollector.RecordDuration(metric, duration, labels)
}

func (r *Router) incrementCounter(ctx context.Context, metric string, labels map[string]string) {
	if r.metricsCollector == nil {
		return
	}

	if contextualCollector, ok := r.metricsCollector.(mirror.ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(ctx, metric, labels)
		return
	}

	r.metricsCollector.IncrementCounter(metric, labels)
}

func (r *Router) recordValue(ctx context.Context, metric string, value float64, labels map[string]string) {
	if r.metricsCollector == nil {
		return
	}

	if contextualCollector, ok := r.metricsCollector.(mirror.ContextualMetricsCollector); ok {
		contextualCollector.RecordValueContext(ctx, metric, value, labels)
		return
	}

	r.metricsCollector.RecordValue(metric, value, labels)
}

// recordRaceOutcome counts how a foreign-entity race ended.
func (r *Router) recordRaceOutcome(ctx context.Context, eventType string, outcome RetryOutcome) {
	r.incrementCounter(ctx, MetricRaceOutcomes, map[string]string{
		LogAttrEventType: eventType,
		LogAttrState:     string(outcome.State),
	})

	r.recordValue(ctx, MetricRaceAttempts, float64(outcome.Attempts), map[string]string{
		LogAttrEventType: eventType,
	})
}

func (r *Router) startTraceSpan(ctx context.Context, event chainevents.Event) (context.Context, mirror.SpanContext) {
	if r.tracingCollector == nil {
		return ctx, nil
	}

	return r.tracingCollector.StartSpan(ctx, spanNameHandleEvent, map[string]string{
		LogAttrEventType:   event.EventType(),
		LogAttrBlockNumber: strconv.FormatUint(event.Source().BlockNumber, 10),
		LogAttrTxHash:      event.Source().TxHash.Hex(),
	})
}

// finishEvent records the outcome of one handled event in logs, metrics and the tracing span.
func (r *Router) finishEvent(
	ctx context.Context,
	span mirror.SpanContext,
	event chainevents.Event,
	err error,
	duration time.Duration,
) {
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}

	labels := map[string]string{LogAttrEventType: event.EventType(), LogAttrStatus: status}
	r.incrementCounter(ctx, MetricEventsTotal, labels)
	r.recordDuration(ctx, MetricEventDuration, duration, labels)

	if err == nil {
		args := eventAttrs(event)
		args = append(args, LogAttrDurationMS, toMilliseconds(duration))
		r.logDebug(ctx, LogMsgEventProjected, args...)
	}

	if r.tracingCollector == nil || span == nil {
		return
	}

	attrs := map[string]string{LogAttrDurationMS: strconv.FormatFloat(toMilliseconds(duration), 'f', 3, 64)}
	if err != nil {
		attrs[LogAttrErrorType] = errorType(err)
	}

	r.tracingCollector.FinishSpan(span, status, attrs)
}
