package postgresengine

import (
	"context"
	"errors"
	"math"
	"strconv"
	"time"

	"github.com/AntonStoeckl/library-chain-mirror/mirror"
)

const (
	metricBatchDuration    = "mirror_batch_duration_seconds"
	metricQueryDuration    = "mirror_query_duration_seconds"
	metricStatementCount   = "mirror_statements_total"
	metricRowsWritten      = "mirror_rows_written"
	metricDatabaseErrors   = "mirror_database_errors_total"
	spanNameBatch          = "mirror.batch"
	spanNameFindBook       = "mirror.find_book"
	spanAttrOperation      = "operation"
	spanAttrErrorType      = "error_type"
	spanAttrDurationMS     = "duration_ms"
	operationBatch         = "batch"
	operationFindBook      = "find_book"
	operationCreate        = "insert"
	operationUpdate        = "update"
	statusSuccess          = "success"
	statusError            = "error"
	errorTypeBegin         = "begin_failed"
	errorTypeUnique        = "unique_violation"
	errorTypeForeignKey    = "foreign_entity_missing"
	errorTypeNotFound      = "not_found"
	errorTypeBuildQuery    = "build_query_failed"
	errorTypeQuery         = "query_failed"
	errorTypeWrite         = "write_failed"
	errorTypeCanceled      = "canceled"
	errorTypeUnknownStatus = "unknown_status"
	errorTypeOther         = "other"
)

// errorTypeOf derives a low-cardinality label from an error of the mirror taxonomy.
func errorTypeOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, mirror.ErrUniqueViolation):
		return errorTypeUnique
	case errors.Is(err, mirror.ErrForeignEntityMissing):
		return errorTypeForeignKey
	case errors.Is(err, mirror.ErrBookNotFound), errors.Is(err, mirror.ErrBookItemNotFound):
		return errorTypeNotFound
	case errors.Is(err, mirror.ErrUnknownStatusIndex):
		return errorTypeUnknownStatus
	case errors.Is(err, mirror.ErrBuildingQueryFailed):
		return errorTypeBuildQuery
	case errors.Is(err, mirror.ErrQueryingFailed):
		return errorTypeQuery
	case errors.Is(err, mirror.ErrWritingFailed):
		return errorTypeWrite
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return errorTypeCanceled
	default:
		return errorTypeOther
	}
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

// logQueryWithDuration logs SQL statements with execution time at debug level.
func (g *Gateway) logQueryWithDuration(ctx context.Context, sqlQuery string, action string, duration time.Duration) {
	args := []any{logAttrDurationMS, toMilliseconds(duration), logAttrQuery, sqlQuery}

	if g.contextualLogger != nil {
		g.contextualLogger.DebugContext(ctx, logMsgSQLExecuted+action, args...)
		return
	}

	if g.logger != nil {
		g.logger.Debug(logMsgSQLExecuted+action, args...)
	}
}

// logOperation logs operational information at info level.
func (g *Gateway) logOperation(ctx context.Context, action string, args ...any) {
	if g.contextualLogger != nil {
		g.contextualLogger.InfoContext(ctx, logMsgOperation+action, args...)
		return
	}

	if g.logger != nil {
		g.logger.Info(logMsgOperation+action, args...)
	}
}

// logWarn logs non-critical problems like failed cleanups.
func (g *Gateway) logWarn(ctx context.Context, message string, args ...any) {
	if g.contextualLogger != nil {
		g.contextualLogger.WarnContext(ctx, message, args...)
		return
	}

	if g.logger != nil {
		g.logger.Warn(message, args...)
	}
}

// logError logs error information at the error level.
func (g *Gateway) logError(ctx context.Context, message string, err error, args ...any) {
	allArgs := []any{logAttrError, err.Error()}
	allArgs = append(allArgs, args...)

	if g.contextualLogger != nil {
		g.contextualLogger.ErrorContext(ctx, message, allArgs...)
		return
	}

	if g.logger != nil {
		g.logger.Error(message, allArgs...)
	}
}

// recordDuration records a duration with context if the collector supports it.
func (g *Gateway) recordDuration(ctx context.Context, metric string, duration time.Duration, labels map[string]string) {
	if g.metricsCollector == nil {
		return
	}

	if contextualCollector, ok := g.metricsCollector.(mirror.ContextualMetricsCollector); ok {
		contextualCollector.RecordDurationContext(ctx, metric, duration, labels)
		return
	}

	g.metricsCollector.RecordDuration(metric, duration, labels)
}

// incrementCounter increments a counter with context if the collector supports it.
func (g *Gateway) incrementCounter(ctx context.Context, metric string, labels map[string]string) {
	if g.metricsCollector == nil {
		return
	}

	if contextualCollector, ok := g.metricsCollector.(mirror.ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(ctx, metric, labels)
		return
	}

	g.metricsCollector.IncrementCounter(metric, labels)
}

// recordValue records a value with context if the collector supports it.
func (g *Gateway) recordValue(ctx context.Context, metric string, value float64, labels map[string]string) {
	if g.metricsCollector == nil {
		return
	}

	if contextualCollector, ok := g.metricsCollector.(mirror.ContextualMetricsCollector); ok {
		contextualCollector.RecordValueContext(ctx, metric, value, labels)
		return
	}

	g.metricsCollector.RecordValue(metric, value, labels)
}

// recordStatement records the outcome of a single write statement.
func (g *Gateway) recordStatement(ctx context.Context, table, operation string, rows int64, err error) {
	status := statusSuccess
	if err != nil {
		status = statusError
	}

	labels := map[string]string{logAttrTable: table, spanAttrOperation: operation, "status": status}
	g.incrementCounter(ctx, metricStatementCount, labels)

	if err != nil {
		g.incrementCounter(ctx, metricDatabaseErrors, map[string]string{
			spanAttrOperation: operation,
			spanAttrErrorType: errorTypeOf(err),
		})

		return
	}

	g.recordValue(ctx, metricRowsWritten, float64(rows), labels)
}

// startTraceSpan starts a tracing span if the tracing collector is configured.
func (g *Gateway) startTraceSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, mirror.SpanContext) {
	if g.tracingCollector != nil {
		return g.tracingCollector.StartSpan(ctx, name, attrs)
	}

	return ctx, nil
}

// finishOperation closes the span and records duration and error metrics of a batch or lookup.
func (g *Gateway) finishOperation(
	ctx context.Context,
	span mirror.SpanContext,
	operation string,
	status string,
	errorType string,
	duration time.Duration,
) {
	metric := metricBatchDuration
	if operation == operationFindBook {
		metric = metricQueryDuration
	}

	g.recordDuration(ctx, metric, duration, map[string]string{spanAttrOperation: operation, "status": status})

	if status == statusError {
		g.incrementCounter(ctx, metricDatabaseErrors, map[string]string{
			spanAttrOperation: operation,
			spanAttrErrorType: errorType,
		})
	}

	if g.tracingCollector == nil || span == nil {
		return
	}

	attrs := map[string]string{spanAttrDurationMS: strconv.FormatFloat(toMilliseconds(duration), 'f', 3, 64)}
	if errorType != "" {
		attrs[spanAttrErrorType] = errorType
	}

	g.tracingCollector.FinishSpan(span, status, attrs)
}
