package patientlist

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

const (
	metricResolveDuration     = "patientlist_resolve_duration_seconds"
	metricResolveTotal        = "patientlist_resolve_total"
	metricResolveErrors       = "patientlist_resolve_errors_total"
	metricResolvedEncounters  = "patientlist_resolved_encounters"
	spanNameResolve           = "patientlist.resolve"
	spanAttrOperation         = "operation"
	spanAttrListUUID          = "list_uuid"
	spanAttrEncounterCount    = "encounter_count"
	spanAttrDurationMS        = "duration_ms"
	spanAttrErrorType         = "error_type"
	labelStatus               = "status"
	operationResolve          = "resolve"
	errorTypeCycle            = "cyclic_reference"
	errorTypeMaxDepth         = "max_depth_exceeded"
	errorTypeCanceled         = "canceled"
	errorTypeEncounterQuery   = "encounter_query"
	errorTypeListLoad         = "list_load"
	errorTypeReferenceResolve = "reference_resolve"
	errorTypeUnknown          = "unknown"
)

/***** logging *****/

func (r *Resolver) logDebugContext(ctx context.Context, msg string, args ...any) {
	if r.contextualLogger != nil {
		r.contextualLogger.DebugContext(ctx, msg, args...)
	}

	if r.logger != nil {
		r.logger.Debug(msg, args...)
	}
}

func (r *Resolver) logInfoContext(ctx context.Context, msg string, args ...any) {
	if r.contextualLogger != nil {
		r.contextualLogger.InfoContext(ctx, msg, args...)
	}

	if r.logger != nil {
		r.logger.Info(msg, args...)
	}
}

func (r *Resolver) logWarnContext(ctx context.Context, msg string, args ...any) {
	if r.contextualLogger != nil {
		r.contextualLogger.WarnContext(ctx, msg, args...)
	}

	if r.logger != nil {
		r.logger.Warn(msg, args...)
	}
}

func (r *Resolver) logErrorContext(ctx context.Context, msg string, err error, args ...any) {
	allArgs := []any{logAttrError, err.Error()}
	allArgs = append(allArgs, args...)

	if r.contextualLogger != nil {
		r.contextualLogger.ErrorContext(ctx, msg, allArgs...)
	}

	if r.logger != nil {
		r.logger.Error(msg, allArgs...)
	}
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

/***** metrics *****/

func (r *Resolver) recordResolveSuccess(ctx context.Context, list PatientList, encounterCount int, duration time.Duration) {
	r.logInfoContext(
		ctx,
		logMsgOperation+logMsgResolutionCompleted,
		logAttrListUUID, list.UUID,
		logAttrEncounterCount, encounterCount,
		logAttrDurationMS, toMilliseconds(duration),
	)

	labels := map[string]string{spanAttrOperation: operationResolve, labelStatus: StatusSuccess}
	r.recordDuration(ctx, metricResolveDuration, duration, labels)
	r.incrementCounter(ctx, metricResolveTotal, labels)
	r.recordValue(ctx, metricResolvedEncounters, float64(encounterCount), labels)
}

func (r *Resolver) recordResolveError(ctx context.Context, err error, duration time.Duration) {
	labels := map[string]string{spanAttrOperation: operationResolve, labelStatus: StatusError}
	r.recordDuration(ctx, metricResolveDuration, duration, labels)
	r.incrementCounter(ctx, metricResolveTotal, labels)

	errorLabels := map[string]string{
		spanAttrOperation: operationResolve,
		labelStatus:       StatusError,
		spanAttrErrorType: classifyError(err),
	}
	r.incrementCounter(ctx, metricResolveErrors, errorLabels)
}

func (r *Resolver) recordDuration(ctx context.Context, metric string, duration time.Duration, labels map[string]string) {
	if r.metricsCollector == nil {
		return
	}

	if contextual, ok := r.metricsCollector.(ContextualMetricsCollector); ok {
		contextual.RecordDurationContext(ctx, metric, duration, labels)
		return
	}

	r.metricsCollector.RecordDuration(metric, duration, labels)
}

func (r *Resolver) incrementCounter(ctx context.Context, metric string, labels map[string]string) {
	if r.metricsCollector == nil {
		return
	}

	if contextual, ok := r.metricsCollector.(ContextualMetricsCollector); ok {
		contextual.IncrementCounterContext(ctx, metric, labels)
		return
	}

	r.metricsCollector.IncrementCounter(metric, labels)
}

func (r *Resolver) recordValue(ctx context.Context, metric string, value float64, labels map[string]string) {
	if r.metricsCollector == nil {
		return
	}

	if contextual, ok := r.metricsCollector.(ContextualMetricsCollector); ok {
		contextual.RecordValueContext(ctx, metric, value, labels)
		return
	}

	r.metricsCollector.RecordValue(metric, value, labels)
}

func classifyError(err error) string {
	switch {
	case errors.Is(err, ErrCyclicReference):
		return errorTypeCycle
	case errors.Is(err, ErrMaxDepthExceeded):
		return errorTypeMaxDepth
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return errorTypeCanceled
	case errors.Is(err, ErrQueryingEncountersFailed):
		return errorTypeEncounterQuery
	case errors.Is(err, ErrLoadingPatientListFailed):
		return errorTypeListLoad
	case errors.Is(err, ErrResolvingReferenceFailed):
		return errorTypeReferenceResolve
	default:
		return errorTypeUnknown
	}
}

/***** tracing *****/

// resolveTracingObserver encapsulates the span lifecycle of one top-level resolution.
type resolveTracingObserver struct {
	r    *Resolver
	span SpanContext
}

func (r *Resolver) startResolveTracing(ctx context.Context, list PatientList) (*resolveTracingObserver, context.Context) {
	observer := &resolveTracingObserver{r: r}

	if r.tracingCollector == nil {
		return observer, ctx
	}

	newCtx, span := r.tracingCollector.StartSpan(ctx, spanNameResolve, map[string]string{
		spanAttrOperation: operationResolve,
		spanAttrListUUID:  list.UUID,
	})
	observer.span = span

	return observer, newCtx
}

func (o *resolveTracingObserver) finishSuccess(encounterCount int, duration time.Duration) {
	if o.span == nil {
		return
	}

	o.span.SetStatus(StatusSuccess)
	o.span.AddAttribute(spanAttrDurationMS, fmt.Sprintf("%.2f", float64(duration.Nanoseconds())/1e6))

	o.r.tracingCollector.FinishSpan(o.span, StatusSuccess, map[string]string{
		spanAttrEncounterCount: fmt.Sprintf("%d", encounterCount),
	})
}

func (o *resolveTracingObserver) finishError(err error, duration time.Duration) {
	if o.span == nil {
		return
	}

	o.span.SetStatus(StatusError)
	o.span.AddAttribute(spanAttrDurationMS, fmt.Sprintf("%.2f", float64(duration.Nanoseconds())/1e6))

	o.r.tracingCollector.FinishSpan(o.span, StatusError, map[string]string{
		spanAttrErrorType: classifyError(err),
	})
}
