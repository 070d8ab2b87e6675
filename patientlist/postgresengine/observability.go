package postgresengine

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/AntonStoeckl/dynamic-patient-lists-go/patientlist"
)

const (
	logMsgBuildQueryFailed     = "failed to build sql statement"
	logMsgDBQueryFailed        = "database query execution failed"
	logMsgDBExecFailed         = "database statement execution failed"
	logMsgRowsAffectedFailed   = "failed to get rows affected count"
	logMsgCloseRowsFailed      = "failed to close database rows"
	logMsgScanRowFailed        = "failed to scan database row"
	logMsgDecodeColumnFailed   = "failed to decode json column"
	logMsgEncounterQueryDone   = "encounters queried"
	logMsgEncountersAppended   = "encounters appended"
	logMsgEncounterVoided      = "encounter voided"
	logMsgListSaved            = "patient list saved"
	logMsgListUpdated          = "patient list updated"
	logMsgListDeleted          = "patient list deleted"
	logMsgSchemaCreated        = "schema created"
	logMsgSQLExecuted          = "executed sql for: "
	logMsgOperation            = "postgresengine operation: "
	logAttrError               = "error"
	logAttrQuery               = "query"
	logAttrOperation           = "operation"
	logAttrColumn              = "column"
	logAttrEncounterCount      = "encounter_count"
	logAttrListUUID            = "list_uuid"
	logAttrEncounterUUID       = "encounter_uuid"
	logAttrDurationMS          = "duration_ms"
	metricDBQueryDuration      = "patientlist_db_query_duration_seconds"
	metricDBErrors             = "patientlist_db_errors_total"
	spanNameEncounterQuery     = "patientlist.encounters.query"
	spanAttrOperation          = "operation"
	spanAttrEncounterCount     = "encounter_count"
	spanAttrDurationMS         = "duration_ms"
	spanAttrErrorType          = "error_type"
	spanAttrPatientConstrained = "patient_constrained"
	spanAttrEncounterTypeCount = "encounter_type_count"
	labelStatus                = "status"
	operationQueryEncounters   = "query_encounters"
	operationAppendEncounters  = "append_encounters"
	operationVoidEncounter     = "void_encounter"
	operationGetLists          = "get_lists"
	operationSaveList          = "save_list"
	operationUpdateList        = "update_list"
	operationDeleteList        = "delete_list"
	operationResolveReference  = "resolve_reference"
	operationRegisterReference = "register_reference"
	operationCreateSchema      = "create_schema"
	errorTypeBuildQuery        = "build_query"
	errorTypeDatabase          = "database"
	errorTypeScan              = "row_scan"
	errorTypeDecode            = "json_decode"
	errorTypeCanceled          = "canceled"
	errorTypeUniqueViolation   = "unique_violation"
)

/***** logging *****/

// logQueryWithDuration logs SQL statements with execution time at debug level.
func (e *Engine) logQueryWithDuration(ctx context.Context, sqlQuery string, operation string, duration time.Duration) {
	e.logDebug(ctx, logMsgSQLExecuted+operation, logAttrDurationMS, toMilliseconds(duration), logAttrQuery, sqlQuery)
}

// logOperation logs operational information at info level.
func (e *Engine) logOperation(ctx context.Context, action string, args ...any) {
	if e.contextualLogger != nil {
		e.contextualLogger.InfoContext(ctx, logMsgOperation+action, args...)
	}

	if e.logger != nil {
		e.logger.Info(logMsgOperation+action, args...)
	}
}

func (e *Engine) logDebug(ctx context.Context, msg string, args ...any) {
	if e.contextualLogger != nil {
		e.contextualLogger.DebugContext(ctx, msg, args...)
	}

	if e.logger != nil {
		e.logger.Debug(msg, args...)
	}
}

func (e *Engine) logWarn(ctx context.Context, msg string, args ...any) {
	if e.contextualLogger != nil {
		e.contextualLogger.WarnContext(ctx, msg, args...)
	}

	if e.logger != nil {
		e.logger.Warn(msg, args...)
	}
}

func (e *Engine) logError(ctx context.Context, msg string, err error, args ...any) {
	allArgs := []any{logAttrError, err.Error()}
	allArgs = append(allArgs, args...)

	if e.contextualLogger != nil {
		e.contextualLogger.ErrorContext(ctx, msg, allArgs...)
	}

	if e.logger != nil {
		e.logger.Error(msg, allArgs...)
	}
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

/***** metrics *****/

// recordStatement records the duration of one SQL statement.
func (e *Engine) recordStatement(ctx context.Context, operation, status string, duration time.Duration) {
	if e.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		spanAttrOperation: operation,
		labelStatus:       status,
	}

	if contextual, ok := e.metricsCollector.(patientlist.ContextualMetricsCollector); ok {
		contextual.RecordDurationContext(ctx, metricDBQueryDuration, duration, labels)
		return
	}

	e.metricsCollector.RecordDuration(metricDBQueryDuration, duration, labels)
}

// recordDBError counts a failed database operation.
func (e *Engine) recordDBError(ctx context.Context, operation, errorType string) {
	if e.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		spanAttrOperation: operation,
		labelStatus:       patientlist.StatusError,
		spanAttrErrorType: errorType,
	}

	if contextual, ok := e.metricsCollector.(patientlist.ContextualMetricsCollector); ok {
		contextual.IncrementCounterContext(ctx, metricDBErrors, labels)
		return
	}

	e.metricsCollector.IncrementCounter(metricDBErrors, labels)
}

/***** tracing *****/

func (e *Engine) startEncounterQuerySpan(
	ctx context.Context,
	query patientlist.EncounterQuery,
) (context.Context, patientlist.SpanContext) {

	if e.tracingCollector == nil {
		return ctx, nil
	}

	return e.tracingCollector.StartSpan(ctx, spanNameEncounterQuery, map[string]string{
		spanAttrOperation:          operationQueryEncounters,
		spanAttrPatientConstrained: fmt.Sprintf("%t", query.PatientID() != ""),
		spanAttrEncounterTypeCount: fmt.Sprintf("%d", len(query.EncounterTypes())),
	})
}

func (e *Engine) finishEncounterQuerySpanSuccess(span patientlist.SpanContext, encounterCount int, duration time.Duration) {
	if span == nil {
		return
	}

	span.SetStatus(patientlist.StatusSuccess)
	span.AddAttribute(spanAttrEncounterCount, fmt.Sprintf("%d", encounterCount))
	span.AddAttribute(spanAttrDurationMS, fmt.Sprintf("%.2f", float64(duration.Nanoseconds())/1e6))

	e.tracingCollector.FinishSpan(span, patientlist.StatusSuccess, map[string]string{
		spanAttrEncounterCount: fmt.Sprintf("%d", encounterCount),
	})
}

func (e *Engine) finishEncounterQuerySpanError(span patientlist.SpanContext, errorType string, duration time.Duration) {
	if span == nil {
		return
	}

	span.SetStatus(patientlist.StatusError)
	span.AddAttribute(spanAttrErrorType, errorType)
	span.AddAttribute(spanAttrDurationMS, fmt.Sprintf("%.2f", float64(duration.Nanoseconds())/1e6))

	e.tracingCollector.FinishSpan(span, patientlist.StatusError, map[string]string{
		spanAttrErrorType: errorType,
	})
}
