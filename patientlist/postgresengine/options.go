package postgresengine

import (
	"github.com/AntonStoeckl/dynamic-patient-lists-go/patientlist"
)

// Option defines a functional option for configuring an Engine.
type Option func(*Engine) error

// WithEncounterTableName sets the table that holds encounters.
func WithEncounterTableName(tableName string) Option {
	return func(e *Engine) error {
		if tableName == "" {
			return patientlist.ErrEmptyTableName
		}

		e.encounterTableName = tableName

		return nil
	}
}

// WithListTableName sets the table that holds patient list definitions.
func WithListTableName(tableName string) Option {
	return func(e *Engine) error {
		if tableName == "" {
			return patientlist.ErrEmptyTableName
		}

		e.listTableName = tableName

		return nil
	}
}

// WithLogger sets the logger for the Engine.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Debug level: SQL statements with execution timing (development use)
// Info level: Row counts and durations (production-safe)
// Warn level: Non-critical issues like cleanup failures
// Error level: Failures that cause an operation to fail.
func WithLogger(logger patientlist.Logger) Option {
	return func(e *Engine) error {
		e.logger = logger
		return nil
	}
}

// WithContextualLogger sets a logger that also receives the request context, for trace correlation.
func WithContextualLogger(logger patientlist.ContextualLogger) Option {
	return func(e *Engine) error {
		e.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Engine.
// It receives statement durations and database error counts, labelled by operation.
func WithMetrics(collector patientlist.MetricsCollector) Option {
	return func(e *Engine) error {
		e.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the Engine. Encounter queries are traced.
func WithTracing(collector patientlist.TracingCollector) Option {
	return func(e *Engine) error {
		e.tracingCollector = collector
		return nil
	}
}
