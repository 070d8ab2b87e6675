package postgresengine

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	jsoniter "github.com/json-iterator/go"
	"github.com/lib/pq"

	"github.com/AntonStoeckl/dynamic-patient-lists-go/patientlist"
	"github.com/AntonStoeckl/dynamic-patient-lists-go/patientlist/postgresengine/internal/adapters"
)

const (
	defaultEncounterTableName = "encounters"
	defaultListTableName      = "patient_lists"
	dialectPostgres           = "postgres"
	uniqueViolationCode       = "23505"
)

// Engine holds one database connection and the settings shared by the stores built on it.
type Engine struct {
	db                 adapters.DBAdapter
	encounterTableName string
	listTableName      string
	json               jsoniter.API
	now                func() time.Time
	logger             patientlist.Logger
	contextualLogger   patientlist.ContextualLogger
	metricsCollector   patientlist.MetricsCollector
	tracingCollector   patientlist.TracingCollector
}

// NewEngineFromPGXPool creates a new Engine using a pgx Pool with optional configuration.
func NewEngineFromPGXPool(db *pgxpool.Pool, options ...Option) (*Engine, error) {
	if db == nil {
		return nil, patientlist.ErrNilDatabaseConnection
	}

	return newEngine(adapters.NewPGXAdapter(db), options...)
}

// NewEngineFromPGXPoolWithReplica creates a new Engine that reads from replica and writes to primary.
func NewEngineFromPGXPoolWithReplica(primary *pgxpool.Pool, replica *pgxpool.Pool, options ...Option) (*Engine, error) {
	if primary == nil || replica == nil {
		return nil, patientlist.ErrNilDatabaseConnection
	}

	return newEngine(adapters.NewPGXAdapterWithReplica(primary, replica), options...)
}

// NewEngineFromSQLDB creates a new Engine using a sql.DB with optional configuration.
func NewEngineFromSQLDB(db *sql.DB, options ...Option) (*Engine, error) {
	if db == nil {
		return nil, patientlist.ErrNilDatabaseConnection
	}

	return newEngine(adapters.NewSQLAdapter(db), options...)
}

// NewEngineFromSQLX creates a new Engine using a sqlx.DB with optional configuration.
func NewEngineFromSQLX(db *sqlx.DB, options ...Option) (*Engine, error) {
	if db == nil {
		return nil, patientlist.ErrNilDatabaseConnection
	}

	return newEngine(adapters.NewSQLXAdapter(db), options...)
}

func newEngine(db adapters.DBAdapter, options ...Option) (*Engine, error) {
	e := &Engine{
		db:                 db,
		encounterTableName: defaultEncounterTableName,
		listTableName:      defaultListTableName,
		json:               jsoniter.ConfigCompatibleWithStandardLibrary,
		now:                time.Now,
	}

	for _, option := range options {
		if err := option(e); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// Encounters returns the EncounterStore backed by this Engine.
func (e *Engine) Encounters() *EncounterStore {
	return &EncounterStore{engine: e}
}

// Lists returns the ListStore backed by this Engine.
func (e *Engine) Lists() *ListStore {
	return &ListStore{engine: e}
}

// Lookups returns the reference Lookups backed by this Engine.
func (e *Engine) Lookups() *Lookups {
	return &Lookups{engine: e}
}

/***** statement execution *****/

// query runs a read statement and records its duration. The caller closes the returned rows.
func (e *Engine) query(ctx context.Context, operation string, sqlQuery string) (adapters.DBRows, error) {
	return e.timedQuery(ctx, operation, sqlQuery, e.db.Query)
}

// queryPrimary runs a statement that writes and returns rows, bypassing any read replica.
func (e *Engine) queryPrimary(ctx context.Context, operation string, sqlQuery string) (adapters.DBRows, error) {
	run := e.db.Query
	if primary, ok := e.db.(adapters.PrimaryQuerier); ok {
		run = primary.QueryPrimary
	}

	return e.timedQuery(ctx, operation, sqlQuery, run)
}

func (e *Engine) timedQuery(
	ctx context.Context,
	operation string,
	sqlQuery string,
	run func(context.Context, string) (adapters.DBRows, error),
) (adapters.DBRows, error) {

	start := time.Now()
	rows, err := run(ctx, sqlQuery)
	duration := time.Since(start)
	e.logQueryWithDuration(ctx, sqlQuery, operation, duration)

	if err != nil {
		e.recordStatement(ctx, operation, patientlist.StatusError, duration)
		e.recordDBError(ctx, operation, classifyDBError(err))
		e.logError(ctx, logMsgDBQueryFailed, err, logAttrOperation, operation, logAttrQuery, sqlQuery)

		return nil, err
	}

	e.recordStatement(ctx, operation, patientlist.StatusSuccess, duration)

	return rows, nil
}

// exec runs a statement without result rows and returns the number of affected rows.
func (e *Engine) exec(ctx context.Context, operation string, sqlQuery string) (int64, error) {
	result, err := e.execStatement(ctx, operation, sqlQuery)
	if err != nil {
		return 0, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		e.logError(ctx, logMsgRowsAffectedFailed, err, logAttrOperation, operation)
		return 0, err
	}

	return rowsAffected, nil
}

// execStatement runs a statement and records its duration. DDL goes through here directly,
// as some drivers report no affected rows for it.
func (e *Engine) execStatement(ctx context.Context, operation string, sqlQuery string) (adapters.DBResult, error) {
	start := time.Now()
	result, err := e.db.Exec(ctx, sqlQuery)
	duration := time.Since(start)
	e.logQueryWithDuration(ctx, sqlQuery, operation, duration)

	if err != nil {
		e.recordStatement(ctx, operation, patientlist.StatusError, duration)
		e.recordDBError(ctx, operation, classifyDBError(err))
		e.logError(ctx, logMsgDBExecFailed, err, logAttrOperation, operation, logAttrQuery, sqlQuery)

		return nil, err
	}

	e.recordStatement(ctx, operation, patientlist.StatusSuccess, duration)

	return result, nil
}

// closeRows closes database rows and logs any errors.
func (e *Engine) closeRows(ctx context.Context, rows adapters.DBRows) {
	if closeErr := rows.Close(); closeErr != nil {
		e.logWarn(ctx, logMsgCloseRowsFailed, logAttrError, closeErr.Error())
	}
}

// isUniqueViolation reports whether err is a unique constraint violation from either driver.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolationCode
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolationCode
	}

	return false
}

func classifyDBError(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return errorTypeCanceled
	case isUniqueViolation(err):
		return errorTypeUniqueViolation
	default:
		return errorTypeDatabase
	}
}
