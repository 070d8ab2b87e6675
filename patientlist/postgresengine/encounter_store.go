package postgresengine

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/AntonStoeckl/dynamic-patient-lists-go/patientlist"
	"github.com/AntonStoeckl/dynamic-patient-lists-go/patientlist/postgresengine/internal/adapters"
)

const (
	colID                = "id"
	colUUID              = "uuid"
	colPatientID         = "patient_id"
	colEncounterTypeID   = "encounter_type_id"
	colLocationID        = "location_id"
	colEncounterDatetime = "encounter_datetime"
	colProvidersByRole   = "providers_by_role"
	colProviderIDs       = "provider_ids"
	colOrders            = "orders"
	colVoided            = "voided"
	castJsonb            = "?::jsonb"
	castTextArray        = "?::text[]"
	overlapsTextArray    = "? && ?::text[]"
)

// EncounterStore reads and writes encounters. It implements patientlist.EncounterStore.
type EncounterStore struct {
	engine *Engine
}

type encounterRow struct {
	id              int64
	uuid            string
	patientID       string
	encounterTypeID string
	locationID      string
	occurredAt      time.Time
	providersJSON   []byte
	ordersJSON      []byte
}

// Query returns the non-voided encounters matching every set dimension of the query,
// ordered by encounter time and id.
func (s *EncounterStore) Query(ctx context.Context, query patientlist.EncounterQuery) (patientlist.Encounters, error) {
	e := s.engine
	ctx, span := e.startEncounterQuerySpan(ctx, query)
	start := time.Now()

	sqlQuery, buildErr := s.buildSelectQuery(query)
	if buildErr != nil {
		e.logError(ctx, logMsgBuildQueryFailed, buildErr, logAttrOperation, operationQueryEncounters)
		e.recordDBError(ctx, operationQueryEncounters, errorTypeBuildQuery)
		e.finishEncounterQuerySpanError(span, errorTypeBuildQuery, time.Since(start))

		return nil, buildErr
	}

	rows, queryErr := e.query(ctx, operationQueryEncounters, sqlQuery)
	if queryErr != nil {
		e.finishEncounterQuerySpanError(span, classifyDBError(queryErr), time.Since(start))
		return nil, errors.Join(patientlist.ErrQueryingEncountersFailed, queryErr)
	}
	defer e.closeRows(ctx, rows)

	encounters, errorType, scanErr := s.processQueryResults(ctx, rows)
	if scanErr != nil {
		e.recordDBError(ctx, operationQueryEncounters, errorType)
		e.finishEncounterQuerySpanError(span, errorType, time.Since(start))

		return nil, scanErr
	}

	duration := time.Since(start)
	e.logOperation(
		ctx,
		logMsgEncounterQueryDone,
		logAttrEncounterCount, len(encounters),
		logAttrDurationMS, toMilliseconds(duration),
	)
	e.finishEncounterQuerySpanSuccess(span, len(encounters), duration)

	return encounters, nil
}

// processQueryResults scans all rows and decodes their JSON columns.
// On failure it also returns the error type for metrics.
func (s *EncounterStore) processQueryResults(ctx context.Context, rows adapters.DBRows) (patientlist.Encounters, string, error) {
	e := s.engine
	encounters := make(patientlist.Encounters, 0)

	for rows.Next() {
		row := encounterRow{}

		scanErr := rows.Scan(
			&row.id,
			&row.uuid,
			&row.patientID,
			&row.encounterTypeID,
			&row.locationID,
			&row.occurredAt,
			&row.providersJSON,
			&row.ordersJSON,
		)
		if scanErr != nil {
			e.logError(ctx, logMsgScanRowFailed, scanErr)
			return nil, errorTypeScan, errors.Join(patientlist.ErrScanningDBRowFailed, scanErr)
		}

		encounter, decodeErr := s.toEncounter(ctx, row)
		if decodeErr != nil {
			return nil, errorTypeDecode, decodeErr
		}

		encounters = append(encounters, encounter)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		e.logError(ctx, logMsgDBQueryFailed, rowsErr, logAttrOperation, operationQueryEncounters)
		return nil, classifyDBError(rowsErr), errors.Join(patientlist.ErrQueryingEncountersFailed, rowsErr)
	}

	return encounters, "", nil
}

func (s *EncounterStore) toEncounter(ctx context.Context, row encounterRow) (patientlist.Encounter, error) {
	e := s.engine

	encounter := patientlist.Encounter{
		ID:              row.id,
		UUID:            row.uuid,
		PatientID:       row.patientID,
		EncounterTypeID: row.encounterTypeID,
		LocationID:      row.locationID,
		OccurredAt:      row.occurredAt.UTC(),
	}

	if len(row.providersJSON) > 0 {
		if err := e.json.Unmarshal(row.providersJSON, &encounter.ProvidersByRole); err != nil {
			e.logError(ctx, logMsgDecodeColumnFailed, err, logAttrColumn, colProvidersByRole, logAttrEncounterUUID, row.uuid)
			return patientlist.Encounter{}, errors.Join(patientlist.ErrDecodingColumnFailed, err)
		}
	}

	if len(row.ordersJSON) > 0 {
		if err := e.json.Unmarshal(row.ordersJSON, &encounter.Orders); err != nil {
			e.logError(ctx, logMsgDecodeColumnFailed, err, logAttrColumn, colOrders, logAttrEncounterUUID, row.uuid)
			return patientlist.Encounter{}, errors.Join(patientlist.ErrDecodingColumnFailed, err)
		}
	}

	if len(encounter.ProvidersByRole) == 0 {
		encounter.ProvidersByRole = nil
	}

	if len(encounter.Orders) == 0 {
		encounter.Orders = nil
	}

	return encounter, nil
}

// Append inserts encounters. Missing UUIDs are generated, ids are assigned by the database.
func (s *EncounterStore) Append(ctx context.Context, encounters ...patientlist.Encounter) error {
	if len(encounters) == 0 {
		return nil
	}

	e := s.engine

	sqlQuery, buildErr := s.buildInsertQuery(encounters)
	if buildErr != nil {
		e.logError(ctx, logMsgBuildQueryFailed, buildErr, logAttrOperation, operationAppendEncounters)
		return buildErr
	}

	if _, execErr := e.exec(ctx, operationAppendEncounters, sqlQuery); execErr != nil {
		return errors.Join(patientlist.ErrAppendingEncountersFailed, execErr)
	}

	e.logOperation(ctx, logMsgEncountersAppended, logAttrEncounterCount, len(encounters))

	return nil
}

// Void marks the encounter as voided, which hides it from Query.
func (s *EncounterStore) Void(ctx context.Context, encounterUUID string) error {
	e := s.engine

	sqlQuery, _, toSQLErr := goqu.Dialect(dialectPostgres).
		Update(e.encounterTableName).
		Set(goqu.Record{colVoided: true}).
		Where(goqu.C(colUUID).Eq(encounterUUID)).
		ToSQL()
	if toSQLErr != nil {
		return errors.Join(patientlist.ErrBuildingQueryFailed, toSQLErr)
	}

	rowsAffected, execErr := e.exec(ctx, operationVoidEncounter, sqlQuery)
	if execErr != nil {
		return errors.Join(patientlist.ErrVoidingEncounterFailed, execErr)
	}

	if rowsAffected == 0 {
		return patientlist.ErrReferenceNotFound
	}

	e.logOperation(ctx, logMsgEncounterVoided, logAttrEncounterUUID, encounterUUID)

	return nil
}

func (s *EncounterStore) buildSelectQuery(query patientlist.EncounterQuery) (string, error) {
	selectStmt := goqu.Dialect(dialectPostgres).
		From(s.engine.encounterTableName).
		Select(
			colID,
			colUUID,
			colPatientID,
			colEncounterTypeID,
			colLocationID,
			colEncounterDatetime,
			colProvidersByRole,
			colOrders,
		).
		Where(s.whereExpressions(query)...).
		Order(goqu.I(colEncounterDatetime).Asc(), goqu.I(colID).Asc())

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		return "", errors.Join(patientlist.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

func (s *EncounterStore) whereExpressions(query patientlist.EncounterQuery) []exp.Expression {
	expressions := []exp.Expression{goqu.C(colVoided).IsFalse()}

	if query.PatientID() != "" {
		expressions = append(expressions, goqu.C(colPatientID).Eq(query.PatientID()))
	}

	if query.LocationID() != "" {
		expressions = append(expressions, goqu.C(colLocationID).Eq(query.LocationID()))
	}

	if !query.OccurredFrom().IsZero() {
		expressions = append(expressions, goqu.C(colEncounterDatetime).Gte(query.OccurredFrom().UTC()))
	}

	if !query.OccurredUntil().IsZero() {
		expressions = append(expressions, goqu.C(colEncounterDatetime).Lte(query.OccurredUntil().UTC()))
	}

	if encounterTypes := query.EncounterTypes(); len(encounterTypes) > 0 {
		expressions = append(expressions, goqu.C(colEncounterTypeID).In(encounterTypes))
	}

	if providers := query.Providers(); len(providers) > 0 {
		expressions = append(expressions, goqu.L(overlapsTextArray, goqu.C(colProviderIDs), pq.Array(providers)))
	}

	return expressions
}

func (s *EncounterStore) buildInsertQuery(encounters patientlist.Encounters) (string, error) {
	e := s.engine
	rows := make([]any, 0, len(encounters))

	for _, encounter := range encounters {
		if encounter.UUID == "" {
			id, err := uuid.NewV7()
			if err != nil {
				return "", err
			}

			encounter.UUID = id.String()
		}

		providersByRole := encounter.ProvidersByRole
		if providersByRole == nil {
			providersByRole = map[string][]string{}
		}

		providersJSON, err := e.json.Marshal(providersByRole)
		if err != nil {
			return "", errors.Join(patientlist.ErrEncodingColumnFailed, err)
		}

		orders := encounter.Orders
		if orders == nil {
			orders = []patientlist.Order{}
		}

		ordersJSON, err := e.json.Marshal(orders)
		if err != nil {
			return "", errors.Join(patientlist.ErrEncodingColumnFailed, err)
		}

		rows = append(rows, goqu.Record{
			colUUID:              encounter.UUID,
			colPatientID:         encounter.PatientID,
			colEncounterTypeID:   encounter.EncounterTypeID,
			colLocationID:        encounter.LocationID,
			colEncounterDatetime: encounter.OccurredAt.UTC(),
			colProvidersByRole:   goqu.L(castJsonb, string(providersJSON)),
			colProviderIDs:       goqu.L(castTextArray, pq.Array(providerIDs(encounter))),
			colOrders:            goqu.L(castJsonb, string(ordersJSON)),
		})
	}

	sqlQuery, _, toSQLErr := goqu.Dialect(dialectPostgres).
		Insert(e.encounterTableName).
		Rows(rows...).
		ToSQL()
	if toSQLErr != nil {
		return "", errors.Join(patientlist.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

// providerIDs flattens the providers of all roles into a sorted, duplicate-free slice.
func providerIDs(encounter patientlist.Encounter) []string {
	ids := make([]string, 0)

	for _, providers := range encounter.ProvidersByRole {
		ids = append(ids, providers...)
	}

	slices.Sort(ids)

	return slices.Compact(ids)
}

var _ patientlist.EncounterStore = (*EncounterStore)(nil)
