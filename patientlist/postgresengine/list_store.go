package postgresengine

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"

	"github.com/AntonStoeckl/dynamic-patient-lists-go/patientlist"
	"github.com/AntonStoeckl/dynamic-patient-lists-go/patientlist/postgresengine/internal/adapters"
)

const (
	colName        = "name"
	colDescription = "description"
	colSearchQuery = "search_query"
	colRetired     = "retired"
	colDateCreated = "date_created"
	likeContains   = "%"
	fragmentEnd    = "&"
)

// ListStore persists patient list definitions. It implements patientlist.ListStore.
type ListStore struct {
	engine *Engine
}

// GetByUUID returns the list with the given UUID or patientlist.ErrPatientListNotFound.
func (s *ListStore) GetByUUID(ctx context.Context, listUUID string) (patientlist.PatientList, error) {
	lists, err := s.selectLists(ctx, goqu.C(colUUID).Eq(listUUID))
	if err != nil {
		return patientlist.PatientList{}, err
	}

	if len(lists) == 0 {
		return patientlist.PatientList{}, patientlist.ErrPatientListNotFound
	}

	return lists[0], nil
}

// GetByName returns all lists, retired ones included, with exactly the given name.
func (s *ListStore) GetByName(ctx context.Context, name string) ([]patientlist.PatientList, error) {
	return s.selectLists(ctx, goqu.C(colName).Eq(name))
}

// GetByEncounterType returns all lists whose search query references the encounter type.
// The reference must be the whole fragment value, so a uuid never matches a longer uuid it is a prefix of.
func (s *ListStore) GetByEncounterType(ctx context.Context, encounterTypeUUID string) ([]patientlist.PatientList, error) {
	if encounterTypeUUID == "" {
		return []patientlist.PatientList{}, nil
	}

	needle := likeContains + escapeLike(patientlist.QueryKeyEncounterType+encounterTypeUUID)

	return s.selectLists(ctx, goqu.Or(
		goqu.C(colSearchQuery).Like(needle+fragmentEnd+likeContains),
		goqu.C(colSearchQuery).Like(needle),
	))
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes LIKE wildcards in s match literally, using the default backslash escape.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// GetAll returns all lists, optionally including retired ones.
func (s *ListStore) GetAll(ctx context.Context, includeRetired bool) ([]patientlist.PatientList, error) {
	if includeRetired {
		return s.selectLists(ctx)
	}

	return s.selectLists(ctx, goqu.C(colRetired).IsFalse())
}

// Save stores a new list. It assigns a UUID and a creation date when they are missing; the id comes from the database.
func (s *ListStore) Save(ctx context.Context, list patientlist.PatientList) (patientlist.PatientList, error) {
	e := s.engine

	if list.UUID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return patientlist.PatientList{}, errors.Join(patientlist.ErrSavingPatientListFailed, err)
		}

		list.UUID = id.String()
	}

	if list.DateCreated.IsZero() {
		list.DateCreated = e.now()
	}

	list.DateCreated = list.DateCreated.UTC().Truncate(time.Microsecond)

	sqlQuery, _, toSQLErr := goqu.Dialect(dialectPostgres).
		Insert(e.listTableName).
		Rows(goqu.Record{
			colUUID:        list.UUID,
			colName:        list.Name,
			colDescription: list.Description,
			colSearchQuery: list.SearchQuery,
			colRetired:     list.Retired,
			colDateCreated: list.DateCreated,
		}).
		Returning(colID).
		ToSQL()
	if toSQLErr != nil {
		e.logError(ctx, logMsgBuildQueryFailed, toSQLErr, logAttrOperation, operationSaveList)
		return patientlist.PatientList{}, errors.Join(patientlist.ErrBuildingQueryFailed, toSQLErr)
	}

	id, err := s.returnedID(ctx, operationSaveList, sqlQuery)
	if isUniqueViolation(err) {
		return patientlist.PatientList{}, patientlist.ErrPatientListExists
	}

	if err != nil {
		return patientlist.PatientList{}, errors.Join(patientlist.ErrSavingPatientListFailed, err)
	}

	list.ID = id
	e.logOperation(ctx, logMsgListSaved, logAttrListUUID, list.UUID)

	return list, nil
}

// Update replaces name, description, search query and retired flag of the list with the same UUID.
// ID and creation date are kept.
func (s *ListStore) Update(ctx context.Context, list patientlist.PatientList) (patientlist.PatientList, error) {
	e := s.engine

	existing, err := s.GetByUUID(ctx, list.UUID)
	if err != nil {
		return patientlist.PatientList{}, err
	}

	sqlQuery, _, toSQLErr := goqu.Dialect(dialectPostgres).
		Update(e.listTableName).
		Set(goqu.Record{
			colName:        list.Name,
			colDescription: list.Description,
			colSearchQuery: list.SearchQuery,
			colRetired:     list.Retired,
		}).
		Where(goqu.C(colUUID).Eq(list.UUID)).
		ToSQL()
	if toSQLErr != nil {
		e.logError(ctx, logMsgBuildQueryFailed, toSQLErr, logAttrOperation, operationUpdateList)
		return patientlist.PatientList{}, errors.Join(patientlist.ErrBuildingQueryFailed, toSQLErr)
	}

	rowsAffected, execErr := e.exec(ctx, operationUpdateList, sqlQuery)
	if execErr != nil {
		return patientlist.PatientList{}, errors.Join(patientlist.ErrSavingPatientListFailed, execErr)
	}

	if rowsAffected == 0 {
		return patientlist.PatientList{}, patientlist.ErrPatientListNotFound
	}

	list.ID = existing.ID
	list.DateCreated = existing.DateCreated
	e.logOperation(ctx, logMsgListUpdated, logAttrListUUID, list.UUID)

	return list, nil
}

// Delete removes the list with the same UUID.
func (s *ListStore) Delete(ctx context.Context, list patientlist.PatientList) error {
	e := s.engine

	sqlQuery, _, toSQLErr := goqu.Dialect(dialectPostgres).
		Delete(e.listTableName).
		Where(goqu.C(colUUID).Eq(list.UUID)).
		ToSQL()
	if toSQLErr != nil {
		return errors.Join(patientlist.ErrBuildingQueryFailed, toSQLErr)
	}

	rowsAffected, execErr := e.exec(ctx, operationDeleteList, sqlQuery)
	if execErr != nil {
		return errors.Join(patientlist.ErrDeletingPatientListFailed, execErr)
	}

	if rowsAffected == 0 {
		return patientlist.ErrPatientListNotFound
	}

	e.logOperation(ctx, logMsgListDeleted, logAttrListUUID, list.UUID)

	return nil
}

func (s *ListStore) selectLists(ctx context.Context, where ...exp.Expression) ([]patientlist.PatientList, error) {
	e := s.engine

	sqlQuery, _, toSQLErr := goqu.Dialect(dialectPostgres).
		From(e.listTableName).
		Select(colID, colUUID, colName, colDescription, colSearchQuery, colRetired, colDateCreated).
		Where(where...).
		Order(goqu.I(colID).Asc()).
		ToSQL()
	if toSQLErr != nil {
		e.logError(ctx, logMsgBuildQueryFailed, toSQLErr, logAttrOperation, operationGetLists)
		return nil, errors.Join(patientlist.ErrBuildingQueryFailed, toSQLErr)
	}

	rows, queryErr := e.query(ctx, operationGetLists, sqlQuery)
	if queryErr != nil {
		return nil, errors.Join(patientlist.ErrLoadingPatientListFailed, queryErr)
	}
	defer e.closeRows(ctx, rows)

	return s.scanLists(ctx, rows)
}

func (s *ListStore) scanLists(ctx context.Context, rows adapters.DBRows) ([]patientlist.PatientList, error) {
	e := s.engine
	lists := make([]patientlist.PatientList, 0)

	for rows.Next() {
		list := patientlist.PatientList{}

		scanErr := rows.Scan(&list.ID, &list.UUID, &list.Name, &list.Description, &list.SearchQuery, &list.Retired, &list.DateCreated)
		if scanErr != nil {
			e.logError(ctx, logMsgScanRowFailed, scanErr)
			e.recordDBError(ctx, operationGetLists, errorTypeScan)

			return nil, errors.Join(patientlist.ErrScanningDBRowFailed, scanErr)
		}

		list.DateCreated = list.DateCreated.UTC()
		lists = append(lists, list)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, errors.Join(patientlist.ErrLoadingPatientListFailed, rowsErr)
	}

	return lists, nil
}

// returnedID runs an INSERT ... RETURNING id on the primary and scans the id.
// With pgx, constraint violations only surface once the rows are read.
func (s *ListStore) returnedID(ctx context.Context, operation string, sqlQuery string) (int64, error) {
	e := s.engine

	rows, queryErr := e.queryPrimary(ctx, operation, sqlQuery)
	if queryErr != nil {
		return 0, queryErr
	}
	defer e.closeRows(ctx, rows)

	var id int64

	if rows.Next() {
		if scanErr := rows.Scan(&id); scanErr != nil {
			return 0, errors.Join(patientlist.ErrScanningDBRowFailed, scanErr)
		}
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		e.recordDBError(ctx, operation, classifyDBError(rowsErr))
		e.logError(ctx, logMsgDBQueryFailed, rowsErr, logAttrOperation, operation)

		return 0, rowsErr
	}

	return id, nil
}

var _ patientlist.ListStore = (*ListStore)(nil)
