package postgresengine

import (
	"context"
	"errors"

	"github.com/doug-martin/goqu/v9"

	"github.com/AntonStoeckl/dynamic-patient-lists-go/patientlist"
)

const colReferenceID = "id"

// ReferenceTable names one of the tables that map reference UUIDs to ids.
type ReferenceTable string

const (
	EncounterTypes ReferenceTable = "encounter_types"
	Locations      ReferenceTable = "locations"
	Providers      ReferenceTable = "providers"
	Patients       ReferenceTable = "patients"
)

// Lookups resolves encounter type, location, provider and patient UUIDs. It implements patientlist.Lookups.
type Lookups struct {
	engine *Engine
}

func (l *Lookups) ResolveEncounterType(ctx context.Context, ref string) (string, error) {
	return l.resolve(ctx, EncounterTypes, ref)
}

func (l *Lookups) ResolveLocation(ctx context.Context, ref string) (string, error) {
	return l.resolve(ctx, Locations, ref)
}

func (l *Lookups) ResolveProvider(ctx context.Context, ref string) (patientlist.ProviderID, error) {
	return l.resolve(ctx, Providers, ref)
}

func (l *Lookups) ResolvePatient(ctx context.Context, ref string) (patientlist.PatientID, error) {
	return l.resolve(ctx, Patients, ref)
}

// Register maps ref to id in the table, replacing an existing mapping for ref.
func (l *Lookups) Register(ctx context.Context, table ReferenceTable, ref, id string) error {
	e := l.engine

	sqlQuery, _, toSQLErr := goqu.Dialect(dialectPostgres).
		Insert(string(table)).
		Rows(goqu.Record{colUUID: ref, colReferenceID: id}).
		OnConflict(goqu.DoUpdate(colUUID, goqu.Record{colReferenceID: goqu.I("excluded." + colReferenceID)})).
		ToSQL()
	if toSQLErr != nil {
		return errors.Join(patientlist.ErrBuildingQueryFailed, toSQLErr)
	}

	if _, execErr := e.exec(ctx, operationRegisterReference, sqlQuery); execErr != nil {
		return execErr
	}

	return nil
}

func (l *Lookups) resolve(ctx context.Context, table ReferenceTable, ref string) (string, error) {
	e := l.engine

	if ref == "" {
		return "", patientlist.ErrReferenceNotFound
	}

	sqlQuery, _, toSQLErr := goqu.Dialect(dialectPostgres).
		From(string(table)).
		Select(colReferenceID).
		Where(goqu.C(colUUID).Eq(ref)).
		Limit(1).
		ToSQL()
	if toSQLErr != nil {
		return "", errors.Join(patientlist.ErrBuildingQueryFailed, toSQLErr)
	}

	rows, queryErr := e.query(ctx, operationResolveReference, sqlQuery)
	if queryErr != nil {
		return "", queryErr
	}
	defer e.closeRows(ctx, rows)

	if !rows.Next() {
		if rowsErr := rows.Err(); rowsErr != nil {
			return "", rowsErr
		}

		return "", patientlist.ErrReferenceNotFound
	}

	var id string
	if scanErr := rows.Scan(&id); scanErr != nil {
		return "", errors.Join(patientlist.ErrScanningDBRowFailed, scanErr)
	}

	return id, nil
}

var _ patientlist.Lookups = (*Lookups)(nil)
