package patientlist

import (
	"context"
)

// ListStore persists PatientList definitions.
//
// GetByUUID returns ErrPatientListNotFound when no list has the given UUID.
type ListStore interface {
	GetByUUID(ctx context.Context, uuid string) (PatientList, error)
	GetByName(ctx context.Context, name string) ([]PatientList, error)
	GetByEncounterType(ctx context.Context, encounterTypeUUID string) ([]PatientList, error)
	GetAll(ctx context.Context, includeRetired bool) ([]PatientList, error)
	Save(ctx context.Context, list PatientList) (PatientList, error)
	Update(ctx context.Context, list PatientList) (PatientList, error)
	Delete(ctx context.Context, list PatientList) error
}

// ListGetter is the read-only part of ListStore the Resolver depends on.
type ListGetter interface {
	GetByUUID(ctx context.Context, uuid string) (PatientList, error)
}

// EncounterStore answers conjunctive encounter queries. Unset dimensions of the EncounterQuery apply no constraint.
type EncounterStore interface {
	Query(ctx context.Context, query EncounterQuery) (Encounters, error)
}

// Lookups resolve the opaque references used in list queries to ids.
// Each method returns ErrReferenceNotFound when the reference is unknown.
type Lookups interface {
	ResolveEncounterType(ctx context.Context, ref string) (string, error)
	ResolveLocation(ctx context.Context, ref string) (string, error)
	ResolveProvider(ctx context.Context, ref string) (ProviderID, error)
	ResolvePatient(ctx context.Context, ref string) (PatientID, error)
}

// IdentityLookups treats every non-empty reference as the id it refers to.
type IdentityLookups struct{}

func (IdentityLookups) ResolveEncounterType(_ context.Context, ref string) (string, error) {
	return identity(ref)
}

func (IdentityLookups) ResolveLocation(_ context.Context, ref string) (string, error) {
	return identity(ref)
}

func (IdentityLookups) ResolveProvider(_ context.Context, ref string) (ProviderID, error) {
	return identity(ref)
}

func (IdentityLookups) ResolvePatient(_ context.Context, ref string) (PatientID, error) {
	return identity(ref)
}

func identity(ref string) (string, error) {
	if ref == "" {
		return "", ErrReferenceNotFound
	}

	return ref, nil
}
