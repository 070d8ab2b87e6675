package patientlist

import (
	"slices"
	"time"
)

/***** EncounterQuery *****/

// EncounterQuery is the conjunctive query a Resolver issues against an EncounterStore.
// Zero values mean "no constraint on that dimension".
type EncounterQuery struct {
	patientID      PatientID
	locationID     string
	occurredFrom   time.Time
	occurredUntil  time.Time
	encounterTypes []string
	providers      []ProviderID
}

func (q EncounterQuery) PatientID() PatientID {
	return q.patientID
}

func (q EncounterQuery) LocationID() string {
	return q.locationID
}

func (q EncounterQuery) OccurredFrom() time.Time {
	return q.occurredFrom
}

func (q EncounterQuery) OccurredUntil() time.Time {
	return q.occurredUntil
}

func (q EncounterQuery) EncounterTypes() []string {
	return q.encounterTypes
}

func (q EncounterQuery) Providers() []ProviderID {
	return q.providers
}

// IsEmpty reports whether the query constrains nothing.
func (q EncounterQuery) IsEmpty() bool {
	return q.patientID == "" &&
		q.locationID == "" &&
		q.occurredFrom.IsZero() &&
		q.occurredUntil.IsZero() &&
		len(q.encounterTypes) == 0 &&
		len(q.providers) == 0
}

// Matches evaluates the query against a single Encounter.
// Both time bounds are inclusive, an Encounter matches the providers constraint if any listed provider is credited
// with it in any role.
func (q EncounterQuery) Matches(e Encounter) bool {
	if q.patientID != "" && e.PatientID != q.patientID {
		return false
	}

	if q.locationID != "" && e.LocationID != q.locationID {
		return false
	}

	if !q.occurredFrom.IsZero() && e.OccurredAt.Before(q.occurredFrom) {
		return false
	}

	if !q.occurredUntil.IsZero() && e.OccurredAt.After(q.occurredUntil) {
		return false
	}

	if len(q.encounterTypes) > 0 && !slices.Contains(q.encounterTypes, e.EncounterTypeID) {
		return false
	}

	if len(q.providers) > 0 && !slices.ContainsFunc(q.providers, e.HasProvider) {
		return false
	}

	return true
}

/***** EncounterQueryBuilder *****/

// EncounterQueryBuilder builds an EncounterQuery. Every method returns a copy, so partially built queries can be
// shared and extended independently.
type EncounterQueryBuilder struct {
	query EncounterQuery
}

// BuildEncounterQuery creates an EncounterQueryBuilder which must eventually be finalized with Finalize().
func BuildEncounterQuery() EncounterQueryBuilder {
	return EncounterQueryBuilder{}
}

// ForPatient restricts the query to one patient. An empty id leaves the dimension unconstrained.
func (b EncounterQueryBuilder) ForPatient(patientID PatientID) EncounterQueryBuilder {
	b.query.patientID = patientID

	return b
}

// AtLocation restricts the query to one location. An empty id leaves the dimension unconstrained.
func (b EncounterQueryBuilder) AtLocation(locationID string) EncounterQueryBuilder {
	b.query.locationID = locationID

	return b
}

// OccurredFrom sets the inclusive lower time bound. A zero time leaves it unset.
func (b EncounterQueryBuilder) OccurredFrom(from time.Time) EncounterQueryBuilder {
	b.query.occurredFrom = from

	return b
}

// OccurredUntil sets the inclusive upper time bound. A zero time leaves it unset.
func (b EncounterQueryBuilder) OccurredUntil(until time.Time) EncounterQueryBuilder {
	b.query.occurredUntil = until

	return b
}

// WithAnyEncounterTypeOf adds one or multiple encounter types, expecting ANY of them to match.
//
// It sanitizes the input:
//   - removing empty ids ("")
//   - sorting the ids
//   - removing duplicate ids
func (b EncounterQueryBuilder) WithAnyEncounterTypeOf(encounterType string, encounterTypes ...string) EncounterQueryBuilder {
	b.query.encounterTypes = sanitizeIDs(b.query.encounterTypes, encounterType, encounterTypes...)

	return b
}

// WithAnyProviderOf adds one or multiple providers, expecting ANY of them to be credited with the encounter.
//
// It sanitizes the input the same way as WithAnyEncounterTypeOf.
func (b EncounterQueryBuilder) WithAnyProviderOf(provider ProviderID, providers ...ProviderID) EncounterQueryBuilder {
	b.query.providers = sanitizeIDs(b.query.providers, provider, providers...)

	return b
}

// Finalize returns the EncounterQuery.
func (b EncounterQueryBuilder) Finalize() EncounterQuery {
	return b.query
}

func sanitizeIDs(existing []string, id string, ids ...string) []string {
	all := slices.Concat(existing, []string{id}, ids)
	all = slices.DeleteFunc(all, func(s string) bool {
		return s == ""
	})
	slices.Sort(all)
	all = slices.Compact(all)
	all = slices.Clip(all)

	if len(all) == 0 {
		return nil
	}

	return all
}
