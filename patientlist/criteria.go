package patientlist

import (
	"strings"
	"time"
)

// FilterCriteria is the parsed form of a PatientList search query. It is immutable, build it with ParseQuery.
type FilterCriteria struct {
	encounterTypeRef  string
	locationRef       string
	startDate         time.Time
	endDate           time.Time
	providerRef       string
	patientRef        string
	inListRefs        []string
	notInListRefs     []string
	containsOrderType string
	malformedFields   []string
}

func (c FilterCriteria) EncounterTypeRef() string {
	return c.encounterTypeRef
}

func (c FilterCriteria) LocationRef() string {
	return c.locationRef
}

// StartDate returns the inclusive lower bound, the zero time when unset.
func (c FilterCriteria) StartDate() time.Time {
	return c.startDate
}

// EndDate returns the inclusive upper bound, the zero time when unset.
func (c FilterCriteria) EndDate() time.Time {
	return c.endDate
}

func (c FilterCriteria) ProviderRef() string {
	return c.providerRef
}

func (c FilterCriteria) PatientRef() string {
	return c.patientRef
}

// InListRefs returns a copy of the referenced inclusion list UUIDs in query order.
func (c FilterCriteria) InListRefs() []string {
	return append([]string(nil), c.inListRefs...)
}

// NotInListRefs returns a copy of the referenced exclusion list UUIDs in query order.
func (c FilterCriteria) NotInListRefs() []string {
	return append([]string(nil), c.notInListRefs...)
}

func (c FilterCriteria) ContainsOrderType() string {
	return c.containsOrderType
}

// MalformedFields lists the query keys whose values could not be parsed, e.g. "startDate".
func (c FilterCriteria) MalformedFields() []string {
	return append([]string(nil), c.malformedFields...)
}

// UsesInLists reports whether the candidate encounters come from other lists instead of an EncounterStore query.
func (c FilterCriteria) UsesInLists() bool {
	return len(c.inListRefs) > 0
}

// RequiresDrugOrder reports whether only encounters with at least one drug order survive.
func (c FilterCriteria) RequiresDrugOrder() bool {
	return c.containsOrderType == OrderTypeDrugOrder
}

// Encode renders the criteria back into a query string, keys in parse order, dates in millisecond precision with
// a numeric zone offset. Malformed fields are not rendered.
func (c FilterCriteria) Encode() string {
	fragments := make([]string, 0, len(queryKeys))

	add := func(key, value string) {
		if value != "" {
			fragments = append(fragments, key+value)
		}
	}

	add(QueryKeyEncounterType, c.encounterTypeRef)
	add(QueryKeyLocation, c.locationRef)
	add(QueryKeyStartDate, formatDate(c.startDate))
	add(QueryKeyEndDate, formatDate(c.endDate))
	add(QueryKeyInList, strings.Join(c.inListRefs, listRefSeparator))
	add(QueryKeyNotInList, strings.Join(c.notInListRefs, listRefSeparator))
	add(QueryKeyProvider, c.providerRef)
	add(QueryKeyPatient, c.patientRef)
	add(QueryKeyContainsOrderType, c.containsOrderType)

	if len(fragments) == 0 {
		return ""
	}

	return queryPrefix + strings.Join(fragments, fragmentSeparator)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	return t.Format(encodeDateLayout)
}
