package patientlist

import (
	"slices"
	"time"
)

type PatientID = string
type ProviderID = string
type EncounterRoleString = string

// OrderTypeDrugOrder is the only order type recognized by the containsOrderType query key.
const OrderTypeDrugOrder = "drugOrder"

// Order is a single order placed during an Encounter.
type Order struct {
	UUID      string `json:"uuid"`
	Concept   string `json:"concept,omitempty"`
	DrugOrder bool   `json:"drugOrder"`
}

// Encounter is a timestamped clinical event for one patient.
//
// The reference fields (PatientID, EncounterTypeID, LocationID and the providers) hold resolved ids,
// the same ids the Lookups return for the opaque references used in list queries.
type Encounter struct {
	ID              int64
	UUID            string
	PatientID       PatientID
	EncounterTypeID string
	LocationID      string
	OccurredAt      time.Time
	ProvidersByRole map[EncounterRoleString][]ProviderID
	Orders          []Order
}

// Encounters is an alias type for a slice of Encounter
type Encounters = []Encounter

// HasProvider reports whether the provider is credited with the Encounter in any role.
func (e Encounter) HasProvider(providerID ProviderID) bool {
	for _, providers := range e.ProvidersByRole {
		if slices.Contains(providers, providerID) {
			return true
		}
	}

	return false
}

// ContainsDrugOrder reports whether at least one of the Encounter's orders is a drug order.
func (e Encounter) ContainsDrugOrder() bool {
	return slices.ContainsFunc(e.Orders, func(o Order) bool {
		return o.DrugOrder
	})
}

// DistinctPatients projects encounters onto their patients, keeping the first occurrence of each patient.
func DistinctPatients(encounters Encounters) []PatientID {
	patients := make([]PatientID, 0)
	seen := make(map[PatientID]struct{})

	for _, encounter := range encounters {
		if _, ok := seen[encounter.PatientID]; ok {
			continue
		}

		seen[encounter.PatientID] = struct{}{}
		patients = append(patients, encounter.PatientID)
	}

	return patients
}
