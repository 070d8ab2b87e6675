package patientlist

import (
	"time"
)

// resolvedReferences holds the ids the Lookups returned for a FilterCriteria. Empty means "no constraint".
type resolvedReferences struct {
	encounterTypeID string
	locationID      string
	providerID      ProviderID
	patientID       PatientID
}

// keepMatchingCriteria is the filter pass for encounters that were collected from other lists.
// Location is not part of it, only the EncounterStore query constrains location.
func keepMatchingCriteria(candidates Encounters, criteria FilterCriteria, refs resolvedReferences) Encounters {
	return keepWhere(candidates, func(e Encounter) bool {
		if !criteria.StartDate().IsZero() && e.OccurredAt.Before(criteria.StartDate()) {
			return false
		}

		if !criteria.EndDate().IsZero() && e.OccurredAt.After(criteria.EndDate()) {
			return false
		}

		if refs.encounterTypeID != "" && e.EncounterTypeID != refs.encounterTypeID {
			return false
		}

		if refs.patientID != "" && e.PatientID != refs.patientID {
			return false
		}

		if refs.providerID != "" {
			return e.HasProvider(refs.providerID)
		}

		return true
	})
}

// dropSupersededByExclusions removes every candidate whose patient has an excluded encounter that occurred
// strictly later than the candidate. Patients that only have earlier or simultaneous excluded encounters stay.
func dropSupersededByExclusions(candidates Encounters, excluded Encounters) Encounters {
	if len(excluded) == 0 {
		return candidates
	}

	latestExcluded := make(map[PatientID]time.Time, len(excluded))
	for _, e := range excluded {
		if latest, ok := latestExcluded[e.PatientID]; !ok || e.OccurredAt.After(latest) {
			latestExcluded[e.PatientID] = e.OccurredAt
		}
	}

	return keepWhere(candidates, func(e Encounter) bool {
		latest, ok := latestExcluded[e.PatientID]

		return !ok || !latest.After(e.OccurredAt)
	})
}

// keepWithDrugOrders removes encounters without any drug order, including encounters without orders.
func keepWithDrugOrders(candidates Encounters) Encounters {
	return keepWhere(candidates, Encounter.ContainsDrugOrder)
}

// keepWhere builds a new slice with the encounters that satisfy keep, preserving their order.
func keepWhere(encounters Encounters, keep func(Encounter) bool) Encounters {
	kept := make(Encounters, 0, len(encounters))

	for _, e := range encounters {
		if keep(e) {
			kept = append(kept, e)
		}
	}

	return kept
}
