package inmemory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/AntonStoeckl/dynamic-patient-lists-go/patientlist"
)

// EncounterStore keeps encounters in memory and answers queries ordered by occurrence time, then ID.
type EncounterStore struct {
	mu         sync.RWMutex
	encounters patientlist.Encounters

	queriesMu     sync.Mutex
	recordQueries bool
	queries       []patientlist.EncounterQuery
}

// NewEncounterStore creates an EncounterStore holding the given encounters.
func NewEncounterStore(encounters ...patientlist.Encounter) *EncounterStore {
	s := &EncounterStore{}
	s.Append(encounters...)

	return s
}

// RecordQueries makes the store remember every query it receives, see Queries.
func (s *EncounterStore) RecordQueries() *EncounterStore {
	s.queriesMu.Lock()
	defer s.queriesMu.Unlock()

	s.recordQueries = true

	return s
}

// Append adds copies of the encounters to the store.
func (s *EncounterStore) Append(encounters ...patientlist.Encounter) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range encounters {
		s.encounters = append(s.encounters, cloneEncounter(e))
	}

	slices.SortStableFunc(s.encounters, func(a, b patientlist.Encounter) int {
		if c := a.OccurredAt.Compare(b.OccurredAt); c != 0 {
			return c
		}

		return cmp.Compare(a.ID, b.ID)
	})
}

// Query returns copies of all encounters matching the query.
func (s *EncounterStore) Query(ctx context.Context, query patientlist.EncounterQuery) (patientlist.Encounters, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.record(query)

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(patientlist.Encounters, 0)
	for _, e := range s.encounters {
		if query.Matches(e) {
			result = append(result, cloneEncounter(e))
		}
	}

	return result, nil
}

// Queries returns the queries received so far, in order. It is empty unless RecordQueries was called.
func (s *EncounterStore) Queries() []patientlist.EncounterQuery {
	s.queriesMu.Lock()
	defer s.queriesMu.Unlock()

	return slices.Clone(s.queries)
}

func (s *EncounterStore) record(query patientlist.EncounterQuery) {
	s.queriesMu.Lock()
	defer s.queriesMu.Unlock()

	if s.recordQueries {
		s.queries = append(s.queries, query)
	}
}

func cloneEncounter(e patientlist.Encounter) patientlist.Encounter {
	if e.ProvidersByRole != nil {
		providers := make(map[patientlist.EncounterRoleString][]patientlist.ProviderID, len(e.ProvidersByRole))
		for role, ids := range e.ProvidersByRole {
			providers[role] = slices.Clone(ids)
		}

		e.ProvidersByRole = providers
	}

	e.Orders = slices.Clone(e.Orders)

	return e
}

var _ patientlist.EncounterStore = (*EncounterStore)(nil)
