package inmemory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/dynamic-patient-lists-go/patientlist"
)

// ListStore keeps PatientList definitions in memory, in insertion order.
type ListStore struct {
	mu     sync.RWMutex
	lists  map[string]patientlist.PatientList
	order  []string
	nextID int64
	now    func() time.Time
}

// NewListStore creates an empty ListStore.
func NewListStore() *ListStore {
	return &ListStore{
		lists: make(map[string]patientlist.PatientList),
		now:   time.Now,
	}
}

// GetByUUID returns the list with the given UUID or patientlist.ErrPatientListNotFound.
func (s *ListStore) GetByUUID(_ context.Context, uuid string) (patientlist.PatientList, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list, ok := s.lists[uuid]
	if !ok {
		return patientlist.PatientList{}, patientlist.ErrPatientListNotFound
	}

	return list, nil
}

// GetByName returns all lists, retired ones included, with exactly the given name.
func (s *ListStore) GetByName(_ context.Context, name string) ([]patientlist.PatientList, error) {
	return s.collect(func(l patientlist.PatientList) bool {
		return l.Name == name
	}), nil
}

// GetByEncounterType returns all lists whose search query references the encounter type.
// The reference must be the whole fragment value, so a uuid never matches a longer uuid it is a prefix of.
func (s *ListStore) GetByEncounterType(_ context.Context, encounterTypeUUID string) ([]patientlist.PatientList, error) {
	needle := patientlist.QueryKeyEncounterType + encounterTypeUUID

	return s.collect(func(l patientlist.PatientList) bool {
		if encounterTypeUUID == "" {
			return false
		}

		for _, fragment := range strings.Split(l.SearchQuery, "&") {
			if strings.HasSuffix(fragment, needle) {
				return true
			}
		}

		return false
	}), nil
}

// GetAll returns all lists, optionally including retired ones.
func (s *ListStore) GetAll(_ context.Context, includeRetired bool) ([]patientlist.PatientList, error) {
	return s.collect(func(l patientlist.PatientList) bool {
		return includeRetired || !l.Retired
	}), nil
}

// Save stores a new list. It assigns a UUID, an ID, and a creation date when they are missing.
func (s *ListStore) Save(_ context.Context, list patientlist.PatientList) (patientlist.PatientList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if list.UUID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return patientlist.PatientList{}, err
		}

		list.UUID = id.String()
	}

	if _, exists := s.lists[list.UUID]; exists {
		return patientlist.PatientList{}, patientlist.ErrPatientListExists
	}

	s.nextID++
	list.ID = s.nextID

	if list.DateCreated.IsZero() {
		list.DateCreated = s.now().UTC()
	}

	s.lists[list.UUID] = list
	s.order = append(s.order, list.UUID)

	return list, nil
}

// Update replaces the stored list with the same UUID. ID and creation date are kept.
func (s *ListStore) Update(_ context.Context, list patientlist.PatientList) (patientlist.PatientList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.lists[list.UUID]
	if !ok {
		return patientlist.PatientList{}, patientlist.ErrPatientListNotFound
	}

	list.ID = existing.ID
	list.DateCreated = existing.DateCreated
	s.lists[list.UUID] = list

	return list, nil
}

// Delete removes the list with the same UUID.
func (s *ListStore) Delete(_ context.Context, list patientlist.PatientList) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lists[list.UUID]; !ok {
		return patientlist.ErrPatientListNotFound
	}

	delete(s.lists, list.UUID)

	for i, u := range s.order {
		if u == list.UUID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}

	return nil
}

func (s *ListStore) collect(keep func(patientlist.PatientList) bool) []patientlist.PatientList {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]patientlist.PatientList, 0)

	for _, u := range s.order {
		if list := s.lists[u]; keep(list) {
			result = append(result, list)
		}
	}

	return result
}

var _ patientlist.ListStore = (*ListStore)(nil)
