package inmemory

import (
	"context"
	"sync"

	"github.com/AntonStoeckl/dynamic-patient-lists-go/patientlist"
)

type referenceKind int

const (
	kindEncounterType referenceKind = iota
	kindLocation
	kindProvider
	kindPatient
)

// Lookups maps opaque references to ids, one table per reference kind.
type Lookups struct {
	mu     sync.RWMutex
	tables map[referenceKind]map[string]string
}

// NewLookups creates empty Lookups.
func NewLookups() *Lookups {
	return &Lookups{
		tables: map[referenceKind]map[string]string{
			kindEncounterType: {},
			kindLocation:      {},
			kindProvider:      {},
			kindPatient:       {},
		},
	}
}

func (l *Lookups) AddEncounterType(ref, id string) *Lookups {
	return l.add(kindEncounterType, ref, id)
}

func (l *Lookups) AddLocation(ref, id string) *Lookups {
	return l.add(kindLocation, ref, id)
}

func (l *Lookups) AddProvider(ref string, id patientlist.ProviderID) *Lookups {
	return l.add(kindProvider, ref, id)
}

func (l *Lookups) AddPatient(ref string, id patientlist.PatientID) *Lookups {
	return l.add(kindPatient, ref, id)
}

func (l *Lookups) ResolveEncounterType(_ context.Context, ref string) (string, error) {
	return l.resolve(kindEncounterType, ref)
}

func (l *Lookups) ResolveLocation(_ context.Context, ref string) (string, error) {
	return l.resolve(kindLocation, ref)
}

func (l *Lookups) ResolveProvider(_ context.Context, ref string) (patientlist.ProviderID, error) {
	return l.resolve(kindProvider, ref)
}

func (l *Lookups) ResolvePatient(_ context.Context, ref string) (patientlist.PatientID, error) {
	return l.resolve(kindPatient, ref)
}

func (l *Lookups) add(kind referenceKind, ref, id string) *Lookups {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.tables[kind][ref] = id

	return l
}

func (l *Lookups) resolve(kind referenceKind, ref string) (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	id, ok := l.tables[kind][ref]
	if !ok {
		return "", patientlist.ErrReferenceNotFound
	}

	return id, nil
}

var _ patientlist.Lookups = (*Lookups)(nil)
