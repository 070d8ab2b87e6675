package patientlist_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/AntonStoeckl/dynamic-patient-lists-go/patientlist"
)

func Test_EncounterQueryBuilder_SanitizesIDs(t *testing.T) {
	query := patientlist.BuildEncounterQuery().
		WithAnyEncounterTypeOf("b", "", "a", "b").
		WithAnyProviderOf("").
		Finalize()

	assert.Equal(t, []string{"a", "b"}, query.EncounterTypes())
	assert.Nil(t, query.Providers())
}

func Test_EncounterQuery_EmptyQueryMatchesEverything(t *testing.T) {
	query := patientlist.BuildEncounterQuery().Finalize()

	assert.True(t, query.IsEmpty())
	assert.True(t, query.Matches(patientlist.Encounter{}))
	assert.True(t, query.Matches(patientlist.Encounter{PatientID: "p", OccurredAt: time.Now()}))
}

func Test_EncounterQuery_Matches(t *testing.T) {
	at := time.Date(2020, 1, 15, 12, 0, 0, 0, time.UTC)
	encounter := patientlist.Encounter{
		PatientID:       "pat",
		EncounterTypeID: "type",
		LocationID:      "loc",
		OccurredAt:      at,
		ProvidersByRole: map[string][]string{"clinician": {"prov-1"}, "nurse": {"prov-2"}},
	}

	tests := []struct {
		name  string
		query patientlist.EncounterQuery
		want  bool
	}{
		{name: "patient_match", query: patientlist.BuildEncounterQuery().ForPatient("pat").Finalize(), want: true},
		{name: "patient_mismatch", query: patientlist.BuildEncounterQuery().ForPatient("other").Finalize(), want: false},
		{name: "location_mismatch", query: patientlist.BuildEncounterQuery().AtLocation("other").Finalize(), want: false},
		{name: "from_inclusive", query: patientlist.BuildEncounterQuery().OccurredFrom(at).Finalize(), want: true},
		{name: "from_after", query: patientlist.BuildEncounterQuery().OccurredFrom(at.Add(time.Second)).Finalize(), want: false},
		{name: "until_inclusive", query: patientlist.BuildEncounterQuery().OccurredUntil(at).Finalize(), want: true},
		{name: "until_before", query: patientlist.BuildEncounterQuery().OccurredUntil(at.Add(-time.Second)).Finalize(), want: false},
		{name: "any_type", query: patientlist.BuildEncounterQuery().WithAnyEncounterTypeOf("x", "type").Finalize(), want: true},
		{name: "type_mismatch", query: patientlist.BuildEncounterQuery().WithAnyEncounterTypeOf("x").Finalize(), want: false},
		{name: "provider_in_second_role", query: patientlist.BuildEncounterQuery().WithAnyProviderOf("prov-2").Finalize(), want: true},
		{name: "provider_mismatch", query: patientlist.BuildEncounterQuery().WithAnyProviderOf("prov-3").Finalize(), want: false},
		{
			name: "all_dimensions",
			query: patientlist.BuildEncounterQuery().
				ForPatient("pat").
				AtLocation("loc").
				OccurredFrom(at.Add(-time.Hour)).
				OccurredUntil(at.Add(time.Hour)).
				WithAnyEncounterTypeOf("type").
				WithAnyProviderOf("prov-1").
				Finalize(),
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.query.Matches(encounter))
		})
	}
}

func Test_Encounter_ContainsDrugOrder(t *testing.T) {
	assert.False(t, patientlist.Encounter{}.ContainsDrugOrder())
	assert.False(t, patientlist.Encounter{Orders: []patientlist.Order{{UUID: "o1"}}}.ContainsDrugOrder())
	assert.True(t, patientlist.Encounter{Orders: []patientlist.Order{{UUID: "o1"}, {UUID: "o2", DrugOrder: true}}}.ContainsDrugOrder())
}

func Test_DistinctPatients_KeepsFirstOccurrenceOrder(t *testing.T) {
	encounters := patientlist.Encounters{
		{PatientID: "b"}, {PatientID: "a"}, {PatientID: "b"}, {PatientID: "c"}, {PatientID: "a"},
	}

	assert.Equal(t, []string{"b", "a", "c"}, patientlist.DistinctPatients(encounters))
	assert.Empty(t, patientlist.DistinctPatients(nil))
}
