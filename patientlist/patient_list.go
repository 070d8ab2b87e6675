package patientlist

import "time"

// PatientList is a named, persisted filter definition.
//
// SearchQuery holds the query string understood by ParseQuery. Other lists reference a PatientList by its UUID
// through the inList and notInList query keys.
type PatientList struct {
	ID          int64
	UUID        string
	Name        string
	Description string
	SearchQuery string
	Retired     bool
	DateCreated time.Time
}
