// Package inmemory provides thread-safe in-process implementations of the patientlist collaborators:
// ListStore, EncounterStore and Lookups.
//
// They are meant for tests, demos and embedding the Resolver without a database.
package inmemory
