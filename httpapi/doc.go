// Package httpapi exposes patient list definitions and their resolution over HTTP with echo.
//
// Routes:
//
//	GET    /health
//	GET    /v1/patientlists                  ?includeRetired=true | ?name= | ?encounterType=
//	POST   /v1/patientlists
//	GET    /v1/patientlists/:uuid
//	PUT    /v1/patientlists/:uuid
//	DELETE /v1/patientlists/:uuid
//	GET    /v1/patientlists/:uuid/encounters
//	GET    /v1/patientlists/:uuid/patients
//	GET    /v1/criteria                      ?query=
package httpapi
