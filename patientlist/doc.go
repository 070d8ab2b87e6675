// Package patientlist evaluates dynamic patient lists: named, persisted search queries over a clinical
// encounter log.
//
// A search query is a "&"-joined sequence of key/value fragments, optionally prefixed with "?":
//
//	?encounterType=<uuid>&startDate=2012-05-07&endDate=2012-05-08&inList=<uuid>,<uuid>&notInList=<uuid>
//
// Supported keys are encounterType, location, startDate, endDate, inList, notInList, provider, patient and
// containsOrderType. ParseQuery turns a query into an immutable FilterCriteria.
//
// A Resolver evaluates a PatientList:
//   - without inList, it issues one EncounterStore query with the scalar constraints
//   - with inList, it concatenates the encounters of the referenced lists and filters them by date range,
//     encounter type, patient and provider
//   - encounters are dropped when a notInList list has a later encounter for the same patient
//   - containsOrderType=drugOrder keeps encounters with at least one drug order
//
// Lists reference other lists by UUID. The Resolver walks those references depth-first and fails with a
// *CyclicReferenceError when a list is reached again while it is still being resolved.
//
// Common usage pattern:
//
//	resolver, err := patientlist.NewResolver(listStore, encounterStore, patientlist.WithLookups(lookups))
//	if err != nil {
//		// handle error
//	}
//
//	list, err := listStore.GetByUUID(ctx, listUUID)
//	encounters, err := resolver.ResolveEncounters(ctx, list)
//	patients, err := resolver.ResolvePatients(ctx, list)
package patientlist
