package patientlist

import (
	"errors"
	"strings"
)

var ErrPatientListNotFound = errors.New("patient list not found")
var ErrReferenceNotFound = errors.New("reference not found")
var ErrCyclicReference = errors.New("cyclic patient list reference")
var ErrMaxDepthExceeded = errors.New("maximum patient list nesting depth exceeded")
var ErrNilPatientList = errors.New("nil patient list supplied")
var ErrNilEncounterStore = errors.New("nil encounter store supplied")
var ErrNilListStore = errors.New("nil list store supplied")
var ErrInvalidMaxDepth = errors.New("max depth must be positive")
var ErrQueryingEncountersFailed = errors.New("querying encounters failed")
var ErrLoadingPatientListFailed = errors.New("loading patient list failed")
var ErrResolvingReferenceFailed = errors.New("resolving reference failed")
var ErrPatientListExists = errors.New("patient list with this uuid already exists")
var ErrNilDatabaseConnection = errors.New("nil database connection supplied")
var ErrEmptyTableName = errors.New("table name must not be empty")
var ErrBuildingQueryFailed = errors.New("building query failed")
var ErrScanningDBRowFailed = errors.New("scanning db row failed")
var ErrDecodingColumnFailed = errors.New("decoding json column failed")
var ErrEncodingColumnFailed = errors.New("encoding json column failed")
var ErrAppendingEncountersFailed = errors.New("appending encounters failed")
var ErrVoidingEncounterFailed = errors.New("voiding encounter failed")
var ErrSavingPatientListFailed = errors.New("saving patient list failed")
var ErrDeletingPatientListFailed = errors.New("deleting patient list failed")
var ErrCreatingSchemaFailed = errors.New("creating schema failed")

// CyclicReferenceError is returned when a patient list references itself, directly or through other lists.
//
// Path holds the list UUIDs in resolution order, ending with the UUID that closed the cycle.
type CyclicReferenceError struct {
	Path []string
}

func (e *CyclicReferenceError) Error() string {
	return ErrCyclicReference.Error() + ": " + strings.Join(e.Path, " -> ")
}

// Is makes errors.Is(err, ErrCyclicReference) hold for any *CyclicReferenceError.
func (e *CyclicReferenceError) Is(target error) bool {
	return target == ErrCyclicReference
}
