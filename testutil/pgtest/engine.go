package pgtest

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/dynamic-patient-lists-go/config"
	"github.com/AntonStoeckl/dynamic-patient-lists-go/patientlist/postgresengine"
)

// Drivers returns all drivers the engine can run on.
func Drivers() []string {
	return []string{config.DriverPGX, config.DriverSQL, config.DriverSQLX}
}

// NewEngine opens an Engine with the driver on dsn, using tables unique to this test, and creates the schema.
// The connection is closed when the test ends.
func NewEngine(t testing.TB, driver, dsn string, options ...postgresengine.Option) *postgresengine.Engine {
	t.Helper()

	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	allOptions := append(
		[]postgresengine.Option{
			postgresengine.WithEncounterTableName("encounters_" + suffix),
			postgresengine.WithListTableName("patient_lists_" + suffix),
		},
		options...,
	)

	engine, closeFn, err := config.OpenEngine(context.Background(), driver, dsn, allOptions...)
	require.NoError(t, err, "error in opening the engine")
	t.Cleanup(closeFn)

	require.NoError(t, engine.CreateSchema(context.Background()), "error in creating the schema")

	return engine
}
