package config

import (
	"context"
	"errors"

	"github.com/AntonStoeckl/dynamic-patient-lists-go/patientlist/postgresengine"
)

// OpenEngine connects with the given driver and returns a postgresengine.Engine on top of the connection,
// plus a function that closes the connection.
func OpenEngine(
	ctx context.Context,
	driver string,
	dsn string,
	options ...postgresengine.Option,
) (*postgresengine.Engine, func(), error) {

	switch driver {
	case DriverPGX:
		pool, err := PostgresPGXPool(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}

		engine, err := postgresengine.NewEngineFromPGXPool(pool, options...)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}

		return engine, pool.Close, nil

	case DriverSQL:
		db, err := PostgresSQLDB(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}

		engine, err := postgresengine.NewEngineFromSQLDB(db, options...)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}

		return engine, func() { _ = db.Close() }, nil

	case DriverSQLX:
		db, err := PostgresSQLX(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}

		engine, err := postgresengine.NewEngineFromSQLX(db, options...)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}

		return engine, func() { _ = db.Close() }, nil

	default:
		return nil, nil, errors.Join(ErrInvalidDBDriver, errors.New(driver))
	}
}
