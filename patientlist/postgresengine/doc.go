// Package postgresengine provides PostgreSQL implementations of the patientlist collaborators.
//
// One Engine wraps a database connection (pgx.Pool, sql.DB or sqlx.DB) and hands out an EncounterStore,
// a ListStore and Lookups that share the connection, table names and observability settings.
// All SQL is built with goqu using the postgres dialect.
//
// Usage examples:
//
//	pool, _ := pgxpool.NewWithConfig(ctx, config.PostgresPGXPoolConfig(dsn))
//	engine, _ := postgresengine.NewEngineFromPGXPool(pool, postgresengine.WithLogger(logger))
//	_ = engine.CreateSchema(ctx)
//
//	resolver, _ := patientlist.NewResolver(
//		engine.Lists(),
//		engine.Encounters(),
//		patientlist.WithLookups(engine.Lookups()),
//	)
//
// Voided encounters are stored but never returned by EncounterStore.Query.
package postgresengine
