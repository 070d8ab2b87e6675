// Package config loads the patientlists runtime configuration from the environment
// and builds the Postgres connections the engine supports (pgx.Pool, sql.DB, sqlx.DB).
//
// Values can be seeded from a .env file; variables already set in the environment win.
package config
