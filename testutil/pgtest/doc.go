// Package pgtest starts a throwaway Postgres container and opens postgresengine.Engine instances on it
// for every supported driver, with freshly created tables per test.
package pgtest
