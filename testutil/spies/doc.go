// Package spies provides test doubles that capture logging, metrics and tracing calls,
// so tests can assert on the observability output of the Resolver and the Postgres engine.
package spies
