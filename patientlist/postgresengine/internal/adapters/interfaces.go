package adapters

import "context"

// DBAdapter defines the database operations the Postgres engine needs.
type DBAdapter interface {
	Query(ctx context.Context, query string) (DBRows, error)
	Exec(ctx context.Context, query string) (DBResult, error)
}

// DBRows defines the interface for query result rows.
type DBRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// DBResult defines the interface for execution results.
type DBResult interface {
	RowsAffected() (int64, error)
}

// PrimaryQuerier is implemented by adapters that route reads to a replica.
// Statements that write and return rows must go through QueryPrimary.
type PrimaryQuerier interface {
	QueryPrimary(ctx context.Context, query string) (DBRows, error)
}
