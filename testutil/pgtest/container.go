package pgtest

import (
	"context"
	"fmt"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	postgresImage     = "postgres:17-alpine"
	databaseName      = "patientlists"
	databaseUser      = "test"
	databasePassword  = "test"
	readyLogLine      = "database system is ready to accept connections"
	readyOccurrences  = 2
	startupTimeout    = 60 * time.Second
	connectionOptions = "sslmode=disable"
)

// Teardown terminates a started container.
type Teardown func(ctx context.Context, opts ...testcontainers.TerminateOption) error

// StartPostgresContainer starts a Postgres container and returns its DSN.
func StartPostgresContainer(ctx context.Context) (string, Teardown, error) {
	pgContainer, err := postgres.Run(
		ctx,
		postgresImage,
		postgres.WithDatabase(databaseName),
		postgres.WithUsername(databaseUser),
		postgres.WithPassword(databasePassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog(readyLogLine).
				WithOccurrence(readyOccurrences).
				WithStartupTimeout(startupTimeout),
		),
	)
	if err != nil {
		return "", nil, fmt.Errorf("error starting postgres container: %w", err)
	}

	dsn, err := pgContainer.ConnectionString(ctx, connectionOptions)
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return "", nil, fmt.Errorf("error getting connection string: %w", err)
	}

	return dsn, pgContainer.Terminate, nil
}
