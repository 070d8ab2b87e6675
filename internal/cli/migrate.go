package cli

import (
	"context"

	flag "github.com/spf13/pflag"

	"github.com/AntonStoeckl/dynamic-patient-lists-go/config"
	"github.com/AntonStoeckl/dynamic-patient-lists-go/patientlist/postgresengine"
)

const logMsgSchemaCreated = "patientlists schema created"

func (a *app) migrateCmd() *Command {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	encounterTable := fs.String("encounter-table", "", "name of the encounter table (default encounters)")
	listTable := fs.String("list-table", "", "name of the patient list table (default patient_lists)")

	return &Command{
		Flags: fs,
		Usage: "migrate [--encounter-table <name>] [--list-table <name>]",
		Short: "Create the Postgres schema",
		Long:  "Create the encounter, patient list and lookup tables. Existing tables are left untouched.",
		Exec: func(ctx context.Context, _ *IO, _ []string) error {
			var options []postgresengine.Option
			if *encounterTable != "" {
				options = append(options, postgresengine.WithEncounterTableName(*encounterTable))
			}

			if *listTable != "" {
				options = append(options, postgresengine.WithListTableName(*listTable))
			}

			return a.migrate(ctx, options...)
		},
	}
}

func (a *app) migrate(ctx context.Context, options ...postgresengine.Option) error {
	options = append(options, postgresengine.WithLogger(a.logger))

	engine, closeFn, err := config.OpenEngine(ctx, a.cfg.DBDriver, a.cfg.DatabaseDSN, options...)
	if err != nil {
		return err
	}
	defer closeFn()

	if err := engine.CreateSchema(ctx); err != nil {
		return err
	}

	a.logger.InfoContext(ctx, logMsgSchemaCreated, logAttrDriver, a.cfg.DBDriver)

	return nil
}
