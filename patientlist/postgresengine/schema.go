package postgresengine

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"text/template"

	"github.com/AntonStoeckl/dynamic-patient-lists-go/patientlist"
)

//go:embed schema.sql
var schemaDDL string

var schemaTemplate = template.Must(template.New("schema").Parse(schemaDDL))

// SchemaDDL renders the DDL for the Engine's table names.
func (e *Engine) SchemaDDL() (string, error) {
	var ddl bytes.Buffer

	err := schemaTemplate.Execute(&ddl, struct {
		Encounters string
		Lists      string
	}{
		Encounters: e.encounterTableName,
		Lists:      e.listTableName,
	})
	if err != nil {
		return "", err
	}

	return ddl.String(), nil
}

// CreateSchema creates all tables and indexes that do not exist yet.
func (e *Engine) CreateSchema(ctx context.Context) error {
	ddl, err := e.SchemaDDL()
	if err != nil {
		return errors.Join(patientlist.ErrCreatingSchemaFailed, err)
	}

	if _, execErr := e.execStatement(ctx, operationCreateSchema, ddl); execErr != nil {
		return errors.Join(patientlist.ErrCreatingSchemaFailed, execErr)
	}

	e.logOperation(ctx, logMsgSchemaCreated)

	return nil
}
