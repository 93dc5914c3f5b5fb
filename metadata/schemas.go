package metadata

import (
	"context"
	"fmt"
)

// SchemaService lists and manages schemas and their tables.
type SchemaService struct {
	db Querier
}

// NewSchemaService returns a SchemaService that runs its statements on db.
func NewSchemaService(db Querier) *SchemaService {
	return &SchemaService{db: db}
}

// Schemas lists the schemas of catalog.
func (s *SchemaService) Schemas(ctx context.Context, catalog string) ([]string, error) {
	if catalog == "" {
		return nil, fmt.Errorf("metadata: no catalog given")
	}
	return queryStrings(ctx, s.db, "SHOW SCHEMAS FROM "+quoteIdent(catalog))
}

// Tables lists the tables of catalog.schema.
func (s *SchemaService) Tables(ctx context.Context, catalog, schema string) ([]string, error) {
	if catalog == "" || schema == "" {
		return nil, fmt.Errorf("metadata: no catalog or schema given")
	}
	return queryStrings(ctx, s.db, "SHOW TABLES FROM "+quoteIdent(catalog)+"."+quoteIdent(schema))
}

// CreateSchema creates catalog.schema unless it exists. Properties are
// rendered like table properties, e.g. location: s3://bucket/path.
func (s *SchemaService) CreateSchema(ctx context.Context, catalog, schema string, properties map[string]any) error {
	if catalog == "" || schema == "" {
		return fmt.Errorf("metadata: no catalog or schema given")
	}
	statement := "CREATE SCHEMA IF NOT EXISTS " + quoteIdent(catalog) + "." + quoteIdent(schema)
	if len(properties) > 0 {
		props, err := propertyList(properties)
		if err != nil {
			return err
		}
		statement += " WITH (" + props + ")"
	}
	return execDefinition(ctx, s.db, statement)
}

// DropSchema drops catalog.schema if it exists. With cascade its tables go
// too; otherwise the server refuses a schema that is not empty.
func (s *SchemaService) DropSchema(ctx context.Context, catalog, schema string, cascade bool) error {
	if catalog == "" || schema == "" {
		return fmt.Errorf("metadata: no catalog or schema given")
	}
	statement := "DROP SCHEMA IF EXISTS " + quoteIdent(catalog) + "." + quoteIdent(schema)
	if cascade {
		statement += " CASCADE"
	}
	return execDefinition(ctx, s.db, statement)
}
