package schemascope

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/gridpos/backend/internal/domain/tenancy"
)

// DDL issues schema-level DDL for provisioning and deprovisioning.
// Every statement validates the schema name first; identifiers are
// quoted regardless.
type DDL struct {
	pool *sql.DB
}

// NewDDL creates a DDL helper over the shared pool
func NewDDL(pool *sql.DB) *DDL {
	return &DDL{pool: pool}
}

// CreateSchema creates the schema if it does not exist. Idempotent.
func (d *DDL) CreateSchema(ctx context.Context, schemaName string) error {
	if err := tenancy.ValidateSchemaName(schemaName); err != nil {
		return err
	}
	_, err := d.pool.ExecContext(ctx, fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %q`, schemaName))
	if err != nil {
		return fmt.Errorf("failed to create schema %s: %w", schemaName, err)
	}
	return nil
}

// DropSchema removes the schema and everything in it. Idempotent.
func (d *DDL) DropSchema(ctx context.Context, schemaName string) error {
	if err := tenancy.ValidateSchemaName(schemaName); err != nil {
		return err
	}
	_, err := d.pool.ExecContext(ctx, fmt.Sprintf(`DROP SCHEMA IF EXISTS %q CASCADE`, schemaName))
	if err != nil {
		return fmt.Errorf("failed to drop schema %s: %w", schemaName, err)
	}
	return nil
}

// SchemaExists reports whether the schema is present in the catalog
func (d *DDL) SchemaExists(ctx context.Context, schemaName string) (bool, error) {
	if err := tenancy.ValidateSchemaName(schemaName); err != nil {
		return false, err
	}
	var exists bool
	err := d.pool.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM information_schema.schemata WHERE schema_name = $1)`,
		schemaName,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to probe schema %s: %w", schemaName, err)
	}
	return exists, nil
}

// TableExists reports whether a table is present in the schema. Used
// by provisioning to probe whether a step already completed.
func (d *DDL) TableExists(ctx context.Context, schemaName, tableName string) (bool, error) {
	if err := tenancy.ValidateSchemaName(schemaName); err != nil {
		return false, err
	}
	var exists bool
	err := d.pool.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = $1 AND table_name = $2)`,
		schemaName, tableName,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to probe table %s.%s: %w", schemaName, tableName, err)
	}
	return exists, nil
}
