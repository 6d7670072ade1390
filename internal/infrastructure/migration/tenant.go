package migration

import (
	"database/sql"
	"fmt"
	"net/url"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/gridpos/backend/internal/domain/tenancy"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// TenantMigrator applies the tenant baseline migrations into a single
// tenant schema. Each run opens a dedicated connection whose
// search_path points at the target schema, so the migration SQL stays
// schema-agnostic and the version table lands inside the tenant schema.
type TenantMigrator struct {
	baseDSN        string
	migrationsPath string
	logger         *zap.Logger
}

// NewTenantMigrator creates a TenantMigrator
func NewTenantMigrator(baseDSN, migrationsPath string, logger *zap.Logger) *TenantMigrator {
	return &TenantMigrator{
		baseDSN:        baseDSN,
		migrationsPath: migrationsPath,
		logger:         logger,
	}
}

// MigrateSchema brings one tenant schema up to the current baseline.
// Idempotent: re-running against an up-to-date schema is a no-op.
func (tm *TenantMigrator) MigrateSchema(schemaName string) error {
	if err := tenancy.ValidateSchemaName(schemaName); err != nil {
		return err
	}

	dsn, err := tm.schemaDSN(schemaName)
	if err != nil {
		return err
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("failed to open connection for schema %s: %w", schemaName, err)
	}
	// m.Close() only releases the driver's pinned connection; the pool
	// itself must be closed too or every run leaks its opener.
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{
		SchemaName:      schemaName,
		MigrationsTable: "schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("failed to create postgres driver for schema %s: %w", schemaName, err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", tm.migrationsPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance for schema %s: %w", schemaName, err)
	}
	defer m.Close()

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("tenant migration failed for schema %s: %w", schemaName, err)
	}

	if err == migrate.ErrNoChange {
		tm.logger.Debug("tenant schema already current", zap.String("schema", schemaName))
		return nil
	}

	version, dirty, verr := m.Version()
	if verr != nil {
		return fmt.Errorf("failed to read version for schema %s: %w", schemaName, verr)
	}
	tm.logger.Info("tenant schema migrated",
		zap.String("schema", schemaName),
		zap.Uint("version", version),
		zap.Bool("dirty", dirty),
	)
	return nil
}

// SchemaVersion returns the migration version recorded in the tenant
// schema, or (0, false) when no migrations have run. Used as a
// provisioning probe.
func (tm *TenantMigrator) SchemaVersion(schemaName string) (uint, bool, error) {
	if err := tenancy.ValidateSchemaName(schemaName); err != nil {
		return 0, false, err
	}

	dsn, err := tm.schemaDSN(schemaName)
	if err != nil {
		return 0, false, err
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return 0, false, fmt.Errorf("failed to open connection for schema %s: %w", schemaName, err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{
		SchemaName:      schemaName,
		MigrationsTable: "schema_migrations",
	})
	if err != nil {
		return 0, false, fmt.Errorf("failed to create postgres driver for schema %s: %w", schemaName, err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", tm.migrationsPath),
		"postgres",
		driver,
	)
	if err != nil {
		return 0, false, fmt.Errorf("failed to create migrate instance for schema %s: %w", schemaName, err)
	}
	defer m.Close()

	version, dirty, err := m.Version()
	if err != nil {
		if err == migrate.ErrNilVersion {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to read version for schema %s: %w", schemaName, err)
	}
	return version, dirty, nil
}

func (tm *TenantMigrator) schemaDSN(schemaName string) (string, error) {
	u, err := url.Parse(tm.baseDSN)
	if err != nil {
		return "", fmt.Errorf("invalid base DSN: %w", err)
	}
	q := u.Query()
	q.Set("search_path", schemaName)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
