// Package schemascope executes work units against a single tenant
// schema. Each unit pins one connection from the shared pool, sets
// search_path for the duration of the unit, and restores it before the
// connection is returned. A connection whose search_path cannot be
// restored is discarded rather than reused.
package schemascope

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	"github.com/gridpos/backend/internal/domain/tenancy"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Executor runs schema-scoped work units
type Executor struct {
	pool       *sql.DB
	gormLogger gormlogger.Interface
	logger     *zap.Logger
}

// NewExecutor creates an Executor over the shared connection pool
func NewExecutor(pool *sql.DB, gormLogger gormlogger.Interface, logger *zap.Logger) *Executor {
	if gormLogger == nil {
		gormLogger = gormlogger.Default.LogMode(gormlogger.Silent)
	}
	return &Executor{pool: pool, gormLogger: gormLogger, logger: logger}
}

// WithSchema runs fn against the given tenant schema. The schema name
// is validated against the identifier grammar before it is ever
// interpolated; search_path is restored to public before the pinned
// connection goes back to the pool, and the connection is poisoned if
// the restore fails. Nested units must not be started from inside fn:
// each unit owns exactly one connection.
func (e *Executor) WithSchema(ctx context.Context, schemaName string, fn func(db *gorm.DB) error) error {
	if err := tenancy.ValidateSchemaName(schemaName); err != nil {
		return err
	}

	conn, err := e.pool.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to pin connection: %w", err)
	}
	defer conn.Close()

	// Validated above, quoted anyway.
	setStmt := fmt.Sprintf(`SET search_path TO %q, public`, schemaName)
	if _, err := conn.ExecContext(ctx, setStmt); err != nil {
		e.poison(conn, schemaName)
		return fmt.Errorf("failed to set search_path: %w", err)
	}

	defer e.restore(ctx, conn, schemaName)

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: conn}), &gorm.Config{
		Logger:                 e.gormLogger,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return fmt.Errorf("failed to open scoped session: %w", err)
	}

	return fn(db.WithContext(ctx))
}

// WithSchemaTx runs fn inside a transaction on the tenant schema
func (e *Executor) WithSchemaTx(ctx context.Context, schemaName string, fn func(tx *gorm.DB) error) error {
	return e.WithSchema(ctx, schemaName, func(db *gorm.DB) error {
		return db.Transaction(fn)
	})
}

// restore resets search_path before the connection is released. It
// runs even when the request context is canceled; a connection that
// cannot be reset is never allowed back into the pool.
func (e *Executor) restore(ctx context.Context, conn *sql.Conn, schemaName string) {
	resetCtx := context.WithoutCancel(ctx)
	if _, err := conn.ExecContext(resetCtx, `SET search_path TO public`); err != nil {
		if e.logger != nil {
			e.logger.Warn("discarding connection after failed search_path reset",
				zap.String("schema", schemaName),
				zap.Error(err),
			)
		}
		e.poison(conn, schemaName)
	}
}

// poison marks the pinned connection bad so the pool drops it instead
// of handing it to another tenant.
func (e *Executor) poison(conn *sql.Conn, schemaName string) {
	_ = conn.Raw(func(driverConn any) error {
		return driver.ErrBadConn
	})
}
