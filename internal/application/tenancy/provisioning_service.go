package tenancy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gridpos/backend/internal/domain/shared"
	"github.com/gridpos/backend/internal/domain/tenancy"
	"github.com/gridpos/backend/internal/infrastructure/config"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SchemaDDL issues schema-level DDL. Implemented by schemascope.DDL.
type SchemaDDL interface {
	CreateSchema(ctx context.Context, schemaName string) error
	DropSchema(ctx context.Context, schemaName string) error
	SchemaExists(ctx context.Context, schemaName string) (bool, error)
}

// SchemaMigrator applies the tenant baseline migrations to one schema.
// Implemented by migration.TenantMigrator.
type SchemaMigrator interface {
	MigrateSchema(schemaName string) error
}

// ScopedExecutor runs a unit of work against a tenant schema.
// Implemented by schemascope.Executor.
type ScopedExecutor interface {
	WithSchema(ctx context.Context, schemaName string, fn func(db *gorm.DB) error) error
}

// ProvisioningService builds out new tenant schemas. Every step is
// idempotent and probes current state before acting, so a crashed or
// failed run can simply be re-executed from the start.
type ProvisioningService struct {
	tenantRepo tenancy.TenantRepository
	registry   tenancy.SchemaRegistry
	ddl        SchemaDDL
	migrator   SchemaMigrator
	executor   ScopedExecutor
	eventBus   shared.EventPublisher
	cfg        config.ProvisioningConfig
	baseDomain string
	logger     *zap.Logger
}

// NewProvisioningService creates a new ProvisioningService
func NewProvisioningService(
	tenantRepo tenancy.TenantRepository,
	registry tenancy.SchemaRegistry,
	ddl SchemaDDL,
	migrator SchemaMigrator,
	executor ScopedExecutor,
	eventBus shared.EventPublisher,
	cfg config.ProvisioningConfig,
	baseDomain string,
	logger *zap.Logger,
) *ProvisioningService {
	return &ProvisioningService{
		tenantRepo: tenantRepo,
		registry:   registry,
		ddl:        ddl,
		migrator:   migrator,
		executor:   executor,
		eventBus:   eventBus,
		cfg:        cfg,
		baseDomain: baseDomain,
		logger:     logger,
	}
}

// SchemaNameFor derives the schema name for a tenant code
func SchemaNameFor(code string) string {
	return "tenant_" + strings.ReplaceAll(strings.ToLower(code), "-", "_")
}

// Provision runs the full provisioning sequence for a tenant. Safe to
// re-run after a partial failure: completed steps are detected and
// skipped.
func (s *ProvisioningService) Provision(ctx context.Context, tenantID uuid.UUID) error {
	tenant, err := s.tenantRepo.FindByID(ctx, tenantID)
	if err != nil {
		return err
	}

	if tenant.IsArchived() {
		return tenancy.ErrTenantArchived
	}
	if tenant.Status != tenancy.TenantStatusProvisioning {
		return tenancy.ErrAlreadyProvisioned
	}

	tenant.RecordProvisionAttempt()
	if err := s.tenantRepo.Save(ctx, tenant); err != nil {
		return err
	}

	schemaName := SchemaNameFor(tenant.Code)
	if err := tenancy.ValidateSchemaName(schemaName); err != nil {
		return err
	}

	log := s.logger.With(
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("schema", schemaName),
	)

	// Step 1: registry binding.
	binding, err := s.registry.FindByTenant(ctx, tenant.ID)
	if errors.Is(err, shared.ErrNotFound) {
		binding, err = s.registry.Register(ctx, tenant.ID, schemaName, []string{s.defaultHostname(tenant.Code)})
	}
	if err != nil {
		return err
	}
	if binding.SchemaName != schemaName {
		// A previous run registered under a different derivation; keep
		// the registered name as authoritative.
		schemaName = binding.SchemaName
	}

	// Step 2: physical schema.
	if err := s.ddl.CreateSchema(ctx, schemaName); err != nil {
		return fmt.Errorf("%w: %w", tenancy.ErrProvisioningFailed, err)
	}

	// Step 3: baseline tables.
	if err := s.migrator.MigrateSchema(schemaName); err != nil {
		return fmt.Errorf("%w: %w", tenancy.ErrProvisioningFailed, err)
	}

	// Step 4: seed data inside the new schema.
	if err := s.seedSchema(ctx, schemaName, tenant); err != nil {
		return fmt.Errorf("%w: %w", tenancy.ErrProvisioningFailed, err)
	}

	// Step 5: flip the tenant live.
	if err := tenant.MarkProvisioned(schemaName); err != nil {
		return err
	}
	if err := s.tenantRepo.Save(ctx, tenant); err != nil {
		return err
	}

	s.publish(ctx, tenant)
	s.publishSchemaProvisioned(ctx, binding)

	log.Info("tenant provisioned")
	return nil
}

// seedSchema inserts the baseline rows a fresh tenant needs. Inserts
// are conflict-tolerant so a re-run after a partial failure is a no-op.
func (s *ProvisioningService) seedSchema(ctx context.Context, schemaName string, tenant *tenancy.Tenant) error {
	return s.executor.WithSchema(ctx, schemaName, func(db *gorm.DB) error {
		if err := db.Exec(
			`INSERT INTO branches (code, name, is_default) VALUES (?, ?, TRUE) ON CONFLICT (code) DO NOTHING`,
			"main", tenant.Name+" Main Branch",
		).Error; err != nil {
			return err
		}
		if err := db.Exec(
			`INSERT INTO warehouses (code, name, is_default) VALUES (?, ?, TRUE) ON CONFLICT (code) DO NOTHING`,
			"main", "Main Warehouse",
		).Error; err != nil {
			return err
		}
		return db.Exec(
			`INSERT INTO tenant_settings (key, value) VALUES ('display_name', ?) ON CONFLICT (key) DO NOTHING`,
			tenant.Name,
		).Error
	})
}

// Deprovision archives the tenant and removes its binding from
// resolution. The physical schema survives until the retention window
// elapses.
func (s *ProvisioningService) Deprovision(ctx context.Context, tenantID uuid.UUID) error {
	tenant, err := s.tenantRepo.FindByID(ctx, tenantID)
	if err != nil {
		return err
	}

	if err := tenant.Archive(); err != nil {
		return err
	}
	if err := s.tenantRepo.Save(ctx, tenant); err != nil {
		return err
	}

	binding, err := s.registry.FindByTenant(ctx, tenantID)
	if err == nil {
		if derr := s.registry.Deactivate(ctx, tenantID); derr != nil {
			return derr
		}
		if s.eventBus != nil {
			_ = s.eventBus.Publish(ctx, tenancy.NewSchemaArchivedEvent(binding))
		}
	} else if !errors.Is(err, shared.ErrNotFound) {
		return err
	}

	s.publish(ctx, tenant)
	s.logger.Info("tenant deprovisioned",
		zap.String("tenant_id", tenantID.String()),
	)
	return nil
}

// PurgeExpired drops schemas of tenants archived longer than the
// retention window and releases their schema names. Called by the
// background reaper.
func (s *ProvisioningService) PurgeExpired(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-s.cfg.RetentionWindow)
	tenants, err := s.tenantRepo.FindArchivedBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	purged := 0
	for _, tenant := range tenants {
		if tenant.SchemaName == "" {
			continue
		}
		if err := s.ddl.DropSchema(ctx, tenant.SchemaName); err != nil {
			s.logger.Error("failed to drop expired schema",
				zap.String("tenant_id", tenant.ID.String()),
				zap.String("schema", tenant.SchemaName),
				zap.Error(err),
			)
			continue
		}
		if err := s.registry.PurgeBinding(ctx, tenant.ID); err != nil {
			s.logger.Error("failed to purge schema binding",
				zap.String("tenant_id", tenant.ID.String()),
				zap.Error(err),
			)
			continue
		}

		droppedSchema := tenant.SchemaName
		tenant.SchemaName = ""
		if err := s.tenantRepo.Save(ctx, tenant); err != nil {
			s.logger.Error("failed to clear tenant schema reference",
				zap.String("tenant_id", tenant.ID.String()),
				zap.Error(err),
			)
			continue
		}

		s.logger.Info("expired tenant schema purged",
			zap.String("tenant_id", tenant.ID.String()),
			zap.String("schema", droppedSchema),
		)
		purged++
	}
	return purged, nil
}

func (s *ProvisioningService) defaultHostname(code string) string {
	if s.baseDomain == "" {
		return code
	}
	return code + "." + s.baseDomain
}

func (s *ProvisioningService) publish(ctx context.Context, tenant *tenancy.Tenant) {
	if s.eventBus == nil {
		return
	}
	events := tenant.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	if err := s.eventBus.Publish(ctx, events...); err != nil {
		s.logger.Error("failed to publish tenant events", zap.Error(err))
	}
	tenant.ClearDomainEvents()
}

func (s *ProvisioningService) publishSchemaProvisioned(ctx context.Context, binding *tenancy.SchemaBinding) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.Publish(ctx, tenancy.NewSchemaProvisionedEvent(binding)); err != nil {
		s.logger.Error("failed to publish schema provisioned event", zap.Error(err))
	}
}
