package tenancy

import (
	"context"
	"testing"
	"time"

	"github.com/gridpos/backend/internal/domain/shared"
	"github.com/gridpos/backend/internal/domain/tenancy"
	"github.com/gridpos/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type provisioningFixture struct {
	tenantRepo *mockTenantRepository
	registry   *mockSchemaRegistry
	ddl        *mockSchemaDDL
	migrator   *mockSchemaMigrator
	executor   *stubExecutor
	service    *ProvisioningService
}

func newProvisioningFixture() *provisioningFixture {
	f := &provisioningFixture{
		tenantRepo: new(mockTenantRepository),
		registry:   new(mockSchemaRegistry),
		ddl:        new(mockSchemaDDL),
		migrator:   new(mockSchemaMigrator),
		executor:   &stubExecutor{},
	}
	f.service = NewProvisioningService(
		f.tenantRepo, f.registry, f.ddl, f.migrator, f.executor, nil,
		config.ProvisioningConfig{RetentionWindow: 30 * 24 * time.Hour},
		"gridpos.io",
		zap.NewNop(),
	)
	return f
}

func pendingTenant(t *testing.T, code string) *tenancy.Tenant {
	t.Helper()
	tenant, err := tenancy.NewTenant(code, "Acme Retail")
	require.NoError(t, err)
	tenant.ClearDomainEvents()
	return tenant
}

func TestSchemaNameFor(t *testing.T) {
	assert.Equal(t, "tenant_acme", SchemaNameFor("acme"))
	assert.Equal(t, "tenant_acme_retail", SchemaNameFor("Acme-Retail"))
}

func TestProvisioningService_Provision(t *testing.T) {
	ctx := context.Background()

	t.Run("runs the full sequence for a new tenant", func(t *testing.T) {
		f := newProvisioningFixture()
		tenant := pendingTenant(t, "acme")
		binding, err := tenancy.NewSchemaBinding(tenant.ID, "tenant_acme", []string{"acme.gridpos.io"})
		require.NoError(t, err)

		f.tenantRepo.On("FindByID", mock.Anything, tenant.ID).Return(tenant, nil)
		f.tenantRepo.On("Save", mock.Anything, tenant).Return(nil)
		f.registry.On("FindByTenant", mock.Anything, tenant.ID).Return(nil, shared.ErrNotFound)
		f.registry.On("Register", mock.Anything, tenant.ID, "tenant_acme", []string{"acme.gridpos.io"}).Return(binding, nil)
		f.ddl.On("CreateSchema", mock.Anything, "tenant_acme").Return(nil)
		f.migrator.On("MigrateSchema", "tenant_acme").Return(nil)

		err = f.service.Provision(ctx, tenant.ID)

		require.NoError(t, err)
		assert.Equal(t, tenancy.TenantStatusActive, tenant.Status)
		assert.Equal(t, "tenant_acme", tenant.SchemaName)
		assert.Equal(t, 1, tenant.ProvisionAttempts)
		assert.Equal(t, []string{"tenant_acme"}, f.executor.schemas)
		f.registry.AssertExpectations(t)
		f.ddl.AssertExpectations(t)
		f.migrator.AssertExpectations(t)
	})

	t.Run("a re-run keeps the registered schema name authoritative", func(t *testing.T) {
		f := newProvisioningFixture()
		tenant := pendingTenant(t, "acme")
		binding, err := tenancy.NewSchemaBinding(tenant.ID, "tenant_acme_2", []string{"acme.gridpos.io"})
		require.NoError(t, err)

		f.tenantRepo.On("FindByID", mock.Anything, tenant.ID).Return(tenant, nil)
		f.tenantRepo.On("Save", mock.Anything, tenant).Return(nil)
		f.registry.On("FindByTenant", mock.Anything, tenant.ID).Return(binding, nil)
		f.ddl.On("CreateSchema", mock.Anything, "tenant_acme_2").Return(nil)
		f.migrator.On("MigrateSchema", "tenant_acme_2").Return(nil)

		err = f.service.Provision(ctx, tenant.ID)

		require.NoError(t, err)
		assert.Equal(t, "tenant_acme_2", tenant.SchemaName)
		f.registry.AssertNotCalled(t, "Register", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("archived tenant is rejected", func(t *testing.T) {
		f := newProvisioningFixture()
		tenant := pendingTenant(t, "acme")
		require.NoError(t, tenant.Archive())

		f.tenantRepo.On("FindByID", mock.Anything, tenant.ID).Return(tenant, nil)

		err := f.service.Provision(ctx, tenant.ID)

		assert.ErrorIs(t, err, tenancy.ErrTenantArchived)
		f.tenantRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("already active tenant is rejected", func(t *testing.T) {
		f := newProvisioningFixture()
		tenant := pendingTenant(t, "acme")
		require.NoError(t, tenant.MarkProvisioned("tenant_acme"))

		f.tenantRepo.On("FindByID", mock.Anything, tenant.ID).Return(tenant, nil)

		err := f.service.Provision(ctx, tenant.ID)

		assert.ErrorIs(t, err, tenancy.ErrAlreadyProvisioned)
	})

	t.Run("DDL failure leaves the tenant in provisioning", func(t *testing.T) {
		f := newProvisioningFixture()
		tenant := pendingTenant(t, "acme")
		binding, err := tenancy.NewSchemaBinding(tenant.ID, "tenant_acme", []string{"acme.gridpos.io"})
		require.NoError(t, err)

		f.tenantRepo.On("FindByID", mock.Anything, tenant.ID).Return(tenant, nil)
		f.tenantRepo.On("Save", mock.Anything, tenant).Return(nil)
		f.registry.On("FindByTenant", mock.Anything, tenant.ID).Return(binding, nil)
		f.ddl.On("CreateSchema", mock.Anything, "tenant_acme").Return(assert.AnError)

		err = f.service.Provision(ctx, tenant.ID)

		assert.ErrorIs(t, err, assert.AnError)
		assert.ErrorIs(t, err, tenancy.ErrProvisioningFailed)
		assert.Equal(t, tenancy.TenantStatusProvisioning, tenant.Status)
		assert.Equal(t, 1, tenant.ProvisionAttempts, "failed attempt still counts")
		f.migrator.AssertNotCalled(t, "MigrateSchema", mock.Anything)
		assert.Empty(t, f.executor.schemas)
	})
}

func TestProvisioningService_Deprovision(t *testing.T) {
	ctx := context.Background()

	t.Run("archives the tenant and deactivates its binding", func(t *testing.T) {
		f := newProvisioningFixture()
		tenant := provisionedTenant(t, "acme", "tenant_acme")
		binding := bindingFor(t, tenant, "acme.gridpos.io")

		f.tenantRepo.On("FindByID", mock.Anything, tenant.ID).Return(tenant, nil)
		f.tenantRepo.On("Save", mock.Anything, tenant).Return(nil)
		f.registry.On("FindByTenant", mock.Anything, tenant.ID).Return(binding, nil)
		f.registry.On("Deactivate", mock.Anything, tenant.ID).Return(nil)

		err := f.service.Deprovision(ctx, tenant.ID)

		require.NoError(t, err)
		assert.Equal(t, tenancy.TenantStatusArchived, tenant.Status)
		require.NotNil(t, tenant.ArchivedAt)
		f.registry.AssertExpectations(t)
	})

	t.Run("tolerates a tenant without a binding", func(t *testing.T) {
		f := newProvisioningFixture()
		tenant := pendingTenant(t, "acme")

		f.tenantRepo.On("FindByID", mock.Anything, tenant.ID).Return(tenant, nil)
		f.tenantRepo.On("Save", mock.Anything, tenant).Return(nil)
		f.registry.On("FindByTenant", mock.Anything, tenant.ID).Return(nil, shared.ErrNotFound)

		err := f.service.Deprovision(ctx, tenant.ID)

		require.NoError(t, err)
		assert.Equal(t, tenancy.TenantStatusArchived, tenant.Status)
		f.registry.AssertNotCalled(t, "Deactivate", mock.Anything, mock.Anything)
	})

	t.Run("double archive is rejected", func(t *testing.T) {
		f := newProvisioningFixture()
		tenant := pendingTenant(t, "acme")
		require.NoError(t, tenant.Archive())

		f.tenantRepo.On("FindByID", mock.Anything, tenant.ID).Return(tenant, nil)

		err := f.service.Deprovision(ctx, tenant.ID)

		require.Error(t, err)
		f.tenantRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

func TestProvisioningService_PurgeExpired(t *testing.T) {
	ctx := context.Background()

	archivedTenant := func(t *testing.T, code, schema string) *tenancy.Tenant {
		t.Helper()
		tenant := provisionedTenant(t, code, schema)
		require.NoError(t, tenant.Archive())
		tenant.ClearDomainEvents()
		return tenant
	}

	t.Run("drops expired schemas and releases their names", func(t *testing.T) {
		f := newProvisioningFixture()
		tenant := archivedTenant(t, "acme", "tenant_acme")

		f.tenantRepo.On("FindArchivedBefore", mock.Anything, mock.AnythingOfType("time.Time")).
			Return([]*tenancy.Tenant{tenant}, nil)
		f.ddl.On("DropSchema", mock.Anything, "tenant_acme").Return(nil)
		f.registry.On("PurgeBinding", mock.Anything, tenant.ID).Return(nil)
		f.tenantRepo.On("Save", mock.Anything, tenant).Return(nil)

		purged, err := f.service.PurgeExpired(ctx)

		require.NoError(t, err)
		assert.Equal(t, 1, purged)
		assert.Empty(t, tenant.SchemaName, "purge must release the schema name for reuse")
	})

	t.Run("skips tenants that never got a schema", func(t *testing.T) {
		f := newProvisioningFixture()
		tenant := pendingTenant(t, "acme")
		require.NoError(t, tenant.Archive())

		f.tenantRepo.On("FindArchivedBefore", mock.Anything, mock.AnythingOfType("time.Time")).
			Return([]*tenancy.Tenant{tenant}, nil)

		purged, err := f.service.PurgeExpired(ctx)

		require.NoError(t, err)
		assert.Zero(t, purged)
		f.ddl.AssertNotCalled(t, "DropSchema", mock.Anything, mock.Anything)
	})

	t.Run("a failed drop is skipped, the rest still purge", func(t *testing.T) {
		f := newProvisioningFixture()
		broken := archivedTenant(t, "bravo", "tenant_bravo")
		healthy := archivedTenant(t, "acme", "tenant_acme")

		f.tenantRepo.On("FindArchivedBefore", mock.Anything, mock.AnythingOfType("time.Time")).
			Return([]*tenancy.Tenant{broken, healthy}, nil)
		f.ddl.On("DropSchema", mock.Anything, "tenant_bravo").Return(assert.AnError)
		f.ddl.On("DropSchema", mock.Anything, "tenant_acme").Return(nil)
		f.registry.On("PurgeBinding", mock.Anything, healthy.ID).Return(nil)
		f.tenantRepo.On("Save", mock.Anything, healthy).Return(nil)

		purged, err := f.service.PurgeExpired(ctx)

		require.NoError(t, err)
		assert.Equal(t, 1, purged)
		assert.Equal(t, "tenant_bravo", broken.SchemaName, "failed drop must not clear the reference")
		f.registry.AssertNotCalled(t, "PurgeBinding", mock.Anything, broken.ID)
	})
}
