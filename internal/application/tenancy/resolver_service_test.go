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
)

type resolverFixture struct {
	registry   *mockSchemaRegistry
	tenantRepo *mockTenantRepository
	service    *ResolverService
}

func newResolverFixture() *resolverFixture {
	f := &resolverFixture{
		registry:   new(mockSchemaRegistry),
		tenantRepo: new(mockTenantRepository),
	}
	f.service = NewResolverService(f.registry, f.tenantRepo, config.TenancyConfig{
		BaseDomain:         "gridpos.io",
		AdminHost:          "admin.gridpos.io",
		ReservedSubdomains: []string{"www", "api", "admin", "status"},
		ResolveTimeout:     2 * time.Second,
	})
	return f
}

func provisionedTenant(t *testing.T, code, schema string) *tenancy.Tenant {
	t.Helper()
	tenant, err := tenancy.NewTenant(code, "Acme Retail")
	require.NoError(t, err)
	require.NoError(t, tenant.MarkProvisioned(schema))
	tenant.ClearDomainEvents()
	return tenant
}

func bindingFor(t *testing.T, tenant *tenancy.Tenant, hostname string) *tenancy.SchemaBinding {
	t.Helper()
	binding, err := tenancy.NewSchemaBinding(tenant.ID, tenant.SchemaName, []string{hostname})
	require.NoError(t, err)
	binding.ClearDomainEvents()
	return binding
}

func TestResolverService_Resolve_ByDomain(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves a bound hostname to its tenant schema", func(t *testing.T) {
		f := newResolverFixture()
		tenant := provisionedTenant(t, "acme", "tenant_acme")
		binding := bindingFor(t, tenant, "acme.gridpos.io")

		f.registry.On("ResolveByDomain", mock.Anything, "acme.gridpos.io").Return(binding, nil)
		f.tenantRepo.On("FindByID", mock.Anything, tenant.ID).Return(tenant, nil)

		res, err := f.service.Resolve(ctx, "acme.gridpos.io", "", false)

		require.NoError(t, err)
		assert.Equal(t, tenant.ID, res.TenantID)
		assert.Equal(t, "acme", res.TenantCode)
		assert.Equal(t, "tenant_acme", res.SchemaName)
		assert.False(t, res.Shared)
	})

	t.Run("normalizes port, trailing dot and case", func(t *testing.T) {
		f := newResolverFixture()
		tenant := provisionedTenant(t, "acme", "tenant_acme")
		binding := bindingFor(t, tenant, "acme.gridpos.io")

		f.registry.On("ResolveByDomain", mock.Anything, "acme.gridpos.io").Return(binding, nil)
		f.tenantRepo.On("FindByID", mock.Anything, tenant.ID).Return(tenant, nil)

		res, err := f.service.Resolve(ctx, "ACME.Gridpos.IO.:8443", "", false)

		require.NoError(t, err)
		assert.Equal(t, "tenant_acme", res.SchemaName)
	})

	t.Run("admin host resolves to the shared partition", func(t *testing.T) {
		f := newResolverFixture()

		res, err := f.service.Resolve(ctx, "admin.gridpos.io", "", false)

		require.NoError(t, err)
		assert.True(t, res.Shared)
		assert.Empty(t, res.SchemaName)
		f.registry.AssertNotCalled(t, "ResolveByDomain", mock.Anything, mock.Anything)
	})

	t.Run("bare base domain resolves to the shared partition", func(t *testing.T) {
		f := newResolverFixture()

		res, err := f.service.Resolve(ctx, "gridpos.io", "", false)

		require.NoError(t, err)
		assert.True(t, res.Shared)
	})

	t.Run("reserved subdomains never resolve to a tenant", func(t *testing.T) {
		f := newResolverFixture()

		for _, host := range []string{"www.gridpos.io", "api.gridpos.io", "status.gridpos.io"} {
			_, err := f.service.Resolve(ctx, host, "", false)
			assert.ErrorIs(t, err, tenancy.ErrUnknownTenant, host)
		}
		f.registry.AssertNotCalled(t, "ResolveByDomain", mock.Anything, mock.Anything)
	})

	t.Run("unknown hostname is denied", func(t *testing.T) {
		f := newResolverFixture()

		f.registry.On("ResolveByDomain", mock.Anything, "ghost.gridpos.io").Return(nil, tenancy.ErrUnknownTenant)

		_, err := f.service.Resolve(ctx, "ghost.gridpos.io", "", false)

		assert.ErrorIs(t, err, tenancy.ErrUnknownTenant)
	})

	t.Run("empty host is denied", func(t *testing.T) {
		f := newResolverFixture()

		_, err := f.service.Resolve(ctx, "   ", "", false)

		assert.ErrorIs(t, err, tenancy.ErrUnknownTenant)
	})

	t.Run("binding without a tenant row is denied", func(t *testing.T) {
		f := newResolverFixture()
		tenant := provisionedTenant(t, "acme", "tenant_acme")
		binding := bindingFor(t, tenant, "acme.gridpos.io")

		f.registry.On("ResolveByDomain", mock.Anything, "acme.gridpos.io").Return(binding, nil)
		f.tenantRepo.On("FindByID", mock.Anything, tenant.ID).Return(nil, shared.ErrNotFound)

		_, err := f.service.Resolve(ctx, "acme.gridpos.io", "", false)

		assert.ErrorIs(t, err, tenancy.ErrUnknownTenant)
	})

	t.Run("registry timeout is reported, not defaulted", func(t *testing.T) {
		f := newResolverFixture()

		f.registry.On("ResolveByDomain", mock.Anything, "slow.gridpos.io").Return(nil, context.DeadlineExceeded)

		_, err := f.service.Resolve(ctx, "slow.gridpos.io", "", false)

		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "RESOLUTION_TIMEOUT", domainErr.Code)
	})
}

func TestResolverService_Resolve_TenantLifecycle(t *testing.T) {
	ctx := context.Background()

	resolveHost := func(t *testing.T, tenant *tenancy.Tenant) (*Resolution, error) {
		t.Helper()
		f := newResolverFixture()
		binding, err := tenancy.NewSchemaBinding(tenant.ID, "tenant_acme", []string{"acme.gridpos.io"})
		require.NoError(t, err)
		f.registry.On("ResolveByDomain", mock.Anything, "acme.gridpos.io").Return(binding, nil)
		f.tenantRepo.On("FindByID", mock.Anything, tenant.ID).Return(tenant, nil)
		return f.service.Resolve(ctx, "acme.gridpos.io", "", false)
	}

	t.Run("provisioning tenant is not yet reachable", func(t *testing.T) {
		tenant, err := tenancy.NewTenant("acme", "Acme Retail")
		require.NoError(t, err)

		_, err = resolveHost(t, tenant)

		assert.ErrorIs(t, err, tenancy.ErrProvisioningInProgress)
	})

	t.Run("archived tenant is gone", func(t *testing.T) {
		tenant := provisionedTenant(t, "acme", "tenant_acme")
		require.NoError(t, tenant.Archive())

		_, err := resolveHost(t, tenant)

		assert.ErrorIs(t, err, tenancy.ErrTenantArchived)
	})

	t.Run("suspended tenant still resolves", func(t *testing.T) {
		tenant := provisionedTenant(t, "acme", "tenant_acme")
		require.NoError(t, tenant.Suspend())

		res, err := resolveHost(t, tenant)

		require.NoError(t, err)
		assert.Equal(t, tenancy.TenantStatusSuspended, res.Status)
	})

	t.Run("corrupt schema name fails closed", func(t *testing.T) {
		tenant := provisionedTenant(t, "acme", "tenant_acme")
		tenant.SchemaName = `tenant";drop`

		_, err := resolveHost(t, tenant)

		assert.ErrorIs(t, err, tenancy.ErrInvalidSchemaName)
	})
}

func TestResolverService_Resolve_Override(t *testing.T) {
	ctx := context.Background()

	t.Run("platform admin can target a tenant by code", func(t *testing.T) {
		f := newResolverFixture()
		tenant := provisionedTenant(t, "acme", "tenant_acme")

		f.tenantRepo.On("FindByCode", mock.Anything, "acme").Return(tenant, nil)

		res, err := f.service.Resolve(ctx, "admin.gridpos.io", "acme", true)

		require.NoError(t, err)
		assert.Equal(t, "tenant_acme", res.SchemaName)
		f.registry.AssertNotCalled(t, "ResolveByDomain", mock.Anything, mock.Anything)
	})

	t.Run("override without admin rights is forbidden", func(t *testing.T) {
		f := newResolverFixture()

		_, err := f.service.Resolve(ctx, "acme.gridpos.io", "acme", false)

		assert.ErrorIs(t, err, shared.ErrForbidden)
		f.tenantRepo.AssertNotCalled(t, "FindByCode", mock.Anything, mock.Anything)
	})

	t.Run("override with unknown code is denied", func(t *testing.T) {
		f := newResolverFixture()

		f.tenantRepo.On("FindByCode", mock.Anything, "ghost").Return(nil, shared.ErrNotFound)

		_, err := f.service.Resolve(ctx, "admin.gridpos.io", "ghost", true)

		assert.ErrorIs(t, err, tenancy.ErrUnknownTenant)
	})
}
