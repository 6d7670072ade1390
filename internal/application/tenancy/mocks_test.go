package tenancy

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/gridpos/backend/internal/domain/billing"
	"github.com/gridpos/backend/internal/domain/tenancy"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

// Mock implementations

type mockTenantRepository struct {
	mock.Mock
}

func (m *mockTenantRepository) Save(ctx context.Context, tenant *tenancy.Tenant) error {
	args := m.Called(ctx, tenant)
	return args.Error(0)
}

func (m *mockTenantRepository) FindByID(ctx context.Context, id uuid.UUID) (*tenancy.Tenant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tenancy.Tenant), args.Error(1)
}

func (m *mockTenantRepository) FindByCode(ctx context.Context, code string) (*tenancy.Tenant, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tenancy.Tenant), args.Error(1)
}

func (m *mockTenantRepository) List(ctx context.Context, status tenancy.TenantStatus, offset, limit int) ([]*tenancy.Tenant, int64, error) {
	args := m.Called(ctx, status, offset, limit)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*tenancy.Tenant), args.Get(1).(int64), args.Error(2)
}

func (m *mockTenantRepository) FindArchivedBefore(ctx context.Context, cutoff time.Time) ([]*tenancy.Tenant, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*tenancy.Tenant), args.Error(1)
}

type mockSchemaRegistry struct {
	mock.Mock
}

func (m *mockSchemaRegistry) Register(ctx context.Context, tenantID uuid.UUID, schemaName string, domains []string) (*tenancy.SchemaBinding, error) {
	args := m.Called(ctx, tenantID, schemaName, domains)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tenancy.SchemaBinding), args.Error(1)
}

func (m *mockSchemaRegistry) ResolveByDomain(ctx context.Context, hostname string) (*tenancy.SchemaBinding, error) {
	args := m.Called(ctx, hostname)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tenancy.SchemaBinding), args.Error(1)
}

func (m *mockSchemaRegistry) FindByTenant(ctx context.Context, tenantID uuid.UUID) (*tenancy.SchemaBinding, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tenancy.SchemaBinding), args.Error(1)
}

func (m *mockSchemaRegistry) SaveBinding(ctx context.Context, binding *tenancy.SchemaBinding) error {
	args := m.Called(ctx, binding)
	return args.Error(0)
}

func (m *mockSchemaRegistry) Deactivate(ctx context.Context, tenantID uuid.UUID) error {
	args := m.Called(ctx, tenantID)
	return args.Error(0)
}

func (m *mockSchemaRegistry) IsSchemaNameTaken(ctx context.Context, schemaName string) (bool, error) {
	args := m.Called(ctx, schemaName)
	return args.Bool(0), args.Error(1)
}

func (m *mockSchemaRegistry) PurgeBinding(ctx context.Context, tenantID uuid.UUID) error {
	args := m.Called(ctx, tenantID)
	return args.Error(0)
}

type mockSchemaDDL struct {
	mock.Mock
}

func (m *mockSchemaDDL) CreateSchema(ctx context.Context, schemaName string) error {
	args := m.Called(ctx, schemaName)
	return args.Error(0)
}

func (m *mockSchemaDDL) DropSchema(ctx context.Context, schemaName string) error {
	args := m.Called(ctx, schemaName)
	return args.Error(0)
}

func (m *mockSchemaDDL) SchemaExists(ctx context.Context, schemaName string) (bool, error) {
	args := m.Called(ctx, schemaName)
	return args.Bool(0), args.Error(1)
}

type mockSchemaMigrator struct {
	mock.Mock
}

func (m *mockSchemaMigrator) MigrateSchema(schemaName string) error {
	args := m.Called(schemaName)
	return args.Error(0)
}

// stubExecutor records the schemas it was asked to run against without
// executing the work unit, which would need a live database.
type stubExecutor struct {
	schemas []string
	err     error
}

func (s *stubExecutor) WithSchema(ctx context.Context, schemaName string, fn func(db *gorm.DB) error) error {
	s.schemas = append(s.schemas, schemaName)
	return s.err
}

type mockPlanRepository struct {
	mock.Mock
}

func (m *mockPlanRepository) Save(ctx context.Context, plan *billing.SubscriptionPlan) error {
	args := m.Called(ctx, plan)
	return args.Error(0)
}

func (m *mockPlanRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.SubscriptionPlan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.SubscriptionPlan), args.Error(1)
}

func (m *mockPlanRepository) FindCurrentByCode(ctx context.Context, code billing.PlanCode) (*billing.SubscriptionPlan, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.SubscriptionPlan), args.Error(1)
}

func (m *mockPlanRepository) ListCurrent(ctx context.Context) ([]*billing.SubscriptionPlan, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.SubscriptionPlan), args.Error(1)
}

func (m *mockPlanRepository) SeedDefaults(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type mockSubscriptionRepository struct {
	mock.Mock
}

func (m *mockSubscriptionRepository) Save(ctx context.Context, sub *billing.Subscription) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

func (m *mockSubscriptionRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Subscription, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Subscription), args.Error(1)
}

func (m *mockSubscriptionRepository) FindLiveByTenant(ctx context.Context, tenantID uuid.UUID) (*billing.Subscription, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Subscription), args.Error(1)
}

func (m *mockSubscriptionRepository) FindDueForEvaluation(ctx context.Context, now time.Time, limit int) ([]*billing.Subscription, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.Subscription), args.Error(1)
}
